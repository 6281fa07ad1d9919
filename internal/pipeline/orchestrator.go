// Package pipeline sequences one question-answering run: query generation,
// search, concurrent fetch and extraction, then synthesis.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	"github.com/mohammad-safakhou/aisearch/internal/logger"
	"github.com/mohammad-safakhou/aisearch/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type QueryGenerator interface {
	Generate(ctx context.Context, userInput string, lang models.Language) (*models.GeneratedQuerySet, error)
}

type Searcher interface {
	Search(ctx context.Context, queries []models.SearchQuery, perQueryLimit int, excludeFileLike bool) ([]string, error)
}

type SourceAssembler interface {
	Assemble(ctx context.Context, url string) (*models.Source, bool)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, sources []models.Source, userQuery string, lang models.Language) (*models.SynthesizedAnswer, error)
}

// Options bounds one run.
type Options struct {
	PerQueryLimit   int
	ExcludeFileLike bool
	Workers         int
	FetchDeadline   time.Duration
}

var (
	tracer = otel.Tracer("aisearch/internal/pipeline")
	meter  = otel.Meter("aisearch/internal/pipeline")

	runsTotal, _ = meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Pipeline runs by outcome"))
	stageSeconds, _ = meter.Float64Histogram("pipeline_stage_seconds",
		metric.WithDescription("Duration of each pipeline stage"), metric.WithUnit("s"))
)

// Pipeline holds no state between runs.
type Pipeline struct {
	queries   QueryGenerator
	search    Searcher
	assembler SourceAssembler
	synth     Synthesizer
	opts      Options
	log       *zap.Logger
}

func New(q QueryGenerator, s Searcher, a SourceAssembler, syn Synthesizer, opts Options, log *zap.Logger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.PerQueryLimit <= 0 {
		opts.PerQueryLimit = 5
	}
	if opts.FetchDeadline <= 0 {
		opts.FetchDeadline = 90 * time.Second
	}
	return &Pipeline{queries: q, search: s, assembler: a, synth: syn, opts: opts, log: logger.OrNop(log).Named("pipeline")}
}

// Run executes one question. A fatal error is returned together with a result
// whose outcome is upstream_failure.
func (p *Pipeline) Run(ctx context.Context, query string, lang models.Language) (*models.RunResult, error) {
	start := time.Now()
	res := &models.RunResult{RunID: uuid.NewString(), Query: query, Language: lang}
	log := p.log.With(zap.String("run_id", res.RunID))

	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.String("run.language", string(lang)),
	))
	defer span.End()

	finish := func(outcome models.Outcome, err error) (*models.RunResult, error) {
		res.Outcome = outcome
		res.Elapsed = time.Since(start)
		if err != nil {
			res.Reason = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("run failed", zap.Error(err))
		}
		span.SetAttributes(attribute.String("run.outcome", string(outcome)))
		runsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
		log.Info("run finished", zap.String("outcome", string(outcome)), zap.Duration("elapsed", res.Elapsed),
			zap.Int("sources", len(res.Sources)))
		return res, err
	}

	set, err := stage(ctx, "generate", func(ctx context.Context) (*models.GeneratedQuerySet, error) {
		return p.queries.Generate(ctx, query, lang)
	})
	if err != nil {
		return finish(models.OutcomeUpstreamFailure, err)
	}
	if !set.Usable() {
		if set != nil {
			res.Reason = set.Reason
		}
		return finish(models.OutcomeInappropriate, nil)
	}
	res.Queries = set.SearchQueries(lang)
	log.Info("queries generated", zap.Int("count", len(res.Queries)))

	urls, err := stage(ctx, "search", func(ctx context.Context) ([]string, error) {
		return p.search.Search(ctx, res.Queries, p.opts.PerQueryLimit, p.opts.ExcludeFileLike)
	})
	if err != nil {
		return finish(models.OutcomeUpstreamFailure, err)
	}
	res.URLs = DedupURLs(urls)
	if len(res.URLs) == 0 {
		return finish(models.OutcomeNoResults, nil)
	}
	log.Info("urls to fetch", zap.Int("count", len(res.URLs)), zap.Int("before_dedup", len(urls)))

	res.Sources, _ = stage(ctx, "fetch", func(ctx context.Context) ([]models.Source, error) {
		return p.collect(ctx, res.URLs), nil
	})

	ans, err := stage(ctx, "synthesize", func(ctx context.Context) (*models.SynthesizedAnswer, error) {
		return p.synth.Synthesize(ctx, res.Sources, query, lang)
	})
	if err != nil {
		return finish(models.OutcomeUpstreamFailure, err)
	}
	res.Answer = ans
	return finish(models.OutcomeAnswered, nil)
}

// stage wraps fn in a span and a duration measurement.
func stage[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "pipeline."+name)
	defer span.End()
	t0 := time.Now()
	out, err := fn(ctx)
	stageSeconds.Record(ctx, time.Since(t0).Seconds(), metric.WithAttributes(attribute.String("stage", name)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// collect fetches and extracts every URL with a bounded pool. Sources keep the
// order of urls regardless of completion order. Tasks still running at the
// fetch deadline contribute nothing.
func (p *Pipeline) collect(ctx context.Context, urls []string) []models.Source {
	fctx, cancel := context.WithTimeout(ctx, p.opts.FetchDeadline)
	defer cancel()

	var (
		mu     sync.Mutex
		closed bool
		slots  = make([]*models.Source, len(urls))
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(p.opts.Workers)
		for i, u := range urls {
			if fctx.Err() != nil {
				break
			}
			g.Go(func() error {
				src, ok := p.assembler.Assemble(fctx, u)
				if !ok {
					return nil
				}
				mu.Lock()
				if !closed {
					slots[i] = src
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-fctx.Done():
		p.log.Warn("fetch deadline reached; pending sources dropped", zap.Duration("deadline", p.opts.FetchDeadline))
	}

	mu.Lock()
	defer mu.Unlock()
	closed = true
	out := make([]models.Source, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// DedupURLs drops URLs whose canonical form was already seen, keeping the
// first-seen original spelling and order.
func DedupURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		key, err := helpers.CanonicalURL(u)
		if err != nil {
			key = u
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Package agents holds the two schema-constrained generation steps of a run:
// query generation with its appropriateness gate, and answer synthesis.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/aisearch/internal/logger"
	"github.com/mohammad-safakhou/aisearch/internal/schema"
	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/mohammad-safakhou/aisearch/provider"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrEmptyQuery is returned for blank user input.
var ErrEmptyQuery = errors.New("empty query")

var (
	meter              = otel.Meter("aisearch/agents")
	generationCalls, _ = meter.Int64Counter("generation_calls_total",
		metric.WithDescription("Schema-constrained generation calls by schema and result"))
)

// QueryGenerator produces search queries for a user question.
type QueryGenerator struct {
	gen        provider.Generator
	maxQueries int
	log        *zap.Logger
}

func NewQueryGenerator(gen provider.Generator, maxQueries int, log *zap.Logger) *QueryGenerator {
	if maxQueries <= 0 {
		maxQueries = 3
	}
	return &QueryGenerator{gen: gen, maxQueries: maxQueries, log: logger.OrNop(log).Named("agents")}
}

// Generate returns the validated query set. When the input fails the
// appropriateness gate the set comes back with IsAppropriate false, no queries
// and the backend's reason; nil means an appropriate input yielded no usable
// query. Either way Usable is false and the run cannot proceed, which is not
// the same as an empty search result.
func (q *QueryGenerator) Generate(ctx context.Context, userInput string, lang models.Language) (*models.GeneratedQuerySet, error) {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return nil, ErrEmptyQuery
	}
	var set models.GeneratedQuerySet
	if err := call(ctx, q.gen, schema.QuerySet, createQueryPrompt(lang, q.maxQueries), "User question: "+userInput, &set); err != nil {
		return nil, err
	}

	if !set.IsAppropriate {
		q.log.Info("input rejected by appropriateness gate", zap.String("reason", set.Reason))
		return &models.GeneratedQuerySet{IsAppropriate: false, Reason: set.Reason}, nil
	}
	cleaned := make([]string, 0, len(set.Queries))
	for _, s := range set.Queries {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
		if len(cleaned) == q.maxQueries {
			break
		}
	}
	set.Queries = cleaned
	if !set.Usable() {
		q.log.Warn("appropriate input produced no queries")
		return nil, nil
	}
	q.log.Debug("queries generated", zap.Strings("queries", set.Queries))
	return &set, nil
}

// call runs one generation request and decodes the validated reply into out.
func call(ctx context.Context, gen provider.Generator, name, system, user string, out any) error {
	raw, err := schema.Raw(name)
	if err != nil {
		return err
	}
	reply, err := gen.Generate(ctx, models.GenerationRequest{
		Name: name,
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: system},
			{Role: models.RoleUser, Content: user},
		},
		Schema: raw,
	})
	result := "ok"
	defer func() {
		generationCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("schema", name), attribute.String("result", result)))
	}()
	if err != nil {
		result = "upstream_error"
		if !models.Fatal(err) {
			return fmt.Errorf("%w: %s generation: %v", models.ErrUpstream, name, err)
		}
		return fmt.Errorf("%s generation: %w", name, err)
	}
	if err := schema.Decode(name, reply, out); err != nil {
		result = "schema_violation"
		return err
	}
	return nil
}

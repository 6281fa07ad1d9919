package cmd

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/aisearch/agents"
	"github.com/mohammad-safakhou/aisearch/config"
	"github.com/mohammad-safakhou/aisearch/internal/pipeline"
	"github.com/mohammad-safakhou/aisearch/provider"
	"github.com/mohammad-safakhou/aisearch/tools/extract"
	"github.com/mohammad-safakhou/aisearch/tools/web_fetch"
	"github.com/mohammad-safakhou/aisearch/tools/web_search"
	"go.uber.org/zap"
)

// buildPipeline wires one pipeline from configuration. Every call gets its own
// fetch engine so connection pools and robots caches are per run.
func buildPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pipeline.Pipeline, error) {
	gen, err := provider.New(ctx, cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("generation backend: %w", err)
	}
	searcher, err := web_search.NewWebSearcher(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}
	renderer, err := web_fetch.NewRenderer(cfg.Fetch.Browser, cfg.Fetch.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("browser tier: %w", err)
	}

	engine := web_fetch.New(web_fetch.OptionsFrom(cfg.Fetch), renderer, log)
	assembler := pipeline.NewAssembler(engine, extract.New(cfg.Extract, log), log)

	return pipeline.New(
		agents.NewQueryGenerator(gen, cfg.Generation.MaxQueries, log),
		web_search.NewBroker(searcher, log),
		assembler,
		agents.NewSynthesizer(gen, cfg.Generation.PerSourceChars, log),
		pipeline.Options{
			PerQueryLimit:   cfg.Search.PerQueryLimit,
			ExcludeFileLike: cfg.Search.ExcludeFileLike,
			Workers:         cfg.Pipeline.Workers,
			FetchDeadline:   cfg.Pipeline.FetchDeadline,
		},
		log,
	), nil
}

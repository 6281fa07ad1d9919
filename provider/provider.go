package provider

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/aisearch/config"
	"github.com/mohammad-safakhou/aisearch/models"
	gemini_provider "github.com/mohammad-safakhou/aisearch/provider/gemini"
	openai_provider "github.com/mohammad-safakhou/aisearch/provider/openai"
)

// Client names a generation backend.
type Client string

const (
	OpenAI Client = "openai"
	Gemini Client = "gemini"
)

// Generator is the schema-constrained generation backend. Implementations return
// the raw JSON reply; validation is the caller's job. Transport and HTTP failures
// wrap models.ErrUpstream.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) ([]byte, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req models.GenerationRequest) ([]byte, error)

func (f GeneratorFunc) Generate(ctx context.Context, req models.GenerationRequest) ([]byte, error) {
	return f(ctx, req)
}

// New creates the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.GenerationConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: generation.api_key is empty", models.ErrConfiguration)
	}
	switch Client(cfg.Provider) {
	case OpenAI:
		return openai_provider.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.Timeout), nil
	case Gemini:
		return gemini_provider.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.Timeout)
	default:
		return nil, fmt.Errorf("%w: unsupported generation provider %q", models.ErrConfiguration, cfg.Provider)
	}
}

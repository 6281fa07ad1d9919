package gemini_provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/aisearch/models"
	"google.golang.org/genai"
)

type client struct {
	api         *genai.Client
	model       string
	temperature float64
}

// NewGeminiClient creates a Gemini API generator.
func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float64, timeout time.Duration) (*client, error) {
	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", models.ErrConfiguration, err)
	}
	return &client{api: api, model: model, temperature: temperature}, nil
}

func (c *client) Generate(ctx context.Context, req models.GenerationRequest) ([]byte, error) {
	var schema any
	if err := json.Unmarshal(req.Schema, &schema); err != nil {
		return nil, fmt.Errorf("%w: invalid request schema: %v", models.ErrConfiguration, err)
	}
	if m, ok := schema.(map[string]any); ok {
		delete(m, "$schema")
	}
	temp := c.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: schema,
		Temperature:        genai.Ptr(float32(temp)),
	}
	if sys := req.System(); sys != "" {
		cfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}
	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == models.RoleUser {
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := c.api.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini %s: %v", models.ErrUpstream, req.Name, err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: gemini %s: empty response", models.ErrUpstream, req.Name)
	}
	return []byte(text), nil
}

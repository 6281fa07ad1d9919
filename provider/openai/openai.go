package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/sashabaranov/go-openai"
)

// client implements provider.Generator on the chat completions API with strict
// JSON schema response formatting.
type client struct {
	api         *openai.Client
	model       string
	temperature float64
}

// NewOpenAIClient creates a new OpenAI client. baseURL may be empty.
func NewOpenAIClient(apiKey, baseURL, model string, temperature float64, timeout time.Duration) *client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &client{api: openai.NewClientWithConfig(cfg), model: model, temperature: temperature}
}

func (c *client) Generate(ctx context.Context, req models.GenerationRequest) ([]byte, error) {
	schema, err := strictSchema(req.Schema)
	if err != nil {
		return nil, err
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	temp := c.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: float32(temp),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: openai %s: status %d: %s", models.ErrUpstream, req.Name, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: openai %s: %v", models.ErrUpstream, req.Name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai %s: empty choices", models.ErrUpstream, req.Name)
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, &models.SchemaViolationError{Schema: req.Name, Problems: []string{"refused: " + choice.Message.Refusal}}
	}
	return []byte(choice.Message.Content), nil
}

// unsupported lists the validation keywords strict structured output rejects.
// The reply is still validated locally against the full schema.
var unsupported = []string{"minLength", "maxLength", "pattern", "format", "minItems", "maxItems"}

// strictSchema drops the keywords the structured-output endpoint rejects.
func strictSchema(raw json.RawMessage) (json.RawMessage, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid request schema: %v", models.ErrConfiguration, err)
	}
	delete(doc, "$schema")
	delete(doc, "title")
	strip(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func strip(node any) {
	switch n := node.(type) {
	case map[string]any:
		for _, k := range unsupported {
			// A property that happens to carry a keyword's name is an object.
			if _, isSchema := n[k].(map[string]any); !isSchema {
				delete(n, k)
			}
		}
		for _, v := range n {
			strip(v)
		}
	case []any:
		for _, v := range n {
			strip(v)
		}
	}
}

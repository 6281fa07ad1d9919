package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/aisearch/config"
	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), config.GenerationConfig{Provider: "openai"})
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	_, err = New(context.Background(), config.GenerationConfig{Provider: "claude", APIKey: "k"})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestOpenAIGeneratorSendsStrictSchema(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	gen, err := New(context.Background(), config.GenerationConfig{
		Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-test", Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), models.GenerationRequest{
		Name:     "answer",
		Messages: []models.ChatMessage{{Role: models.RoleSystem, Content: "sys"}, {Role: models.RoleUser, Content: "q"}},
		Schema:   json.RawMessage(`{"$schema":"x","type":"object","properties":{"ok":{"type":"boolean"},` +
			`"summary":{"type":"string","minLength":1},"points":{"type":"array","maxItems":5,"items":{"type":"string","minLength":1}},` +
			`"minLength":{"type":"integer"}}}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(out))

	assert.Equal(t, "gpt-test", got["model"])
	rf := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, "answer", js["name"])
	assert.Equal(t, true, js["strict"])
	sent := js["schema"].(map[string]any)
	assert.NotContains(t, sent, "$schema")
	props := sent["properties"].(map[string]any)
	assert.NotContains(t, props["summary"].(map[string]any), "minLength")
	points := props["points"].(map[string]any)
	assert.NotContains(t, points, "maxItems")
	assert.NotContains(t, points["items"].(map[string]any), "minLength")
	assert.Contains(t, props, "minLength", "a property named like a keyword is kept")
}

func TestOpenAIGeneratorMapsFailuresToUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	gen, err := New(context.Background(), config.GenerationConfig{Provider: "openai", APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m", Timeout: time.Second})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), models.GenerationRequest{Name: "query_set", Schema: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstream))
	assert.Contains(t, err.Error(), "bad model")
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(ctx context.Context, req models.GenerationRequest) ([]byte, error) {
		return []byte(req.Name), nil
	})
	out, err := g.Generate(context.Background(), models.GenerationRequest{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", string(out))
}

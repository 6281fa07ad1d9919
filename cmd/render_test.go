package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRunAnswered(t *testing.T) {
	fetched := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	res := &models.RunResult{
		Outcome: models.OutcomeAnswered,
		Queries: []models.SearchQuery{{Text: "library hours"}, {Text: "library sunday"}},
		URLs:    []string{"https://lib.example.com/hours", "https://news.example.com/x"},
		Sources: []models.Source{
			models.NewSource("https://lib.example.com/hours", models.SourceKindHTML, "Hours", strings.Repeat("a", 150), fetched),
		},
		Answer: &models.SynthesizedAnswer{
			Summary:     "Open 9-17.",
			KeyPoints:   []string{"Weekdays 9-17", "Closed Sunday"},
			SourcesUsed: []string{"https://lib.example.com/hours"},
			Confidence:  models.ConfidenceHigh,
		},
	}
	var buf bytes.Buffer
	renderRun(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Generated search queries: library hours | library sunday")
	assert.Contains(t, out, "  https://news.example.com/x")
	assert.Contains(t, out, "Content 1 (first 100 chars): "+strings.Repeat("a", 100)+"\n")
	assert.Contains(t, out, "AI RESPONSE")
	assert.Contains(t, out, "  1. Weekdays 9-17\n  2. Closed Sunday")
	assert.Contains(t, out, "[1] Hours")
	assert.Contains(t, out, "retrieved 2025-03-01")
	assert.Contains(t, out, "[Confidence: high]")
}

func TestRenderRunTerminalOutcomes(t *testing.T) {
	for _, o := range []models.Outcome{models.OutcomeInappropriate, models.OutcomeNoResults, models.OutcomeUpstreamFailure} {
		var buf bytes.Buffer
		renderRun(&buf, &models.RunResult{Outcome: o, Reason: "because"})
		assert.Contains(t, buf.String(), o.Message())
		assert.NotContains(t, buf.String(), "AI RESPONSE")
	}
	var buf bytes.Buffer
	renderRun(&buf, &models.RunResult{Outcome: models.OutcomeInappropriate, Reason: "asks for secrets"})
	assert.Contains(t, buf.String(), "Reason: asks for secrets")
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	q, err := prompt(strings.NewReader("  opening hours \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "opening hours", q)
	assert.Equal(t, "Enter your search query: ", out.String())

	_, err = prompt(strings.NewReader("\n"), &out)
	assert.Error(t, err)
}

func TestPreviewCountsRunes(t *testing.T) {
	assert.Equal(t, "žl", preview("žluť", 2))
	assert.Equal(t, "a b", preview(" a \n b ", 10))
}

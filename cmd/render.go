package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	"github.com/mohammad-safakhou/aisearch/models"
)

const previewRunes = 100

// renderRun prints a run the way the interactive tool always has: queries, URLs,
// content previews, then the answer block or the terminal message.
func renderRun(w io.Writer, res *models.RunResult) {
	if res == nil {
		return
	}
	if len(res.Queries) > 0 {
		texts := make([]string, 0, len(res.Queries))
		for _, q := range res.Queries {
			texts = append(texts, q.Text)
		}
		fmt.Fprintf(w, "Generated search queries: %s\n", strings.Join(texts, " | "))
	}
	if len(res.URLs) > 0 {
		fmt.Fprintln(w, "Fetched URLs:")
		for _, u := range res.URLs {
			fmt.Fprintf(w, "  %s\n", u)
		}
	}
	for i, s := range res.Sources {
		fmt.Fprintf(w, "Content %d (first %d chars): %s\n", i+1, previewRunes, preview(s.Body, previewRunes))
	}

	if res.Outcome != models.OutcomeAnswered || res.Answer == nil {
		if msg := res.Outcome.Message(); msg != "" {
			fmt.Fprintln(w, msg)
		}
		if res.Outcome == models.OutcomeInappropriate && res.Reason != "" {
			fmt.Fprintf(w, "Reason: %s\n", res.Reason)
		}
		return
	}
	renderAnswer(w, res.Answer, res.Sources)
}

func renderAnswer(w io.Writer, ans *models.SynthesizedAnswer, sources []models.Source) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nAI RESPONSE\n%s\n", rule, rule)
	fmt.Fprintf(w, "\n%s\n\n", ans.Summary)

	if len(ans.KeyPoints) > 0 {
		fmt.Fprintln(w, "Key Points:")
		for i, p := range ans.KeyPoints {
			fmt.Fprintf(w, "  %d. %s\n", i+1, p)
		}
	}
	if cites := helpers.FormatCitations(helpers.CitationsFor(sources, ans.SourcesUsed), helpers.WithMaxSnippetLength(120)); len(cites) > 0 {
		fmt.Fprintln(w, "\nSources Used:")
		for _, c := range cites {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	fmt.Fprintf(w, "\n[Confidence: %s]\n%s\n", ans.Confidence, rule)
}

func renderJSON(w io.Writer, res *models.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

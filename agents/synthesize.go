package agents

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/aisearch/internal/logger"
	"github.com/mohammad-safakhou/aisearch/internal/schema"
	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/mohammad-safakhou/aisearch/provider"
	"go.uber.org/zap"
)

// Synthesizer writes the final answer from the assembled sources.
type Synthesizer struct {
	gen            provider.Generator
	perSourceChars int
	log            *zap.Logger
}

func NewSynthesizer(gen provider.Generator, perSourceChars int, log *zap.Logger) *Synthesizer {
	if perSourceChars <= 0 {
		perSourceChars = 8000
	}
	return &Synthesizer{gen: gen, perSourceChars: perSourceChars, log: logger.OrNop(log).Named("agents")}
}

var noInformation = map[models.Language]string{
	models.LanguageEnglish: "No information was found in the retrieved sources.",
	models.LanguageCzech:   "V získaných zdrojích nebyly nalezeny žádné informace.",
	models.LanguageSlovak:  "V získaných zdrojoch sa nenašli žiadne informácie.",
}

// withNoInformation leads summary with the no-information notice for lang
// unless the backend already wrote it.
func withNoInformation(summary string, lang models.Language) string {
	notice, ok := noInformation[lang]
	if !ok {
		notice = noInformation[models.LanguageEnglish]
	}
	summary = strings.TrimSpace(summary)
	if strings.HasPrefix(strings.ToLower(summary), strings.ToLower(notice)) {
		return summary
	}
	if summary == "" {
		return notice
	}
	return notice + " " + summary
}

// Synthesize always calls the backend, even with no sources. Cited URLs that were
// not among sources are moved to RejectedSources. Without sources the answer is
// low confidence and its summary opens with the no-information notice.
func (s *Synthesizer) Synthesize(ctx context.Context, sources []models.Source, userQuery string, lang models.Language) (*models.SynthesizedAnswer, error) {
	user := "User question: " + strings.TrimSpace(userQuery) + "\n\nSources:\n" + formatSources(sources, s.perSourceChars)

	var ans models.SynthesizedAnswer
	if err := call(ctx, s.gen, schema.Answer, createSynthesisPrompt(lang), user, &ans); err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		known[src.URL] = struct{}{}
	}
	used := make([]string, 0, len(ans.SourcesUsed))
	seen := make(map[string]struct{}, len(ans.SourcesUsed))
	for _, u := range ans.SourcesUsed {
		u = strings.TrimSpace(u)
		if _, dup := seen[u]; dup || u == "" {
			continue
		}
		seen[u] = struct{}{}
		if _, ok := known[u]; ok {
			used = append(used, u)
			continue
		}
		ans.RejectedSources = append(ans.RejectedSources, u)
	}
	if len(ans.RejectedSources) > 0 {
		s.log.Warn("answer cited urls outside the source set", zap.Strings("rejected", ans.RejectedSources))
	}
	ans.SourcesUsed = used

	if len(sources) == 0 {
		ans.Confidence = models.ConfidenceLow
		ans.SourcesUsed = []string{}
		ans.Summary = withNoInformation(ans.Summary, lang)
	}
	if ans.KeyPoints == nil {
		ans.KeyPoints = []string{}
	}
	return &ans, nil
}

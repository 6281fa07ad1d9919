package models

import (
	"fmt"
	"strings"
	"time"
)

// Language selects the language the generated queries and the answer are written in.
type Language string

const (
	LanguageAuto    Language = "auto"
	LanguageCzech   Language = "cs"
	LanguageEnglish Language = "en"
	LanguageSlovak  Language = "sk"
)

// ParseLanguage accepts auto|cs|en|sk (case-insensitive); empty means auto.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case "", LanguageAuto:
		return LanguageAuto, nil
	case LanguageCzech:
		return LanguageCzech, nil
	case LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageSlovak:
		return LanguageSlovak, nil
	}
	return "", fmt.Errorf("unsupported language %q (want auto, cs, en or sk)", s)
}

// DisplayName is used in prompts.
func (l Language) DisplayName() string {
	switch l {
	case LanguageCzech:
		return "Czech"
	case LanguageEnglish:
		return "English"
	case LanguageSlovak:
		return "Slovak"
	default:
		return "the language of the user's question"
	}
}

// SearchQuery is one query string produced by the query generator.
type SearchQuery struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
}

// SourceKind describes how a Source body was produced.
type SourceKind string

const (
	SourceKindHTML           SourceKind = "html"
	SourceKindHTMLStructured SourceKind = "html_structured"
	SourceKindPDF            SourceKind = "pdf"
)

// Source is the normalized record of one fetched-and-extracted page or document.
// Construct it with NewSource so Length always matches Body.
type Source struct {
	URL       string     `json:"url"`
	Kind      SourceKind `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Length    int        `json:"length"`
	FetchedAt time.Time  `json:"fetched_at"`
}

func NewSource(url string, kind SourceKind, title, body string, fetchedAt time.Time) Source {
	return Source{
		URL:       url,
		Kind:      kind,
		Title:     title,
		Body:      body,
		Length:    len(body),
		FetchedAt: fetchedAt,
	}
}

// GeneratedQuerySet is the validated output of the query generation call.
type GeneratedQuerySet struct {
	Queries       []string `json:"queries"`
	IsAppropriate bool     `json:"is_appropriate"`
	Reason        string   `json:"reason"`
}

// Usable reports whether the set may be searched. An inappropriate set is never
// usable, whatever its queries say.
func (g *GeneratedQuerySet) Usable() bool {
	if g == nil || !g.IsAppropriate {
		return false
	}
	for _, q := range g.Queries {
		if strings.TrimSpace(q) != "" {
			return true
		}
	}
	return false
}

// SearchQueries converts the set into search queries, or nil when the set is not usable.
func (g *GeneratedQuerySet) SearchQueries(lang Language) []SearchQuery {
	if !g.Usable() {
		return nil
	}
	out := make([]SearchQuery, 0, len(g.Queries))
	for _, q := range g.Queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, SearchQuery{Text: q, Language: lang})
	}
	return out
}

// Confidence is the enumerated answer confidence.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// SynthesizedAnswer is the validated output of the answer synthesis call.
// SourcesUsed only ever holds URLs that were passed to synthesis; anything else the
// backend cited ends up in RejectedSources.
type SynthesizedAnswer struct {
	Summary         string     `json:"summary"`
	KeyPoints       []string   `json:"key_points"`
	SourcesUsed     []string   `json:"sources_used"`
	Confidence      Confidence `json:"confidence"`
	RejectedSources []string   `json:"rejected_sources,omitempty"`
}

// Outcome is the user-facing result class of one pipeline run.
type Outcome string

const (
	OutcomeAnswered        Outcome = "answered"
	OutcomeInappropriate   Outcome = "inappropriate"
	OutcomeNoResults       Outcome = "no_results"
	OutcomeUpstreamFailure Outcome = "upstream_failure"
)

// Message is the line shown to a user for a terminal outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeInappropriate:
		return "The input query was deemed inappropriate. Process terminated."
	case OutcomeNoResults:
		return "No results found. Process terminated."
	case OutcomeUpstreamFailure:
		return "An upstream service failed. Process terminated."
	default:
		return ""
	}
}

// RunResult summarises one pipeline run.
type RunResult struct {
	RunID    string             `json:"run_id"`
	Query    string             `json:"query"`
	Language Language           `json:"language"`
	Outcome  Outcome            `json:"outcome"`
	Reason   string             `json:"reason,omitempty"`
	Queries  []SearchQuery      `json:"queries,omitempty"`
	URLs     []string           `json:"urls,omitempty"`
	Sources  []Source           `json:"sources,omitempty"`
	Answer   *SynthesizedAnswer `json:"answer,omitempty"`
	Elapsed  time.Duration      `json:"elapsed"`
}

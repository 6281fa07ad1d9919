package helpers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/aisearch/models"
)

// Citation is the printable form of one source an answer relied on.
type Citation struct {
	Index   int
	Title   string
	URL     string
	Kind    models.SourceKind
	Snippet string
	Fetched time.Time
}

type citationConfig struct {
	maxSnippet int
}

// CitationOption configures citation formatting.
type CitationOption func(*citationConfig)

// WithMaxSnippetLength truncates snippets to n bytes (default 160, 0 keeps the default).
func WithMaxSnippetLength(n int) CitationOption {
	return func(cfg *citationConfig) {
		if n > 0 {
			cfg.maxSnippet = n
		}
	}
}

// CitationsFor returns one citation per URL in used, numbered by the URL's position
// in sources. URLs that are not in sources are skipped.
func CitationsFor(sources []models.Source, used []string) []Citation {
	if len(used) == 0 {
		return nil
	}
	index := make(map[string]int, len(sources))
	for i, s := range sources {
		if _, dup := index[s.URL]; !dup {
			index[s.URL] = i
		}
	}
	out := make([]Citation, 0, len(used))
	for _, u := range used {
		i, ok := index[u]
		if !ok {
			continue
		}
		s := sources[i]
		out = append(out, Citation{
			Index:   i + 1,
			Title:   s.Title,
			URL:     s.URL,
			Kind:    s.Kind,
			Snippet: s.Body,
			Fetched: s.FetchedAt,
		})
	}
	return out
}

// FormatCitation renders a citation as:
// [n] Title — "Snippet" (domain, kind, retrieved YYYY-MM-DD) <URL>
func FormatCitation(c Citation, opts ...CitationOption) string {
	cfg := citationConfig{maxSnippet: 160}
	for _, opt := range opts {
		opt(&cfg)
	}

	parts := []string{"[" + strconv.Itoa(c.Index) + "]"}
	if title := strings.TrimSpace(c.Title); title != "" {
		parts = append(parts, title)
	}
	if snippet := formatSnippet(c.Snippet, cfg.maxSnippet); snippet != "" {
		parts = append(parts, "— "+snippet)
	}

	var meta []string
	if domain := extractDomain(c.URL); domain != "" {
		meta = append(meta, domain)
	}
	if c.Kind != "" {
		meta = append(meta, string(c.Kind))
	}
	if !c.Fetched.IsZero() {
		meta = append(meta, "retrieved "+c.Fetched.Format("2006-01-02"))
	}
	if len(meta) > 0 {
		parts = append(parts, "("+strings.Join(meta, ", ")+")")
	}
	if link := strings.TrimSpace(c.URL); link != "" {
		parts = append(parts, "<"+link+">")
	}
	return strings.Join(parts, " ")
}

// FormatCitations renders a collection of citations.
func FormatCitations(citations []Citation, opts ...CitationOption) []string {
	if len(citations) == 0 {
		return nil
	}
	out := make([]string, 0, len(citations))
	for _, c := range citations {
		out = append(out, FormatCitation(c, opts...))
	}
	return out
}

func formatSnippet(snippet string, limit int) string {
	snippet = strings.Join(strings.Fields(snippet), " ")
	if snippet == "" {
		return ""
	}
	if limit > 0 && len(snippet) > limit {
		snippet = TruncateUTF8(snippet, limit) + "…"
	}
	return `"` + snippet + `"`
}

func extractDomain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// TruncateUTF8 cuts s to at most n bytes without splitting a rune.
func TruncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// Package extract turns fetched content into normalized title and body text.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mohammad-safakhou/aisearch/config"
	"github.com/mohammad-safakhou/aisearch/internal/logger"
	aimodels "github.com/mohammad-safakhou/aisearch/models"
	"github.com/mohammad-safakhou/aisearch/tools/web_fetch/models"
	"go.uber.org/zap"
)

// Mode selects how HTML is flattened.
type Mode string

const (
	ModePlainText           Mode = "plain-text"
	ModeStructurePreserving Mode = "structure-preserving"
	ModeArticle             Mode = "article"
)

const untitled = "Untitled"

// Limits bounds extraction cost.
type Limits struct {
	HTMLMaxBytes  int
	PDFMaxBytes   int
	PDFMaxPages   int
	TitleMaxRunes int
}

// Document is the extracted form of one fetch result.
type Document struct {
	Title string
	Body  string
	Kind  aimodels.SourceKind
}

type Extractor struct {
	mode   Mode
	limits Limits
	log    *zap.Logger
}

// New builds an extractor from the extraction config section.
func New(cfg config.ExtractConfig, log *zap.Logger) *Extractor {
	return NewWithLimits(Mode(cfg.Mode), Limits{
		HTMLMaxBytes:  cfg.HTMLMaxBytes,
		PDFMaxBytes:   cfg.PDFMaxBytes,
		PDFMaxPages:   cfg.PDFMaxPages,
		TitleMaxRunes: cfg.TitleMaxRunes,
	}, log)
}

func NewWithLimits(mode Mode, limits Limits, log *zap.Logger) *Extractor {
	if mode == "" {
		mode = ModePlainText
	}
	if limits.HTMLMaxBytes <= 0 {
		limits.HTMLMaxBytes = 2 << 20
	}
	if limits.PDFMaxBytes <= 0 {
		limits.PDFMaxBytes = 20 << 20
	}
	if limits.PDFMaxPages <= 0 {
		limits.PDFMaxPages = 50
	}
	if limits.TitleMaxRunes <= 0 {
		limits.TitleMaxRunes = 100
	}
	return &Extractor{mode: mode, limits: limits, log: logger.OrNop(log).Named("extract")}
}

// Mode reports the configured HTML mode.
func (x *Extractor) Mode() Mode { return x.mode }

// Extract dispatches on the fetch kind. Content that yields no text is an
// error wrapping models.ErrExtraction.
func (x *Extractor) Extract(res models.Result) (Document, error) {
	if !res.Usable() {
		return Document{}, fmt.Errorf("%w: %s: no content", aimodels.ErrExtraction, res.URL)
	}
	var (
		doc Document
		err error
	)
	switch res.Kind {
	case models.KindPDF:
		doc, err = x.pdf(res.Raw)
		if err != nil && (res.Truncated || len(res.Raw) > x.limits.PDFMaxBytes) {
			x.log.Info("oversize pdf truncated and unreadable", zap.String("url", res.URL),
				zap.Int("bytes", len(res.Raw)), zap.Bool("fetch_truncated", res.Truncated), zap.Error(err))
		}
	case models.KindHTML:
		doc, err = x.html(res.URL, res.Raw)
	default:
		return Document{}, fmt.Errorf("%w: %s: unsupported kind %q", aimodels.ErrExtraction, res.URL, res.Kind)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", aimodels.ErrExtraction, res.URL, err)
	}
	if strings.TrimSpace(doc.Body) == "" {
		return Document{}, fmt.Errorf("%w: %s: empty body", aimodels.ErrExtraction, res.URL)
	}
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = untitled
	}
	return doc, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

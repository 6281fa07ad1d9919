package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	aimodels "github.com/mohammad-safakhou/aisearch/models"
	"go.uber.org/zap"
)

// pdf reads pages in order up to the page cap. The parser panics on some
// malformed documents; that is reported as an error.
func (x *Extractor) pdf(raw []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	if len(raw) > x.limits.PDFMaxBytes {
		x.log.Info("pdf truncated to size cap", zap.Int("bytes", len(raw)), zap.Int("max_bytes", x.limits.PDFMaxBytes))
		raw = raw[:x.limits.PDFMaxBytes]
	}
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}

	pages := r.NumPage()
	if pages > x.limits.PDFMaxPages {
		x.log.Info("pdf truncated to page cap", zap.Int("pages", pages), zap.Int("max_pages", x.limits.PDFMaxPages))
		pages = x.limits.PDFMaxPages
	}
	var (
		title string
		texts []string
	)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			x.log.Debug("skip unreadable pdf page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if title == "" {
			title = firstLine(text)
		}
		if t := collapse(text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return Document{}, errors.New("pdf has no extractable text")
	}
	if title == "" {
		title = untitled
	}
	return Document{
		Title: truncateRunes(title, x.limits.TitleMaxRunes),
		Body:  strings.Join(texts, " "),
		Kind:  aimodels.SourceKindPDF,
	}, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if l := collapse(line); l != "" {
			return l
		}
	}
	return ""
}

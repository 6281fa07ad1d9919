package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/aisearch/internal/logger"
	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/mohammad-safakhou/aisearch/tools/extract"
	fetchmodels "github.com/mohammad-safakhou/aisearch/tools/web_fetch/models"
	"go.uber.org/zap"
)

// Fetcher is the fetch engine seen by the assembler.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetchmodels.Result, error)
}

// Extractor turns a fetch result into text.
type Extractor interface {
	Extract(res fetchmodels.Result) (extract.Document, error)
}

// Assembler combines fetch and extraction into one Source per URL.
type Assembler struct {
	fetcher   Fetcher
	extractor Extractor
	now       func() time.Time
	log       *zap.Logger
}

func NewAssembler(f Fetcher, x Extractor, log *zap.Logger) *Assembler {
	return &Assembler{fetcher: f, extractor: x, now: time.Now, log: logger.OrNop(log).Named("pipeline")}
}

// Assemble returns the Source for url, or false when the URL must be omitted.
// Failures here never end a run.
func (a *Assembler) Assemble(ctx context.Context, url string) (*models.Source, bool) {
	res, err := a.fetcher.Fetch(ctx, url)
	if err != nil || res.Kind == fetchmodels.KindNone {
		a.log.Info("source omitted: fetch failed", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	doc, err := a.extractor.Extract(res)
	if err != nil {
		if errors.Is(err, models.ErrExtraction) {
			a.log.Debug("source omitted: nothing extracted", zap.String("url", url), zap.Error(err))
		} else {
			a.log.Warn("source omitted: extraction error", zap.String("url", url), zap.Error(err))
		}
		return nil, false
	}
	src := models.NewSource(url, doc.Kind, doc.Title, doc.Body, a.now())
	return &src, true
}

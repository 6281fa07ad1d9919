// Package web_search fans generated queries out to a search provider.
package web_search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/mohammad-safakhou/aisearch/config"
	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	"github.com/mohammad-safakhou/aisearch/internal/logger"
	aimodels "github.com/mohammad-safakhou/aisearch/models"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/brave"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/google"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/models"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/serper"
	"go.uber.org/zap"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	GoogleProvider Provider = "google"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

// NewWebSearcher builds the provider named in cfg. Missing credentials are
// reported as both a configuration error and an unavailable provider.
func NewWebSearcher(cfg config.SearchConfig) (WebSearcher, error) {
	client := helpers.NewHTTPClient(cfg.Timeout, cfg.MaxRetries, 0)
	missing := func(what string) error {
		return fmt.Errorf("%w: %w: %s is not set", aimodels.ErrProviderUnavailable, aimodels.ErrConfiguration, what)
	}
	switch Provider(cfg.Provider) {
	case GoogleProvider:
		if cfg.GoogleAPIKey == "" || cfg.SearchEngineID == "" {
			return nil, missing("google api key or search engine id")
		}
		return google.Search{ApiKey: cfg.GoogleAPIKey, SearchEngineID: cfg.SearchEngineID, Client: client}, nil
	case SerperProvider:
		if cfg.SerperAPIKey == "" {
			return nil, missing("serper api key")
		}
		return serper.Search{ApiKey: cfg.SerperAPIKey, Client: client}, nil
	case BraveProvider:
		if cfg.BraveAPIKey == "" {
			return nil, missing("brave api key")
		}
		return brave.Search{ApiKey: cfg.BraveAPIKey, Client: client}, nil
	default:
		return nil, fmt.Errorf("%w: %w %q", aimodels.ErrConfiguration, ErrUnsupportedProvider, cfg.Provider)
	}
}

// Broker runs every query against one provider and concatenates the URLs in
// query order. It does not deduplicate across queries.
type Broker struct {
	searcher WebSearcher
	log      *zap.Logger
}

func NewBroker(searcher WebSearcher, log *zap.Logger) *Broker {
	return &Broker{searcher: searcher, log: logger.OrNop(log).Named("search")}
}

// Search asks for up to perQueryLimit results per query. With excludeFileLike,
// direct file links are dropped before they count toward the limit.
func (b *Broker) Search(ctx context.Context, queries []aimodels.SearchQuery, perQueryLimit int, excludeFileLike bool) ([]string, error) {
	if b == nil || b.searcher == nil {
		return nil, fmt.Errorf("%w: %w: no search provider configured", aimodels.ErrProviderUnavailable, aimodels.ErrConfiguration)
	}
	if perQueryLimit <= 0 {
		perQueryLimit = 5
	}
	window := perQueryLimit
	if excludeFileLike {
		window = perQueryLimit * 2
	}

	var urls []string
	for _, q := range queries {
		results, err := b.searcher.Discover(ctx, q.Text, window)
		if err != nil {
			return nil, fmt.Errorf("%w: query %q: %v", aimodels.ErrProviderUnavailable, q.Text, err)
		}
		kept := 0
		for _, r := range results {
			if kept >= perQueryLimit {
				break
			}
			link := strings.TrimSpace(r.URL)
			if link == "" {
				continue
			}
			if excludeFileLike && IsFileLike(link) {
				b.log.Debug("skip file-like result", zap.String("url", link))
				continue
			}
			urls = append(urls, link)
			kept++
		}
		b.log.Info("query searched", zap.String("query", q.Text), zap.Int("results", len(results)), zap.Int("kept", kept))
	}
	return urls, nil
}

var fileExtensions = map[string]struct{}{
	".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".odt": {}, ".ods": {}, ".odp": {}, ".rtf": {}, ".csv": {},
	".zip": {}, ".rar": {}, ".7z": {}, ".gz": {}, ".tar": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".exe": {}, ".dmg": {}, ".apk": {},
}

// IsFileLike reports whether rawURL points straight at a document or binary file
// the fetch engine cannot read. PDF, plain text and XML are fetchable and never
// file-like.
func IsFileLike(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return false
	}
	_, ok := fileExtensions[ext]
	return ok
}

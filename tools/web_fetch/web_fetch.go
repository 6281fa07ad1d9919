// Package web_fetch retrieves raw page content through a two-tier escalation
// chain: a direct streaming HTTP GET, then a headless browser render.
package web_fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/aisearch/config"
	"github.com/mohammad-safakhou/aisearch/internal/logger"
	aimodels "github.com/mohammad-safakhou/aisearch/models"
	"github.com/mohammad-safakhou/aisearch/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/aisearch/tools/web_fetch/models"
	"github.com/mohammad-safakhou/aisearch/tools/web_fetch/rod"
	"github.com/temoto/robotstxt"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// ErrDisallowed is returned when crawl policy or robots.txt forbids a URL.
var ErrDisallowed = errors.New("fetch disallowed by crawl policy")

// Renderer is the headless-browser tier. Implementations must release their
// browser session on every return path.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type FetcherType string

const (
	ChromedpFetcherType FetcherType = "chromedp"
	RodFetcherType      FetcherType = "rod"
	NoFetcherType       FetcherType = "none"
)

// NewRenderer builds the browser tier named in cfg. Driver "none" returns nil,
// which disables escalation.
func NewRenderer(cfg config.BrowserConfig, userAgent string) (Renderer, error) {
	switch FetcherType(cfg.Driver) {
	case ChromedpFetcherType, "":
		return &chromedp.Fetch{RemoteURL: cfg.RemoteURL, Headless: cfg.Headless, Settle: cfg.SettleDelay, Timeout: cfg.Timeout, UserAgent: userAgent}, nil
	case RodFetcherType:
		return &rod.Fetch{RemoteURL: cfg.RemoteURL, Headless: cfg.Headless, Settle: cfg.SettleDelay, Timeout: cfg.Timeout}, nil
	case NoFetcherType:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unsupported browser driver %q", aimodels.ErrConfiguration, cfg.Driver)
	}
}

// Options bounds a fetch.
type Options struct {
	Timeout       time.Duration
	MaxSizeBytes  int64
	Retries       int
	Backoff       time.Duration
	UserAgent     string
	ForceBrowser  bool
	RespectRobots bool
	Policy        config.CrawlPolicyConfig
}

// OptionsFrom maps the fetch configuration section onto Options.
func OptionsFrom(cfg config.FetchConfig) Options {
	return Options{
		Timeout:       cfg.Timeout,
		MaxSizeBytes:  cfg.MaxSizeBytes,
		Retries:       cfg.Retries,
		Backoff:       cfg.Backoff,
		UserAgent:     cfg.UserAgent,
		RespectRobots: cfg.CrawlPolicy.RespectRobots,
		Policy:        cfg.CrawlPolicy,
	}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxSizeBytes <= 0 {
		o.MaxSizeBytes = 5 << 20
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = chromeUserAgent
	}
	return o
}

var (
	tracer = otel.Tracer("aisearch/tools/web_fetch")
	meter  = otel.Meter("aisearch/tools/web_fetch")

	fetchAttempts, _ = meter.Int64Counter("fetch_attempts_total",
		metric.WithDescription("Fetch tier attempts by tier and outcome"))
	fetchBytes, _ = meter.Int64Histogram("fetch_bytes",
		metric.WithDescription("Raw bytes returned per fetch"), metric.WithUnit("By"))
)

// Engine runs the fetch state machine. It is safe for concurrent use.
type Engine struct {
	opts     Options
	client   *http.Client
	renderer Renderer
	robots   *robotsCache
	log      *zap.Logger
}

// New creates an engine. renderer may be nil to disable browser escalation.
func New(opts Options, renderer Renderer, log *zap.Logger) *Engine {
	return &Engine{
		opts:     opts.withDefaults(),
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		renderer: renderer,
		robots:   &robotsCache{hosts: make(map[string]*robotstxt.RobotsData)},
		log:      logger.OrNop(log).Named("fetch"),
	}
}

// WithHTTPClient replaces the direct-tier client.
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	cp := *e
	cp.client = c
	return &cp
}

// Fetch returns the content of rawURL. A Result with KindNone is paired with an
// error wrapping models.ErrFetchUnavailable; callers drop the URL and continue.
func (e *Engine) Fetch(ctx context.Context, rawURL string) (models.Result, error) {
	ctx, span := tracer.Start(ctx, "fetch.url")
	defer span.End()
	span.SetAttributes(attribute.String("url", rawURL))

	start := time.Now()
	res := models.Result{URL: rawURL, Kind: models.KindNone}

	if !e.opts.Policy.Permits(rawURL) || (e.opts.RespectRobots && !e.allowedByRobots(ctx, rawURL)) {
		e.log.Info("fetch disallowed", zap.String("url", rawURL))
		return e.finish(res, start), fmt.Errorf("%w: %w: %s", aimodels.ErrFetchUnavailable, ErrDisallowed, rawURL)
	}

	var directErr error
	if !e.opts.ForceBrowser {
		res.Tiers = append(res.Tiers, models.TierDirect)
		dr, err := e.direct(ctx, rawURL)
		res.Status = dr.status
		directErr = err
		if err == nil {
			res.ContentType = dr.contentType
			res.Truncated = dr.truncated
			res.Kind = Detect(dr.contentType, dr.raw)
			res.Raw = dr.raw
			if res.Kind == models.KindHTML {
				res.Raw = transcode(dr.raw, dr.contentType)
			}
		}
		e.record(ctx, models.TierDirect, err == nil && res.Usable())
		if dr.truncated {
			e.log.Info("body truncated at size cap", zap.String("url", rawURL), zap.Int64("max_bytes", e.opts.MaxSizeBytes))
		}
	}

	// Escalate only when there is no usable content and the direct tier did not
	// already classify the document as PDF.
	if res.Kind != models.KindPDF && !res.Usable() {
		if e.renderer == nil {
			return e.finish(res, start), e.unavailable(rawURL, directErr, nil)
		}
		res.Tiers = append(res.Tiers, models.TierBrowser)
		html, err := e.renderer.Render(ctx, rawURL)
		ok := err == nil && strings.TrimSpace(html) != ""
		e.record(ctx, models.TierBrowser, ok)
		if !ok {
			res.Kind = models.KindNone
			res.Raw = nil
			return e.finish(res, start), e.unavailable(rawURL, directErr, err)
		}
		res.Kind = models.KindHTML
		res.Raw = []byte(html)
		res.ContentType = "text/html; charset=utf-8"
		res.Truncated = false
		if int64(len(res.Raw)) > e.opts.MaxSizeBytes {
			res.Raw = res.Raw[:e.opts.MaxSizeBytes]
			res.Truncated = true
		}
	}

	fetchBytes.Record(ctx, int64(len(res.Raw)), metric.WithAttributes(attribute.String("kind", string(res.Kind))))
	e.log.Debug("fetched", zap.String("url", rawURL), zap.String("kind", string(res.Kind)),
		zap.Int("bytes", len(res.Raw)), zap.Any("tiers", res.Tiers))
	return e.finish(res, start), nil
}

func (e *Engine) finish(res models.Result, start time.Time) models.Result {
	res.Elapsed = time.Since(start)
	return res
}

func (e *Engine) record(ctx context.Context, tier models.Tier, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	fetchAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", string(tier)),
		attribute.String("outcome", outcome),
	))
}

func (e *Engine) unavailable(rawURL string, directErr, browserErr error) error {
	e.log.Info("all fetch tiers failed", zap.String("url", rawURL),
		zap.NamedError("direct_error", directErr), zap.NamedError("browser_error", browserErr))
	cause := errors.Join(directErr, browserErr)
	if cause == nil {
		return fmt.Errorf("%w: %s: no usable content", aimodels.ErrFetchUnavailable, rawURL)
	}
	return fmt.Errorf("%w: %s: %v", aimodels.ErrFetchUnavailable, rawURL, cause)
}

// transcode converts HTML to UTF-8 using the declared or sniffed charset.
func transcode(raw []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return raw
	}
	return out
}

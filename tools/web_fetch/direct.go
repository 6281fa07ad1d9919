package web_fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	"go.uber.org/zap"
)

// ErrOversize is returned when a declared Content-Length exceeds the size cap.
var ErrOversize = errors.New("declared content length exceeds cap")

const chromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,application/pdf;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9,cs;q=0.8,sk;q=0.7",
	"Cache-Control":             "no-cache",
	"Pragma":                    "no-cache",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Sec-Ch-Ua":                 `"Chromium";v="126", "Google Chrome";v="126", "Not-A.Brand";v="99"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
}

type directResponse struct {
	raw         []byte
	contentType string
	status      int
	truncated   bool
	attempts    int
}

// direct performs the streaming GET with retry. Each attempt gets its own timeout.
func (e *Engine) direct(ctx context.Context, rawURL string) (directResponse, error) {
	var out directResponse
	op := func() error {
		out.attempts++
		res, err := e.directOnce(ctx, rawURL)
		out.status = res.status
		if err != nil {
			e.log.Debug("direct attempt failed", zap.String("url", rawURL), zap.Int("attempt", out.attempts), zap.Error(err))
			return err
		}
		out.raw, out.contentType, out.status, out.truncated = res.raw, res.contentType, res.status, res.truncated
		return nil
	}
	retries := e.opts.Retries - 1
	if retries < 0 {
		retries = 0
	}
	err := backoff.Retry(op, helpers.RetryPolicy(ctx, e.opts.Backoff, retries))
	return out, err
}

func (e *Engine) directOnce(ctx context.Context, rawURL string) (directResponse, error) {
	actx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, rawURL, nil)
	if err != nil {
		return directResponse{}, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", e.opts.UserAgent)
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return directResponse{}, backoff.Permanent(ctx.Err())
		}
		return directResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &helpers.StatusError{Status: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
		if helpers.Retriable(resp.StatusCode) {
			return directResponse{}, serr
		}
		return directResponse{status: resp.StatusCode}, backoff.Permanent(serr)
	}

	if resp.ContentLength > e.opts.MaxSizeBytes {
		return directResponse{status: resp.StatusCode}, backoff.Permanent(fmt.Errorf("%w: %s > %d", ErrOversize, strconv.FormatInt(resp.ContentLength, 10), e.opts.MaxSizeBytes))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.opts.MaxSizeBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return directResponse{}, backoff.Permanent(ctx.Err())
		}
		return directResponse{}, err
	}
	truncated := false
	if int64(len(raw)) > e.opts.MaxSizeBytes {
		raw = raw[:e.opts.MaxSizeBytes]
		truncated = true
	}
	return directResponse{
		raw:         raw,
		contentType: resp.Header.Get("Content-Type"),
		status:      resp.StatusCode,
		truncated:   truncated,
	}, nil
}

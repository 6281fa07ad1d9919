package web_fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const robotsMaxBytes = 512 << 10

// robotsCache keeps parsed robots.txt per host for the engine's lifetime.
type robotsCache struct {
	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

// allowedByRobots fetches and evaluates robots.txt for rawURL. Any failure to
// obtain the file allows the fetch, following robotstxt's status semantics.
func (e *Engine) allowedByRobots(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	key := u.Scheme + "://" + u.Host

	e.robots.mu.Lock()
	data, ok := e.robots.hosts[key]
	e.robots.mu.Unlock()
	if !ok {
		data = e.loadRobots(ctx, key)
		e.robots.mu.Lock()
		e.robots.hosts[key] = data
		e.robots.mu.Unlock()
	}
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, e.opts.UserAgent)
}

func (e *Engine) loadRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	actx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(actx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", e.opts.UserAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Debug("robots.txt unavailable", zap.String("origin", origin), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		e.log.Debug("robots.txt unparsable", zap.String("origin", origin), zap.Error(err))
		return nil
	}
	return data
}

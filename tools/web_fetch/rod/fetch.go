package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const closeTimeout = 5 * time.Second

// Fetch renders a page with go-rod, either in a locally launched Chrome or on a
// remote DevTools endpoint.
type Fetch struct {
	RemoteURL string
	Headless  bool
	Settle    time.Duration
	Timeout   time.Duration
}

func (f *Fetch) Render(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("invalid url")
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	controlURL, release, err := f.controlURL()
	if err != nil {
		return "", err
	}
	defer release()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("connect to chrome: %w", err)
	}
	if f.RemoteURL == "" {
		defer func() {
			_ = detached(closeTimeout, func(c context.Context) error { return browser.Context(c).Close() })
		}()
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	// The page is closed on a fresh context so a timed-out render still
	// releases its tab on a shared remote browser.
	defer func() {
		_ = detached(closeTimeout, func(c context.Context) error { return page.Context(c).Close() })
	}()

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}
	if f.Settle > 0 {
		select {
		case <-time.After(f.Settle):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return page.HTML()
}

// detached runs fn on a context that is independent of the request context and
// bounded by d.
func detached(d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return fn(ctx)
}

// controlURL resolves the DevTools endpoint. The returned release func kills a
// locally launched browser.
func (f *Fetch) controlURL() (string, func(), error) {
	if f.RemoteURL != "" {
		u, err := launcher.ResolveURL(f.RemoteURL)
		if err != nil {
			return "", nil, fmt.Errorf("resolve remote browser: %w", err)
		}
		return u, func() {}, nil
	}
	l := launcher.New().Headless(f.Headless)
	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return "", nil, fmt.Errorf("launch chrome: %w", err)
	}
	return u, func() {
		l.Kill()
		l.Cleanup()
	}, nil
}

package chromedp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Fetch renders a page in headless Chrome driven over the DevTools protocol.
// Each Render owns its own browser context, torn down by the deferred cancels.
type Fetch struct {
	RemoteURL string
	Headless  bool
	Settle    time.Duration
	Timeout   time.Duration
	UserAgent string
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

	actx, cancelAlloc := f.allocator(ctx)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if f.Settle > 0 {
		actions = append(actions, chromedp.Sleep(f.Settle))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(bctx, actions...); err != nil {
		return "", err
	}
	return html, nil
}

func (f *Fetch) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, f.RemoteURL)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	if f.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.UserAgent))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

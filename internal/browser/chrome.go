package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeLauncher launches headless Chrome processes through chromedp.
type ChromeLauncher struct{}

func NewChromeLauncher() *ChromeLauncher {
	return &ChromeLauncher{}
}

// AllocatorOptions translates Options into chromedp exec allocator flags.
func AllocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out, chromedp.Flag("headless", opts.Headless))
	if opts.UserAgent != "" {
		out = append(out, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.NoSandbox {
		out = append(out, chromedp.NoSandbox)
	}
	if opts.DisableDevShm {
		out = append(out, chromedp.Flag("disable-dev-shm-usage", true))
	}
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	return out
}

func (l *ChromeLauncher) Launch(ctx context.Context, opts Options) (Browser, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, AllocatorOptions(opts)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	b := &chromeBrowser{
		ctx:        tabCtx,
		navTimeout: opts.NavigationTimeout,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}

	// An empty Run starts the process and opens the first tab.
	if err := chromedp.Run(tabCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return b, nil
}

type chromeBrowser struct {
	ctx        context.Context
	navTimeout time.Duration
	cancel     func()
	closeOnce  sync.Once
}

// with binds the chromedp target of b to the deadline of ctx.
func (b *chromeBrowser) with(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(b.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// NavigationContext bounds a navigation by timeout. A zero timeout leaves
// ctx as is. Browser implementations own the navigation timeout; callers
// pass their plain context.
func NavigationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (b *chromeBrowser) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := b.with(ctx)
	defer cancel()
	runCtx, cancelNav := NavigationContext(runCtx, b.navTimeout)
	defer cancelNav()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (b *chromeBrowser) WaitReady(ctx context.Context, selector string) error {
	runCtx, cancel := b.with(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (b *chromeBrowser) Evaluate(ctx context.Context, script string, out any) error {
	runCtx, cancel := b.with(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Evaluate(script, out))
}

func (b *chromeBrowser) Cookies(ctx context.Context) ([]Cookie, error) {
	runCtx, cancel := b.with(ctx)
	defer cancel()

	var raw []*network.Cookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, convertCookie(c))
	}
	return cookies, nil
}

func (b *chromeBrowser) Close() error {
	b.closeOnce.Do(b.cancel)
	return nil
}

func convertCookie(c *network.Cookie) Cookie {
	out := Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		Session:  c.Session,
		SameSite: c.SameSite.String(),
	}
	// CDP reports -1 for session cookies.
	if !c.Session && c.Expires > 0 {
		out.Expires = time.Unix(0, int64(c.Expires*float64(time.Second))).UTC()
	}
	return out
}

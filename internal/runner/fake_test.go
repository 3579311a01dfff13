package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"browseq/internal/browser"
)

var errBoom = errors.New("boom")

type fakeBrowser struct {
	launcher *fakeLauncher
	opts     browser.Options

	navDelay   time.Duration
	navErr     error
	blockReady bool
	scrollErr  error
	cookieErr  error
	panicOnNav bool
	cookies    []browser.Cookie

	navigated      atomic.Value
	callerDeadline bool
	closes    atomic.Int32

	mu      sync.Mutex
	scripts []string
}

func (b *fakeBrowser) evaluated() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.scripts...)
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	if b.panicOnNav {
		panic("driver crashed")
	}
	b.navigated.Store(url)
	_, b.callerDeadline = ctx.Deadline()
	ctx, cancel := browser.NavigationContext(ctx, b.opts.NavigationTimeout)
	defer cancel()
	select {
	case <-time.After(b.navDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.navErr
}

func (b *fakeBrowser) WaitReady(ctx context.Context, selector string) error {
	if b.blockReady {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (b *fakeBrowser) Evaluate(ctx context.Context, script string, out any) error {
	b.mu.Lock()
	b.scripts = append(b.scripts, script)
	b.mu.Unlock()

	if script == "navigator.userAgent" {
		*out.(*string) = b.opts.UserAgent
		return nil
	}
	if b.scrollErr != nil {
		return b.scrollErr
	}
	*out.(*float64) = 640
	return nil
}

func (b *fakeBrowser) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	if b.cookieErr != nil {
		return nil, b.cookieErr
	}
	return b.cookies, nil
}

func (b *fakeBrowser) Close() error {
	if b.closes.Add(1) == 1 {
		b.launcher.active.Add(-1)
	}
	return nil
}

// fakeLauncher hands out a new fakeBrowser per session, configured by setup.
type fakeLauncher struct {
	launchErr error
	setup     func(b *fakeBrowser)

	mu       sync.Mutex
	browsers []*fakeBrowser

	active    atomic.Int32
	maxActive atomic.Int32
}

func (l *fakeLauncher) Launch(ctx context.Context, opts browser.Options) (browser.Browser, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}

	b := &fakeBrowser{
		launcher: l,
		opts:     opts,
		cookies: []browser.Cookie{
			{Name: "sid", Value: "abc", Domain: "example.test", Path: "/"},
			{Name: "visited", Value: "1", Domain: "example.test", Path: "/", Session: true},
		},
	}
	if l.setup != nil {
		l.setup(b)
	}

	n := l.active.Add(1)
	for {
		m := l.maxActive.Load()
		if n <= m || l.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

func (l *fakeLauncher) all() []*fakeBrowser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeBrowser(nil), l.browsers...)
}

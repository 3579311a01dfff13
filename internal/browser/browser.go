package browser

import (
	"context"
	"time"
)

// Defaults for a single session.
const (
	DefaultNavigationTimeout = 5 * time.Second
	DefaultReadyTimeout      = 3 * time.Second
	DefaultReadySelector     = "body"
)

// Options configures one disposable browser instance.
type Options struct {
	Headless          bool
	UserAgent         string
	NoSandbox         bool
	DisableDevShm     bool
	NavigationTimeout time.Duration

	// ExecPath overrides Chrome discovery when set.
	ExecPath string
}

// DefaultOptions returns the options every session starts from.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		NoSandbox:         true,
		DisableDevShm:     true,
		NavigationTimeout: DefaultNavigationTimeout,
	}
}

// Cookie is a cookie as reported by the browser.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	HTTPOnly bool      `json:"http_only"`
	Secure   bool      `json:"secure"`
	Session  bool      `json:"session"`
	SameSite string    `json:"same_site,omitempty"`
}

// Launcher starts browser instances.
type Launcher interface {
	Launch(ctx context.Context, opts Options) (Browser, error)
}

// Browser is a single running browser instance. Close must be safe to call
// more than once; only the first call tears the process down.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string, out any) error
	Cookies(ctx context.Context) ([]Cookie, error)
	Close() error
}

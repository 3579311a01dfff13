package runner

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"browseq/internal/browser"
)

// StatusOK is the status recorded for every successful session.
const StatusOK = 200

// Defaults for the dwell simulation.
const (
	DefaultDwellPause    = 500 * time.Millisecond
	DefaultDwellFraction = 0.5
)

// NoDwellPause disables the pause after scrolling. A zero DwellPause means
// DefaultDwellPause.
const NoDwellPause time.Duration = -1

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	URL         string `json:"url"`
	NumRequests int    `json:"num_requests"`
	Workers     int    `json:"workers"`

	// Headed shows the browser window. Sessions run headless by default.
	Headed        bool          `json:"headed,omitempty"`
	NavTimeout    time.Duration `json:"nav_timeout"`
	ReadyTimeout  time.Duration `json:"ready_timeout"`
	ReadySelector string        `json:"ready_selector"`
	DwellPause    time.Duration `json:"dwell_pause"`
	DwellFraction float64       `json:"dwell_fraction"`

	ExecPath  string `json:"exec_path,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	OutPrefix string `json:"out_prefix,omitempty"`
}

// DefaultConfig mirrors the CLI defaults.
func DefaultConfig() Config {
	return Config{
		NumRequests:   10,
		Workers:       5,
		NavTimeout:    browser.DefaultNavigationTimeout,
		ReadyTimeout:  browser.DefaultReadyTimeout,
		ReadySelector: browser.DefaultReadySelector,
		DwellPause:    DefaultDwellPause,
		DwellFraction: DefaultDwellFraction,
	}
}

// Validate checks cfg, fills in a scheme for bare hosts and replaces unset
// fields with their defaults. It is safe to call more than once.
func (c *Config) Validate() error {
	c.URL = strings.TrimSpace(c.URL)
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if !strings.Contains(c.URL, "://") {
		c.URL = "https://" + c.URL
	}
	// Template actions are not valid URL syntax, so only check plain URLs.
	if !strings.Contains(c.URL, "{{") {
		if _, err := url.ParseRequestURI(c.URL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.NumRequests < 0 {
		return fmt.Errorf("%w: session count must not be negative", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: need at least one worker", ErrInvalidConfig)
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = browser.DefaultNavigationTimeout
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = browser.DefaultReadyTimeout
	}
	if c.DwellPause == 0 {
		c.DwellPause = DefaultDwellPause
	} else if c.DwellPause < 0 {
		c.DwellPause = NoDwellPause
	}
	if c.ReadySelector == "" {
		c.ReadySelector = browser.DefaultReadySelector
	}
	if c.DwellFraction == 0 {
		c.DwellFraction = DefaultDwellFraction
	}
	if c.DwellFraction < 0 || c.DwellFraction > 1 {
		return fmt.Errorf("%w: dwell fraction must be within (0, 1]", ErrInvalidConfig)
	}
	return nil
}

// Pause is the time a session stays on the page after scrolling.
func (c Config) Pause() time.Duration {
	return max(c.DwellPause, 0)
}

// SessionResult is the record of one successful session.
type SessionResult struct {
	RequestID  int              `json:"request_id"`
	URL        string           `json:"url"`
	StartedAt  time.Time        `json:"started_at"`
	Status     int              `json:"status_code"`
	Duration   time.Duration    `json:"duration"`
	TimeOnPage time.Duration    `json:"time_on_page"`
	Cookies    []browser.Cookie `json:"cookies"`
	UserAgent  string           `json:"user_agent"`
}

// Outcome is the result of one session attempt: Result on success, Err on
// failure.
type Outcome struct {
	ID     int
	Result *SessionResult
	Err    error
}

func (o Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

// Summary aggregates the successful sessions of a run.
type Summary struct {
	Successful  int           `json:"successful_requests"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Report is everything a finished run produced.
type Report struct {
	Results   []SessionResult
	Summary   Summary
	Attempted int
	Failed    int
	Elapsed   time.Duration
}

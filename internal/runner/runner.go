package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"browseq/internal/browser"
	"browseq/internal/stats"
	"browseq/internal/useragent"
)

const tickInterval = 200 * time.Millisecond

// StatsSnapshot is sent over the channel
type StatsSnapshot struct {
	Total    int
	Started  uint64
	Success  uint64
	Fail     uint64
	Cookies  uint64
	Inflight int64
	ErrRate  float64 // percent of completed sessions that failed

	// Pre-calculated for the UI (cheap copy)
	AvgMs float64
	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs int64
}

// Completed is the number of sessions that reached an outcome.
func (s StatsSnapshot) Completed() uint64 {
	return s.Success + s.Fail
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot

// Runner drives browser sessions against the configured URL.
type Runner struct {
	Cfg      Config
	Stats    *stats.Stats
	Launcher browser.Launcher
	Agents   useragent.Source
	Log      zerolog.Logger

	// Event Channel
	Updates StatsUpdateChan

	url      *URLTemplate
	inflight atomic.Int64
}

// NewRunner validates cfg and prepares a runner. updates may be nil.
func NewRunner(cfg Config, launcher browser.Launcher, updates StatsUpdateChan) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tmpl, err := NewURLTemplate(cfg.URL)
	if err != nil {
		return nil, err
	}

	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}

	return &Runner{
		Cfg:      cfg,
		Stats:    stats.NewStats(),
		Launcher: launcher,
		Agents:   useragent.New(cfg.UserAgent),
		Log:      zerolog.Nop(),
		Updates:  updates,
		url:      tmpl,
	}, nil
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

func (r *Runner) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Total:    r.Cfg.NumRequests,
		Started:  r.Stats.Started.Load(),
		Success:  r.Stats.Success.Load(),
		Fail:     r.Stats.Fail.Load(),
		Cookies:  r.Stats.Cookies.Load(),
		Inflight: r.inflight.Load(),
		ErrRate:  r.Stats.ErrorRate(),
		AvgMs:    r.Stats.MeanDurationMs(),
		P50Ms:    r.Stats.DurationMs(50),
		P90Ms:    r.Stats.DurationMs(90),
		P99Ms:    r.Stats.DurationMs(99),
		MaxMs:    r.Stats.Duration.Max().Milliseconds(),
	}
}

func (r *Runner) sendUpdate() {
	// Non-blocking send
	select {
	case r.Updates <- r.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run submits every session to a pool of Cfg.Workers workers, waits for all
// of them and aggregates the successful ones. Cancelling ctx stops further
// submissions; sessions already running finish under their own timeouts.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	r.Log.Info().
		Str("url", r.Cfg.URL).
		Int("sessions", r.Cfg.NumRequests).
		Int("workers", r.Cfg.Workers).
		Msg("starting session test")

	tickCtx, stopTicks := context.WithCancel(ctx)
	r.StartTickLoop(tickCtx, tickInterval)

	sessionCtx := context.WithoutCancel(ctx)
	outcomes := make([]Outcome, r.Cfg.NumRequests)

	var g errgroup.Group
	g.SetLimit(r.Cfg.Workers)

	var skipped atomic.Int64
	submitted := 0
	for i := range outcomes {
		if ctx.Err() != nil {
			r.Log.Warn().
				Int("submitted", submitted).
				Int("skipped", len(outcomes)-submitted).
				Msg("run cancelled, remaining sessions not started")
			break
		}
		g.Go(func() error {
			// Go blocks until a worker frees up, so the run may have been
			// cancelled in the meantime.
			if err := ctx.Err(); err != nil {
				skipped.Add(1)
				outcomes[i] = Outcome{ID: i, Err: fmt.Errorf("session not started: %w", err)}
				return nil
			}
			outcomes[i] = r.RunSession(sessionCtx, i)
			return nil
		})
		submitted++
	}
	g.Wait()

	stopTicks()
	r.sendUpdate()

	if n := skipped.Load(); n > 0 {
		r.Log.Warn().Int64("skipped", n).Msg("run cancelled while waiting for a worker")
	}

	results := Collect(outcomes[:submitted])
	attempted := submitted - int(skipped.Load())
	report := Report{
		Results:   results,
		Attempted: attempted,
		Failed:    attempted - len(results),
		Elapsed:   time.Since(start),
	}

	summary, err := r.Aggregate(results)
	report.Summary = summary
	return report, err
}

// Collect keeps the results of successful outcomes, in outcome order.
func Collect(outcomes []Outcome) []SessionResult {
	results := make([]SessionResult, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			results = append(results, *o.Result)
		}
	}
	return results
}

// RunSession performs one complete browser session. Failures are logged and
// returned in the Outcome; they never propagate as panics.
func (r *Runner) RunSession(ctx context.Context, id int) Outcome {
	r.Stats.Started.Add(1)
	r.inflight.Add(1)
	defer r.inflight.Add(-1)

	res, err := r.session(ctx, id)
	if err != nil {
		r.Stats.AddFailure()
		r.Log.Error().Int("request_id", id).Err(err).Msg("session failed")
		return Outcome{ID: id, Err: err}
	}

	r.Stats.AddSuccess(res.Duration, len(res.Cookies))
	r.Log.Info().
		Int("request_id", id).
		Str("duration", fmt.Sprintf("%.2fs", res.Duration.Seconds())).
		Int("cookies", len(res.Cookies)).
		Msg("session complete")
	return Outcome{ID: id, Result: res}
}

func (r *Runner) browserOptions() browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = !r.Cfg.Headed
	opts.UserAgent = r.Agents.Random()
	opts.NavigationTimeout = r.Cfg.NavTimeout
	opts.ExecPath = r.Cfg.ExecPath
	return opts
}

func (r *Runner) session(ctx context.Context, id int) (res *SessionResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("session panicked: %v", p)
		}
	}()

	target, err := r.url.Render(id)
	if err != nil {
		return nil, fmt.Errorf("render url: %w", err)
	}

	b, err := r.Launcher.Launch(ctx, r.browserOptions())
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			r.Log.Warn().Int("request_id", id).Err(cerr).Msg("browser close failed")
		}
	}()

	startedAt := time.Now()

	// The browser applies Options.NavigationTimeout itself.
	if err := b.Navigate(ctx, target); err != nil {
		return nil, err
	}

	readyCtx, cancel := context.WithTimeout(ctx, r.Cfg.ReadyTimeout)
	err = b.WaitReady(readyCtx, r.Cfg.ReadySelector)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("page not ready: %w", err)
	}

	timeOnPage := r.dwell(ctx, b, id)

	cookies, err := b.Cookies(ctx)
	if err != nil {
		return nil, err
	}

	var ua string
	if err := b.Evaluate(ctx, "navigator.userAgent", &ua); err != nil {
		return nil, fmt.Errorf("read user agent: %w", err)
	}

	return &SessionResult{
		RequestID:  id,
		URL:        target,
		StartedAt:  startedAt,
		Status:     StatusOK,
		Duration:   time.Since(startedAt),
		TimeOnPage: timeOnPage,
		Cookies:    cookies,
		UserAgent:  ua,
	}, nil
}

// dwell scrolls part way down the page and pauses. A failed scroll is logged
// and counts as no time on page; it does not fail the session.
func (r *Runner) dwell(ctx context.Context, b browser.Browser, id int) time.Duration {
	script := fmt.Sprintf(
		"window.scrollTo(0, document.body.scrollHeight * %g); window.scrollY",
		r.Cfg.DwellFraction,
	)
	var scrollY float64
	if err := b.Evaluate(ctx, script, &scrollY); err != nil {
		r.Log.Error().Int("request_id", id).Err(err).Msg("dwell scroll failed")
		return 0
	}
	pause := r.Cfg.Pause()
	time.Sleep(pause)
	return pause
}

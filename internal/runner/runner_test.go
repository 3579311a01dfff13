package runner_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browseq/internal/runner"
)

func testConfig() runner.Config {
	cfg := runner.DefaultConfig()
	cfg.URL = "http://example.test"
	cfg.NumRequests = 3
	cfg.Workers = 2
	cfg.UserAgent = "browseq-test/1.0"
	cfg.DwellPause = 10 * time.Millisecond
	return cfg
}

func newRunner(t *testing.T, cfg runner.Config, l *fakeLauncher) *runner.Runner {
	t.Helper()
	r, err := runner.NewRunner(cfg, l, nil)
	require.NoError(t, err)
	return r
}

func assertClosedOnce(t *testing.T, l *fakeLauncher) {
	t.Helper()
	for i, b := range l.all() {
		assert.Equal(t, int32(1), b.closes.Load(), "browser %d close count", i)
	}
	assert.Zero(t, l.active.Load(), "browsers still open")
}

func TestRunSession_Success(t *testing.T) {
	l := &fakeLauncher{}
	r := newRunner(t, testConfig(), l)

	out := r.RunSession(context.Background(), 7)

	require.True(t, out.OK())
	require.NoError(t, out.Err)
	res := out.Result
	assert.Equal(t, 7, res.RequestID)
	assert.Equal(t, runner.StatusOK, res.Status)
	assert.Equal(t, "http://example.test", res.URL)
	assert.Equal(t, "browseq-test/1.0", res.UserAgent)
	assert.Equal(t, 10*time.Millisecond, res.TimeOnPage)
	assert.GreaterOrEqual(t, res.Duration, 10*time.Millisecond)
	require.Len(t, res.Cookies, 2)
	assert.Equal(t, "sid", res.Cookies[0].Name)

	require.Len(t, l.all(), 1)
	b := l.all()[0]
	assert.True(t, b.opts.Headless)
	assert.True(t, b.opts.NoSandbox)
	assert.True(t, b.opts.DisableDevShm)
	assert.Equal(t, 5*time.Second, b.opts.NavigationTimeout)
	assertClosedOnce(t, l)

	assert.Equal(t, uint64(1), r.Stats.Success.Load())
	assert.Zero(t, r.Snapshot().Inflight)
}

func TestRunSession_MinimalConfigUsesDefaults(t *testing.T) {
	l := &fakeLauncher{}
	r := newRunner(t, runner.Config{URL: "http://example.test", NumRequests: 1, Workers: 1}, l)

	out := r.RunSession(context.Background(), 0)

	require.True(t, out.OK())
	assert.Equal(t, runner.DefaultDwellPause, out.Result.TimeOnPage)
	assert.Equal(t, runner.DefaultDwellFraction, r.Cfg.DwellFraction)

	b := l.all()[0]
	assert.True(t, b.opts.Headless)
	assert.Equal(t, 5*time.Second, b.opts.NavigationTimeout)
	require.NotEmpty(t, b.evaluated())
	assert.Contains(t, b.evaluated()[0], "scrollHeight * 0.5")
}

func TestRunSession_Headed(t *testing.T) {
	l := &fakeLauncher{}
	cfg := testConfig()
	cfg.Headed = true
	r := newRunner(t, cfg, l)

	require.True(t, r.RunSession(context.Background(), 0).OK())
	assert.False(t, l.all()[0].opts.Headless)
}

func TestRunSession_DwellScroll(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
		want     string
	}{
		{name: "midpoint by default", want: "window.scrollTo(0, document.body.scrollHeight * 0.5)"},
		{name: "quarter", fraction: 0.25, want: "window.scrollTo(0, document.body.scrollHeight * 0.25)"},
		{name: "bottom", fraction: 1, want: "window.scrollTo(0, document.body.scrollHeight * 1)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := &fakeLauncher{}
			cfg := testConfig()
			cfg.DwellFraction = tc.fraction
			r := newRunner(t, cfg, l)

			require.True(t, r.RunSession(context.Background(), 0).OK())

			scripts := l.all()[0].evaluated()
			require.Len(t, scripts, 2)
			assert.Contains(t, scripts[0], tc.want)
			assert.Equal(t, "navigator.userAgent", scripts[1])
		})
	}
}

func TestRunSession_NoDwellPause(t *testing.T) {
	cfg := testConfig()
	cfg.DwellPause = runner.NoDwellPause
	r := newRunner(t, cfg, &fakeLauncher{})

	out := r.RunSession(context.Background(), 0)
	require.True(t, out.OK())
	assert.Zero(t, out.Result.TimeOnPage)
}

func TestRunSession_NavigateFailureReleasesBrowserOnce(t *testing.T) {
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.navErr = errBoom }}
	r := newRunner(t, testConfig(), l)

	out := r.RunSession(context.Background(), 1)

	assert.False(t, out.OK())
	assert.Nil(t, out.Result)
	assert.ErrorIs(t, out.Err, errBoom)
	require.Len(t, l.all(), 1)
	assertClosedOnce(t, l)
	assert.Equal(t, uint64(1), r.Stats.Fail.Load())
}

func TestRunSession_LaunchFailure(t *testing.T) {
	l := &fakeLauncher{launchErr: errBoom}
	r := newRunner(t, testConfig(), l)

	out := r.RunSession(context.Background(), 1)

	assert.False(t, out.OK())
	assert.ErrorIs(t, out.Err, errBoom)
	assert.Empty(t, l.all())
}

func TestRunSession_ReadyTimeoutIsFailure(t *testing.T) {
	cfg := testConfig()
	cfg.ReadyTimeout = 50 * time.Millisecond
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.blockReady = true }}
	r := newRunner(t, cfg, l)

	start := time.Now()
	out := r.RunSession(context.Background(), 1)

	assert.False(t, out.OK())
	assert.Nil(t, out.Result)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assertClosedOnce(t, l)
}

func TestRunSession_NavigationTimeoutIsFailure(t *testing.T) {
	cfg := testConfig()
	cfg.NavTimeout = 50 * time.Millisecond
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.navDelay = time.Second }}
	r := newRunner(t, cfg, l)

	out := r.RunSession(context.Background(), 1)

	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	b := l.all()[0]
	assert.Equal(t, 50*time.Millisecond, b.opts.NavigationTimeout)
	assert.False(t, b.callerDeadline, "navigation timeout is applied by the browser only")
	assertClosedOnce(t, l)
}

func TestRunSession_DwellFailureKeepsSession(t *testing.T) {
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.scrollErr = errBoom }}
	r := newRunner(t, testConfig(), l)

	out := r.RunSession(context.Background(), 1)

	require.True(t, out.OK())
	assert.Zero(t, out.Result.TimeOnPage)
	assertClosedOnce(t, l)
}

func TestRunSession_CookieFailure(t *testing.T) {
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.cookieErr = errBoom }}
	r := newRunner(t, testConfig(), l)

	out := r.RunSession(context.Background(), 1)

	assert.ErrorIs(t, out.Err, errBoom)
	assertClosedOnce(t, l)
}

func TestRunSession_PanicIsContained(t *testing.T) {
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.panicOnNav = true }}
	r := newRunner(t, testConfig(), l)

	var out runner.Outcome
	require.NotPanics(t, func() { out = r.RunSession(context.Background(), 1) })
	assert.False(t, out.OK())
	assertClosedOnce(t, l)
}

func TestRunSession_TemplatedURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://example.test/?visit={{sessionID}}"
	l := &fakeLauncher{}
	r := newRunner(t, cfg, l)

	out := r.RunSession(context.Background(), 12)

	require.True(t, out.OK())
	assert.Equal(t, "http://example.test/?visit=12", out.Result.URL)
	assert.Equal(t, "http://example.test/?visit=12", l.all()[0].navigated.Load())
}

func TestRun_AllSessionsSucceed(t *testing.T) {
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.navDelay = 200 * time.Millisecond }}
	r := newRunner(t, testConfig(), l)

	report, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.Successful)
	assert.InDelta(t, 0.2, report.Summary.AvgDuration.Seconds(), 0.1)
	assert.Equal(t, 3, report.Attempted)
	assert.Zero(t, report.Failed)
	require.Len(t, report.Results, 3)
	for i, res := range report.Results {
		assert.Equal(t, i, res.RequestID, "results joined in submission order")
	}

	assert.LessOrEqual(t, l.maxActive.Load(), int32(2))
	assertClosedOnce(t, l)
}

func TestRun_AllSessionsFail(t *testing.T) {
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.navErr = errBoom }}
	r := newRunner(t, testConfig(), l)

	report, err := r.Run(context.Background())

	assert.ErrorIs(t, err, runner.ErrNoResults)
	assert.Empty(t, report.Results)
	assert.Equal(t, runner.Summary{}, report.Summary)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 100.0, r.Snapshot().ErrRate)
	assertClosedOnce(t, l)
}

func TestRun_RecordsNeverExceedRequests(t *testing.T) {
	for _, tc := range []struct{ n, w int }{{0, 1}, {1, 1}, {5, 1}, {5, 3}, {8, 8}, {4, 10}} {
		t.Run(fmt.Sprintf("n=%d,w=%d", tc.n, tc.w), func(t *testing.T) {
			cfg := testConfig()
			cfg.NumRequests = tc.n
			cfg.Workers = tc.w
			cfg.DwellPause = runner.NoDwellPause
			l := &fakeLauncher{setup: func(b *fakeBrowser) {
				if rand.IntN(2) == 0 {
					b.navErr = errBoom
				}
			}}
			r := newRunner(t, cfg, l)

			report, err := r.Run(context.Background())

			assert.LessOrEqual(t, len(report.Results), tc.n)
			assert.Equal(t, tc.n, report.Attempted)
			assert.Equal(t, tc.n, len(report.Results)+report.Failed)
			if len(report.Results) == 0 {
				assert.ErrorIs(t, err, runner.ErrNoResults)
			} else {
				assert.NoError(t, err)
			}
			assert.LessOrEqual(t, l.maxActive.Load(), int32(tc.w))
			assertClosedOnce(t, l)
		})
	}
}

func TestRun_CancelledContextStartsNothing(t *testing.T) {
	l := &fakeLauncher{}
	r := newRunner(t, testConfig(), l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := r.Run(ctx)

	assert.ErrorIs(t, err, runner.ErrNoResults)
	assert.Zero(t, report.Attempted)
	assert.Empty(t, l.all())
}

func TestRun_CancelWhileWaitingForWorker(t *testing.T) {
	l := &fakeLauncher{setup: func(b *fakeBrowser) { b.navDelay = 150 * time.Millisecond }}
	cfg := testConfig()
	cfg.Workers = 1
	r := newRunner(t, cfg, l)

	ctx, cancel := context.WithCancel(context.Background())
	// The first session is running and the second is queued behind it.
	time.AfterFunc(50*time.Millisecond, cancel)
	report, err := r.Run(ctx)

	require.NoError(t, err)
	assert.Len(t, l.all(), 1)
	assert.Equal(t, 1, report.Attempted)
	assert.Zero(t, report.Failed)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, uint64(1), r.Stats.Started.Load())
	assertClosedOnce(t, l)
}

func TestRun_PublishesFinalSnapshot(t *testing.T) {
	updates := make(runner.StatsUpdateChan, 100)
	r, err := runner.NewRunner(testConfig(), &fakeLauncher{}, updates)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.NoError(t, err)

	var last runner.StatsSnapshot
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, 3, last.Total)
	assert.Equal(t, uint64(3), last.Success)
	assert.Equal(t, uint64(3), last.Completed())
	assert.Zero(t, last.Inflight)
	assert.Zero(t, last.ErrRate)
	assert.Equal(t, uint64(6), last.Cookies)
}

func TestCollect_SkipsFailuresAndUnsubmitted(t *testing.T) {
	outcomes := []runner.Outcome{
		{ID: 0, Result: &runner.SessionResult{RequestID: 0}},
		{ID: 1, Err: errBoom},
		{},
		{ID: 3, Result: &runner.SessionResult{RequestID: 3}},
	}

	got := runner.Collect(outcomes)

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].RequestID)
	assert.Equal(t, 3, got[1].RequestID)
}

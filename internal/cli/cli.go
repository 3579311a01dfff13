package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"browseq/internal/browser"
	"browseq/internal/report"
	"browseq/internal/runner"
	"browseq/internal/storage"
)

// Options carries the collaborators of a headless run.
type Options struct {
	Launcher browser.Launcher
	Log      zerolog.Logger

	// Out receives the progress line and summary. Defaults to stdout.
	Out io.Writer

	// History, when set, records the run.
	History *storage.Store
}

type runDone struct {
	report runner.Report
	err    error
}

// Start runs a session test without the TUI. It returns an error only when
// the run cannot start; a run without successful sessions is logged and
// reported in the summary.
func Start(ctx context.Context, cfg runner.Config, opts Options) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	updates := make(runner.StatsUpdateChan, 100)
	r, err := runner.NewRunner(cfg, opts.Launcher, updates)
	if err != nil {
		return err
	}
	r.Log = opts.Log

	printHeader(out, r.Cfg)

	done := make(chan runDone, 1)
	go func() {
		rep, err := r.Run(ctx)
		done <- runDone{report: rep, err: err}
	}()

	startTime := time.Now()
	for {
		select {
		case s := <-updates:
			printProgress(out, s, time.Since(startTime))
		case res := <-done:
			printProgress(out, r.Snapshot(), time.Since(startTime))
			printSummary(out, res.report, r.Snapshot())
			handleAutoReport(out, opts.Log, r.Cfg, res.report)
			recordHistory(opts, r, res.report)
			if res.err != nil && !errors.Is(res.err, runner.ErrNoResults) {
				return res.err
			}
			return nil
		}
	}
}

func printHeader(w io.Writer, cfg runner.Config) {
	fmt.Fprintf(w, "\n🚀 STARTING BROWSEQ SESSION TEST\n")
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Target URL : %s\n", cfg.URL)
	fmt.Fprintf(w, "Sessions   : %d\n", cfg.NumRequests)
	fmt.Fprintf(w, "Workers    : %d\n", cfg.Workers)
	fmt.Fprintf(w, "Headless   : %t\n", !cfg.Headed)
	fmt.Fprintf(w, "Timeouts   : %s (navigation) / %s (ready %q)\n", cfg.NavTimeout, cfg.ReadyTimeout, cfg.ReadySelector)
	fmt.Fprintf(w, "Dwell      : %s\n", cfg.Pause())
	fmt.Fprintf(w, "======================================================================\n\n")
}

func printProgress(w io.Writer, s runner.StatsSnapshot, elapsed time.Duration) {
	pct := 1.0
	if s.Total > 0 {
		pct = float64(s.Completed()) / float64(s.Total)
	}
	fmt.Fprintf(w, "\r%s %3.0f%% | %d/%d | %s | Inf: %2d | OK: %d | Err: %d | Avg: %.0fms",
		progressBar(pct, 20), pct*100,
		s.Completed(), s.Total,
		elapsed.Round(time.Second),
		s.Inflight,
		s.Success,
		s.Fail,
		s.AvgMs,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(w io.Writer, rep runner.Report, s runner.StatsSnapshot) {
	fmt.Fprintf(w, "\n\n📊 SESSION TEST RESULTS\n")
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Total Duration : %s\n", rep.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Sessions Run   : %d\n", rep.Attempted)
	fmt.Fprintf(w, "Failures       : %d\n", rep.Failed)

	if rep.Summary.Successful == 0 {
		fmt.Fprintf(w, "\n❌ %s\n", runner.ErrNoResults)
		fmt.Fprintf(w, "======================================================================\n")
		return
	}

	fmt.Fprintf(w, "Successful     : %d\n", rep.Summary.Successful)
	fmt.Fprintf(w, "Avg Duration   : %.2fs\n", rep.Summary.AvgDuration.Seconds())
	fmt.Fprintf(w, "Cookies Seen   : %d\n", s.Cookies)
	fmt.Fprintf(w, "======================================================================\n")
}

func handleAutoReport(w io.Writer, log zerolog.Logger, cfg runner.Config, rep runner.Report) {
	if cfg.OutPrefix == "" || len(rep.Results) == 0 {
		return
	}

	fmt.Fprintf(w, "\n💾 Generating reports with prefix: %s\n", cfg.OutPrefix)
	if err := report.ExportAll(cfg, rep, cfg.OutPrefix); err != nil {
		log.Error().Err(err).Str("prefix", cfg.OutPrefix).Msg("report export failed")
		return
	}
	fmt.Fprintf(w, "✅ Reports saved to %s.{csv,json,_summary.json}\n", cfg.OutPrefix)
}

func recordHistory(opts Options, r *runner.Runner, rep runner.Report) {
	if opts.History == nil {
		return
	}
	item := storage.NewHistoryItem(storage.NewID(), r.Cfg, rep, r.Stats.DurationMs(90))
	if err := opts.History.Save(item); err != nil {
		opts.Log.Error().Err(err).Msg("saving run history failed")
		return
	}
	opts.Log.Info().Str("id", item.ID).Str("path", opts.History.Path()).Msg("run recorded")
}

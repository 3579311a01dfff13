package storage

import (
	"time"

	"browseq/internal/runner"
)

// HistoryItem is one recorded run.
type HistoryItem struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Config    runner.Config `json:"config"`
	Summary   RunSummary    `json:"summary"`
}

type RunSummary struct {
	TotalRequests int     `json:"total_requests"`
	Success       int     `json:"success"`
	Fail          int     `json:"fail"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	P90DurationMs float64 `json:"p90_duration_ms"`
	ElapsedMs     int64   `json:"elapsed_ms"`
}

// NewHistoryItem builds the record for a finished run. p90Ms comes from the
// live histogram and is informational only.
func NewHistoryItem(id string, cfg runner.Config, rep runner.Report, p90Ms float64) HistoryItem {
	return HistoryItem{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Config:    cfg,
		Summary: RunSummary{
			TotalRequests: rep.Attempted,
			Success:       rep.Summary.Successful,
			Fail:          rep.Failed,
			AvgDurationMs: float64(rep.Summary.AvgDuration.Microseconds()) / 1000.0,
			P90DurationMs: p90Ms,
			ElapsedMs:     rep.Elapsed.Milliseconds(),
		},
	}
}

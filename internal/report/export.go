// Package report writes session results to disk.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"browseq/internal/runner"
)

// CSVHeader is the column layout of ExportCSV.
var CSVHeader = []string{
	"requestId", "timeStamp", "url", "responseCode", "duration",
	"timeOnPage", "cookies", "cookieNames", "userAgent",
}

// ExportCSV writes one row per successful session. Durations are seconds.
func ExportCSV(results []runner.SessionResult, filename string) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, results); err != nil {
		return err
	}
	return os.WriteFile(filename, buf.Bytes(), 0644)
}

// WriteCSV encodes results in the ExportCSV layout.
func WriteCSV(out io.Writer, results []runner.SessionResult) error {
	w := csv.NewWriter(out)

	if err := w.Write(CSVHeader); err != nil {
		return err
	}

	for _, res := range results {
		names := make([]string, len(res.Cookies))
		for i, c := range res.Cookies {
			names[i] = c.Name
		}

		record := []string{
			strconv.Itoa(res.RequestID),
			strconv.FormatInt(res.StartedAt.UnixMilli(), 10),
			res.URL,
			strconv.Itoa(res.Status),
			seconds(res.Duration),
			seconds(res.TimeOnPage),
			strconv.Itoa(len(res.Cookies)),
			strings.Join(names, ";"),
			res.UserAgent,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// sessionJSON is the exported shape of a SessionResult, with durations in
// seconds.
type sessionJSON struct {
	runner.SessionResult
	Duration   float64 `json:"duration"`
	TimeOnPage float64 `json:"time_on_page"`
}

// ExportJSON writes every result as an indented JSON array.
func ExportJSON(results []runner.SessionResult, filename string) error {
	out := make([]sessionJSON, len(results))
	for i, r := range results {
		out[i] = sessionJSON{
			SessionResult: r,
			Duration:      r.Duration.Seconds(),
			TimeOnPage:    r.TimeOnPage.Seconds(),
		}
	}
	return writeJSON(filename, out)
}

// SummaryFile is the document written by ExportSummary.
type SummaryFile struct {
	URL                string    `json:"url"`
	GeneratedAt        time.Time `json:"generated_at"`
	TotalRequests      int       `json:"total_requests"`
	SuccessfulRequests int       `json:"successful_requests"`
	FailedRequests     int       `json:"failed_requests"`
	AvgDuration        float64   `json:"avg_duration"`
	ElapsedSeconds     float64   `json:"elapsed_seconds"`
}

// ExportSummary writes the aggregate of rep to <prefix>_summary.json.
func ExportSummary(cfg runner.Config, rep runner.Report, prefix string) error {
	return writeJSON(prefix+"_summary.json", SummaryFile{
		URL:                cfg.URL,
		GeneratedAt:        time.Now().UTC(),
		TotalRequests:      rep.Attempted,
		SuccessfulRequests: rep.Summary.Successful,
		FailedRequests:     rep.Failed,
		AvgDuration:        rep.Summary.AvgDuration.Seconds(),
		ElapsedSeconds:     rep.Elapsed.Seconds(),
	})
}

// ExportAll writes <prefix>.csv, <prefix>.json and <prefix>_summary.json.
func ExportAll(cfg runner.Config, rep runner.Report, prefix string) error {
	if err := ExportCSV(rep.Results, prefix+".csv"); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	if err := ExportJSON(rep.Results, prefix+".json"); err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	if err := ExportSummary(cfg, rep, prefix); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	return nil
}

func writeJSON(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

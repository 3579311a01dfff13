package runner

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoResults = errors.New("no results to analyze")

// Aggregate counts results and averages their durations.
func Aggregate(results []SessionResult) (Summary, error) {
	if len(results) == 0 {
		return Summary{}, ErrNoResults
	}

	var total time.Duration
	for _, r := range results {
		total += r.Duration
	}

	return Summary{
		Successful:  len(results),
		AvgDuration: total / time.Duration(len(results)),
	}, nil
}

// Aggregate logs the summary of results, or an error when there are none.
func (r *Runner) Aggregate(results []SessionResult) (Summary, error) {
	s, err := Aggregate(results)
	if err != nil {
		r.Log.Error().Err(err).Msg("nothing to aggregate")
		return s, err
	}

	r.Log.Info().
		Int("successful_requests", s.Successful).
		Str("avg_duration", fmt.Sprintf("%.2fs", s.AvgDuration.Seconds())).
		Msg("test results")
	return s, nil
}

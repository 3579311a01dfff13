package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds live counters for a running test. Only successful sessions
// feed the duration histogram.
type Stats struct {
	Started atomic.Uint64
	Success atomic.Uint64
	Fail    atomic.Uint64
	Cookies atomic.Uint64

	Duration *SafeHistogram
}

func NewStats() *Stats {
	return &Stats{
		Duration: NewSafeHistogram(),
	}
}

// AddSuccess records a finished session.
func (s *Stats) AddSuccess(d time.Duration, cookies int) {
	s.Success.Add(1)
	s.Cookies.Add(uint64(cookies))
	s.Duration.Record(d)
}

func (s *Stats) AddFailure() {
	s.Fail.Add(1)
}

// Completed is the number of sessions that reached an outcome.
func (s *Stats) Completed() uint64 {
	return s.Success.Load() + s.Fail.Load()
}

func (s *Stats) ErrorRate() float64 {
	done := s.Completed()
	if done == 0 {
		return 0
	}
	return (float64(s.Fail.Load()) / float64(done)) * 100
}

// DurationMs returns the q-th percentile session duration in milliseconds.
func (s *Stats) DurationMs(q float64) float64 {
	return float64(s.Duration.Quantile(q).Microseconds()) / 1000.0
}

func (s *Stats) MeanDurationMs() float64 {
	return float64(s.Duration.Mean().Microseconds()) / 1000.0
}

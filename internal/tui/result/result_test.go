package result

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"browseq/internal/runner"
)

func TestView_Summary(t *testing.T) {
	m := NewModel(runner.Report{
		Summary:   runner.Summary{Successful: 3, AvgDuration: 1250 * time.Millisecond},
		Attempted: 4,
		Failed:    1,
	}, nil)
	m.Note = "Reports saved"

	v := m.View()
	assert.Contains(t, v, "Sessions run: 4")
	assert.Contains(t, v, "1.25s")
	assert.Contains(t, v, "Reports saved")
}

func TestView_NoResults(t *testing.T) {
	v := NewModel(runner.Report{Attempted: 2, Failed: 2}, runner.ErrNoResults).View()
	assert.Contains(t, v, "no results to analyze")
}

func TestView_OtherError(t *testing.T) {
	v := NewModel(runner.Report{}, errors.New("exploded")).View()
	assert.Contains(t, v, "exploded")
}

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browseq/internal/runner"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveGet(t *testing.T) {
	s := newTestStore(t)

	cfg := runner.DefaultConfig()
	cfg.URL = "http://example.test"
	rep := runner.Report{
		Summary:   runner.Summary{Successful: 2, AvgDuration: 1500 * time.Millisecond},
		Attempted: 3,
		Failed:    1,
		Elapsed:   2 * time.Second,
	}
	item := NewHistoryItem(NewID(), cfg, rep, 1700)
	require.NoError(t, s.Save(item))

	got, err := s.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test", got.Config.URL)
	assert.Equal(t, 5, got.Config.Workers)
	assert.Equal(t, 3, got.Summary.TotalRequests)
	assert.Equal(t, 2, got.Summary.Success)
	assert.Equal(t, 1, got.Summary.Fail)
	assert.Equal(t, 1500.0, got.Summary.AvgDurationMs)
	assert.Equal(t, int64(2000), got.Summary.ElapsedMs)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		item := HistoryItem{ID: NewID(), Timestamp: time.Now()}
		ids = append(ids, item.ID)
		require.NoError(t, s.Save(item))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, item := range all {
		assert.Equal(t, ids[len(ids)-1-i], item.ID)
	}

	top, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, ids[4], top[0].ID)
}

func TestStore_SaveAssignsID(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(HistoryItem{}))

	items, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(HistoryItem{ID: NewID()}))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	items, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperdl/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.CatalogConfig{Path: filepath.Join(t.TempDir(), "nested", "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(category, year, title string, outcome types.Outcome, bytes int64, err error) types.Result {
	return types.Result{
		Entry: types.Entry{
			Category: category,
			Year:     year,
			Title:    title,
			URL:      "https://example.org/" + title,
		},
		Path:    filepath.Join("downloads", category, year, title+".pdf"),
		Outcome: outcome,
		Bytes:   bytes,
		Err:     err,
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(types.CatalogConfig{})
	require.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(types.CatalogConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), "", result("A", "2020", "x", types.OutcomeSucceeded, 1, nil)))
	require.NoError(t, s.Close())

	s, err = Open(types.CatalogConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.BeginRun(ctx, "run-1", "papers.md", started))

	require.NoError(t, s.Record(ctx, "run-1", result("Sim", "2025", "B", types.OutcomeSucceeded, 100, nil)))
	require.NoError(t, s.Record(ctx, "run-1", result("Sim", "2024", "A", types.OutcomeFailed, 0, errors.New("HTTP 404 from x"))))
	require.NoError(t, s.Record(ctx, "run-1", result("Policy", "2023", "C", types.OutcomeSkipped, 0, nil)))

	rows, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{rows[0].Title, rows[1].Title, rows[2].Title})

	failed, err := s.List(ctx, Filter{Outcome: types.OutcomeFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "HTTP 404 from x", failed[0].Error)
	assert.Equal(t, "run-1", failed[0].RunID)
	assert.Equal(t, "https://example.org/A", failed[0].URL)
	assert.False(t, failed[0].UpdatedAt.IsZero())

	sim, err := s.List(ctx, Filter{Category: "Sim", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, sim, 1)

	require.NoError(t, s.EndRun(ctx, "run-1", RunCounts{Succeeded: 1, Skipped: 1, Failed: 1}, started.Add(time.Minute)))
}

func TestRecord_UpsertKeepsBytesOnSkip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Record(ctx, "r1", result("Sim", "2025", "B", types.OutcomeFailed, 0, errors.New("timeout"))))
	require.NoError(t, s.Record(ctx, "r2", result("Sim", "2025", "B", types.OutcomeSucceeded, 4096, nil)))
	require.NoError(t, s.Record(ctx, "r3", result("Sim", "2025", "B", types.OutcomeSkipped, 0, nil)))

	rows, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, types.OutcomeSkipped, rows[0].Outcome)
	assert.EqualValues(t, 4096, rows[0].Bytes)
	assert.Empty(t, rows[0].Error)
	assert.Equal(t, "r3", rows[0].RunID)
}

func TestEndRun_Unknown(t *testing.T) {
	s := openTestStore(t)
	err := s.EndRun(context.Background(), "missing", RunCounts{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecorder(t *testing.T) {
	s := openTestStore(t)
	rec := s.Recorder("run-x", nil)

	r := result("Sim", "2025", "B", types.OutcomeSucceeded, 10, nil)
	rec.Started(r.Entry, r.Path)
	rec.Progress(r.Entry, 10, 10)
	rec.Finished(r)

	rows, err := s.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "run-x", rows[0].RunID)
	assert.Equal(t, r.Path, rows[0].Path)
}

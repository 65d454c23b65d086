package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intentgate/internal/db"
	"intentgate/internal/domain"
	"intentgate/internal/testutil"
)

func TestElevation_CreateAndGet(t *testing.T) {
	repo := NewSQLiteElevationRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	event := testutil.NewTestElevation(testutil.WithElevationReason("parser conflict"))
	require.NoError(t, repo.Create(ctx, event))

	got, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "parser conflict", got.Reason)
	assert.Equal(t, domain.ElevationPending, got.Status)
	assert.Equal(t, "find_experts", got.CanonicalIntent.Action, "the triggering intent rides along for re-entry")
	assert.Nil(t, got.ApproverID)
	assert.Nil(t, got.ResolvedAt)
	assert.False(t, got.Terminal())
}

func TestElevation_ContentRefsRoundtrip(t *testing.T) {
	repo := NewSQLiteElevationRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	event := testutil.NewTestElevation()
	event.ContentRefs = []string{"doc_123", "report_q2"}
	require.NoError(t, repo.Create(ctx, event))

	got, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_123", "report_q2"}, got.ContentRefs,
		"refs ride along so an approval resumes with the full original input")

	bare := testutil.NewTestElevation()
	require.NoError(t, repo.Create(ctx, bare))
	got, err = repo.GetByID(ctx, bare.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ContentRefs)
}

func TestElevation_GetByIDNotFound(t *testing.T) {
	repo := NewSQLiteElevationRepo(testutil.NewTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestElevation_ListPendingOldestFirst(t *testing.T) {
	repo := NewSQLiteElevationRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	second := testutil.NewTestElevation(testutil.WithElevationCreatedAt(base.Add(time.Minute)))
	first := testutil.NewTestElevation(testutil.WithElevationCreatedAt(base))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	resolved := testutil.NewTestElevation(testutil.WithElevationCreatedAt(base.Add(-time.Hour)))
	require.NoError(t, repo.Create(ctx, resolved))
	_, err := repo.Resolve(ctx, resolved.ID, "reviewer_1", domain.ElevationRejected, nil)
	require.NoError(t, err)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2, "resolved events drop out of the queue")
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")
	assert.Equal(t, second.ID, pending[1].ID)
}

func TestElevation_ResolveOnce(t *testing.T) {
	repo := NewSQLiteElevationRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	event := testutil.NewTestElevation()
	require.NoError(t, repo.Create(ctx, event))

	notes := "budget overage acceptable for this engagement"
	resolved, err := repo.Resolve(ctx, event.ID, "reviewer_1", domain.ElevationApproved, &notes)
	require.NoError(t, err)
	assert.Equal(t, domain.ElevationApproved, resolved.Status)
	require.NotNil(t, resolved.ApproverID)
	assert.Equal(t, "reviewer_1", *resolved.ApproverID)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.Notes)
	assert.Equal(t, notes, *resolved.Notes)
	assert.True(t, resolved.Terminal())
}

func TestElevation_SecondResolveFailsAndRecordUnchanged(t *testing.T) {
	repo := NewSQLiteElevationRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	event := testutil.NewTestElevation()
	require.NoError(t, repo.Create(ctx, event))

	_, err := repo.Resolve(ctx, event.ID, "reviewer_1", domain.ElevationApproved, nil)
	require.NoError(t, err)

	_, err = repo.Resolve(ctx, event.ID, "reviewer_2", domain.ElevationRejected, nil)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	got, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ElevationApproved, got.Status, "the first resolution stands")
	require.NotNil(t, got.ApproverID)
	assert.Equal(t, "reviewer_1", *got.ApproverID)
}

// newFileTestDB creates a file-backed database: unlike :memory:, it shares
// state across every connection in the pool. A single open connection keeps
// SQLite from returning busy errors under write contention; the exactly-once
// guarantee under test comes from the status guard, not from serialization.
func newFileTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(filepath.Join(t.TempDir(), "elevation_test.db"))
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestElevation_ConcurrentResolveExactlyOneWins(t *testing.T) {
	repo := NewSQLiteElevationRepo(newFileTestDB(t))
	ctx := context.Background()

	event := testutil.NewTestElevation()
	require.NoError(t, repo.Create(ctx, event))

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = repo.Resolve(ctx, event.ID, "reviewer", domain.ElevationApproved, nil)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyResolved)
		}
	}
	assert.Equal(t, 1, wins, "compare-and-transition admits exactly one winner")
}

func TestElevation_ResolveMissingIsNotFound(t *testing.T) {
	repo := NewSQLiteElevationRepo(testutil.NewTestDB(t))

	_, err := repo.Resolve(context.Background(), "missing", "reviewer", domain.ElevationApproved, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestElevation_ResolveRequiresTerminalStatus(t *testing.T) {
	repo := NewSQLiteElevationRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	event := testutil.NewTestElevation()
	require.NoError(t, repo.Create(ctx, event))

	_, err := repo.Resolve(ctx, event.ID, "reviewer", domain.ElevationPending, nil)
	assert.Error(t, err)
}

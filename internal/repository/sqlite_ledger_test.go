package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intentgate/internal/domain"
	"intentgate/internal/testutil"
)

func TestLedger_AppendAndGetByID(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	score := 0.0
	entry := testutil.NewTestEntry(
		testutil.WithVotingResult(&domain.VotingResult{
			AgreementLevel:  domain.AgreementHighConfidence,
			CanonicalIntent: *testutil.NewTestIntent(),
			MinSimilarity:   1.0,
			AvgSimilarity:   1.0,
		}),
		testutil.WithComparisonResult(&domain.ComparisonResult{
			Decision:    domain.DecisionApproved,
			Explanation: "intent approved: all policy checks passed",
		}),
	)
	entry.MaliciousScore = &score

	id, err := repo.Append(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entry.UserID, got.UserID)
	assert.Equal(t, entry.UserInputHash, got.UserInputHash)
	require.NotNil(t, got.VotingResult)
	assert.Equal(t, domain.AgreementHighConfidence, got.VotingResult.AgreementLevel)
	assert.Equal(t, "find_experts", got.VotingResult.CanonicalIntent.Action)
	require.NotNil(t, got.ComparisonResult)
	assert.True(t, got.ComparisonResult.IsApproved())
	assert.Nil(t, got.TrustedIntent)
	assert.Nil(t, got.ProcessingOutput)
	assert.False(t, got.MaliciousBlocked)
}

func TestLedger_GetByIDNotFound(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_RawUpdateAndDeleteRejected(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteLedgerRepo(database)
	ctx := context.Background()

	entry := testutil.NewTestEntry()
	id, err := repo.Append(ctx, entry)
	require.NoError(t, err)

	// Bypass the repository entirely: the triggers must still reject.
	_, err = database.ExecContext(ctx, `UPDATE ledger_entries SET user_input = 'tampered' WHERE id = ?`, id)
	require.Error(t, err)
	assert.ErrorIs(t, mapSQLiteError(err), ErrAppendOnly)

	_, err = database.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	require.Error(t, err)
	assert.ErrorIs(t, mapSQLiteError(err), ErrAppendOnly)

	// The record is unchanged after both attempts.
	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entry.UserInput, got.UserInput)
}

func TestLedger_ListByUserNewestFirstPaginated(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		e := testutil.NewTestEntry(
			testutil.WithUser("alice"),
			testutil.WithTimestamp(base.Add(time.Duration(i)*time.Minute)),
		)
		_, err := repo.Append(ctx, e)
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	_, err := repo.Append(ctx, testutil.NewTestEntry(testutil.WithUser("bob"), testutil.WithTimestamp(base)))
	require.NoError(t, err)

	page, err := repo.ListByUser(ctx, "alice", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID, "newest first")
	assert.Equal(t, ids[3], page[1].ID)

	page, err = repo.ListByUser(ctx, "alice", 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
}

func TestLedger_ListBySessionOldestFirst(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		e := testutil.NewTestEntry(
			testutil.WithSession("sess_42"),
			testutil.WithTimestamp(base.Add(time.Duration(i)*time.Second)),
		)
		_, err := repo.Append(ctx, e)
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	entries, err := repo.ListBySession(ctx, "sess_42")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ids[0], entries[0].ID, "oldest first")
	assert.Equal(t, ids[2], entries[2].ID)
}

func TestLedger_ListByTimeRange(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		e := testutil.NewTestEntry(testutil.WithTimestamp(base.Add(time.Duration(i) * time.Hour)))
		_, err := repo.Append(ctx, e)
		require.NoError(t, err)
	}

	from := base.Add(time.Hour)
	to := base.Add(3 * time.Hour)
	entries, err := repo.ListByTimeRange(ctx, LedgerFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "from is inclusive, to is exclusive")
}

func TestLedger_ListBlocked(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	_, err := repo.Append(ctx, testutil.NewTestEntry())
	require.NoError(t, err)
	blocked := testutil.NewTestEntry(testutil.WithBlocked(1.0))
	_, err = repo.Append(ctx, blocked)
	require.NoError(t, err)

	entries, err := repo.ListBlocked(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, blocked.ID, entries[0].ID)
	assert.True(t, entries[0].MaliciousBlocked)
	require.NotNil(t, entries[0].MaliciousScore)
	assert.Equal(t, 1.0, *entries[0].MaliciousScore)
}

func TestLedger_ListWithElevation(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	_, err := repo.Append(ctx, testutil.NewTestEntry())
	require.NoError(t, err)
	elevated := testutil.NewTestEntry(testutil.WithElevation(testutil.NewTestElevation()))
	_, err = repo.Append(ctx, elevated)
	require.NoError(t, err)

	entries, err := repo.ListWithElevation(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, elevated.ID, entries[0].ID)
	require.NotNil(t, entries[0].ElevationEvent)
	assert.Equal(t, domain.ElevationPending, entries[0].ElevationEvent.Status)
}

func TestLedger_Stats(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	_, err := repo.Append(ctx, testutil.NewTestEntry(
		testutil.WithUser("alice"), testutil.WithSession("s1"), testutil.WithTimestamp(base)))
	require.NoError(t, err)
	_, err = repo.Append(ctx, testutil.NewTestEntry(
		testutil.WithUser("alice"), testutil.WithSession("s2"),
		testutil.WithTimestamp(base.Add(time.Hour)), testutil.WithBlocked(0.9)))
	require.NoError(t, err)
	_, err = repo.Append(ctx, testutil.NewTestEntry(
		testutil.WithUser("bob"), testutil.WithSession("s3"),
		testutil.WithTimestamp(base.Add(2*time.Hour)),
		testutil.WithElevation(testutil.NewTestElevation())))
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalEntries)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.BlockedEntries)
	assert.Equal(t, int64(1), stats.ElevationEvents)
	require.NotNil(t, stats.OldestEntry)
	require.NotNil(t, stats.NewestEntry)
	assert.True(t, stats.OldestEntry.Equal(base))
	assert.True(t, stats.NewestEntry.Equal(base.Add(2*time.Hour)))
}

func TestLedger_StatsEmpty(t *testing.T) {
	repo := NewSQLiteLedgerRepo(testutil.NewTestDB(t))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
	assert.Nil(t, stats.OldestEntry)
	assert.Nil(t, stats.NewestEntry)
}

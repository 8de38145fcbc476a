// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"fmt"
	"testing"
	"time"

	"github.com/propline/propline/models"
	"github.com/propline/propline/repository"
	testingutil "github.com/propline/propline/testing"
	"github.com/propline/propline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withTestDB provisions a throwaway database or skips the test when no
// PostgreSQL server is reachable.
func withTestDB(t *testing.T) *testingutil.TestDB {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("skipping: test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = testDB.TeardownTestDB()
	})
	return testDB
}

func TestBatchRecipientRepository(t *testing.T) {
	testDB := withTestDB(t)
	repo := repository.NewBatchRecipientRepository(testDB.DB)
	ctx := testingutil.CreateTestContext()

	t.Run("AppendAssignsMonotonicPositions", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		for i := 0; i < 5; i++ {
			r := &models.BatchRecipient{Email: fmt.Sprintf("user%d@example.com", i)}
			require.NoError(t, repo.Append(ctx, r))
		}

		rows, err := repo.ListBatch(ctx, 1, 500)
		require.NoError(t, err)
		require.Len(t, rows, 5)
		for i := 1; i < len(rows); i++ {
			assert.Equal(t, rows[i-1].Position+1, rows[i].Position)
		}
	})

	t.Run("ListBatchPartitionsByPosition", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		fixtures := testingutil.NewTestFixtures(testDB)
		_, err := fixtures.CreateTestBatchRecipients(12)
		require.NoError(t, err)

		first, err := repo.ListBatch(ctx, 1, 5)
		require.NoError(t, err)
		second, err := repo.ListBatch(ctx, 2, 5)
		require.NoError(t, err)
		third, err := repo.ListBatch(ctx, 3, 5)
		require.NoError(t, err)
		fourth, err := repo.ListBatch(ctx, 4, 5)
		require.NoError(t, err)

		assert.Len(t, first, 5)
		assert.Len(t, second, 5)
		assert.Len(t, third, 2)
		assert.Empty(t, fourth)

		// No overlap between consecutive batches
		assert.Greater(t, second[0].Position, first[len(first)-1].Position)
		assert.Greater(t, third[0].Position, second[len(second)-1].Position)
	})

	t.Run("RemoveCompactsPositions", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		fixtures := testingutil.NewTestFixtures(testDB)
		rows, err := fixtures.CreateTestBatchRecipients(6)
		require.NoError(t, err)

		// Remove the third row; rows four through six shift down by one
		require.NoError(t, repo.Remove(ctx, rows[2].ID))

		remaining, err := repo.ListBatch(ctx, 1, 500)
		require.NoError(t, err)
		require.Len(t, remaining, 5)
		for i := 1; i < len(remaining); i++ {
			assert.Equal(t, remaining[i-1].Position+1, remaining[i].Position,
				"positions must stay contiguous after removal")
		}

		total, err := repo.Total(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
	})

	t.Run("RemoveUnknownRow", func(t *testing.T) {
		err := repo.Remove(ctx, 999999)
		assert.ErrorIs(t, err, repository.ErrBatchRecipientNotFound)
	})

	t.Run("UpdateKeepsPosition", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		fixtures := testingutil.NewTestFixtures(testDB)
		rows, err := fixtures.CreateTestBatchRecipients(2)
		require.NoError(t, err)

		rows[0].Email = "changed@example.com"
		require.NoError(t, repo.Update(ctx, rows[0]))

		reloaded, err := repo.ByID(ctx, rows[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "changed@example.com", reloaded.Email)
		assert.Equal(t, rows[0].Position, reloaded.Position)
	})

	t.Run("RemoveCompactsAfterUpdate", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		fixtures := testingutil.NewTestFixtures(testDB)
		rows, err := fixtures.CreateTestBatchRecipients(4)
		require.NoError(t, err)

		// Rewriting a row relocates its tuple so the compaction update
		// no longer visits rows in position order
		rows[1].Email = "moved@example.com"
		require.NoError(t, repo.Update(ctx, rows[1]))

		require.NoError(t, repo.Remove(ctx, rows[0].ID))

		remaining, err := repo.ListBatch(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, remaining, 3)
		for i, row := range remaining {
			assert.Equal(t, rows[1+i].ID, row.ID)
			assert.Equal(t, int64(i+1), row.Position)
		}
	})
}

func TestRotationStateRepository(t *testing.T) {
	testDB := withTestDB(t)
	stateRepo := repository.NewRotationStateRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	t.Run("GetReturnsNilWhenUnseeded", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		state, err := stateRepo.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("AdvanceAppliesTransition", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		nextRunAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		state, err := fixtures.SeedRotation(1, nextRunAt)
		require.NoError(t, err)

		newNextRunAt := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
		advanced, err := stateRepo.Advance(ctx, state.ID, nextRunAt, 2, newNextRunAt)
		require.NoError(t, err)
		assert.True(t, advanced)

		reloaded, err := stateRepo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.CurrentCycle)
		assert.True(t, newNextRunAt.Equal(reloaded.NextRunAt.UTC()))
	})

	t.Run("AdvanceRejectsStaleRead", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		nextRunAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		state, err := fixtures.SeedRotation(1, nextRunAt)
		require.NoError(t, err)

		// First trigger wins
		advanced, err := stateRepo.Advance(ctx, state.ID, nextRunAt, 2, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.True(t, advanced)

		// Second trigger carries the pre-advance NextRunAt and must lose
		advanced, err = stateRepo.Advance(ctx, state.ID, nextRunAt, 2, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, advanced)

		reloaded, err := stateRepo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.CurrentCycle)
	})
}

func TestRotationConfigRepository(t *testing.T) {
	testDB := withTestDB(t)
	configRepo := repository.NewRotationConfigRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	require.NoError(t, testDB.ClearAllTables())
	_, err := fixtures.SeedRotation(1, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	t.Run("ListAllOrderedByCycle", func(t *testing.T) {
		rows, err := configRepo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, models.DefaultCycleOneDay, rows[0].DayOfMonth)
		assert.Equal(t, models.DefaultCycleTwoDay, rows[1].DayOfMonth)
		assert.Equal(t, models.DefaultCycleThreeDay, rows[2].DayOfMonth)
	})

	t.Run("UpdateSchedule", func(t *testing.T) {
		desc := "moved to the 20th"
		require.NoError(t, configRepo.UpdateSchedule(ctx, 2, 20, &desc))

		row, err := configRepo.ByCycleNumber(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, 20, row.DayOfMonth)
		require.NotNil(t, row.Description)
		assert.Equal(t, desc, *row.Description)
	})

	t.Run("ByCycleNumberUnknown", func(t *testing.T) {
		row, err := configRepo.ByCycleNumber(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, row)
	})
}

func TestEmailRecipientRepository(t *testing.T) {
	testDB := withTestDB(t)
	repo := repository.NewEmailRecipientRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	t.Run("ListActiveExcludesDeactivated", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		recipients, err := fixtures.CreateTestRecipients(4)
		require.NoError(t, err)

		recipients[0].IsActive = utils.ToPtr(false)
		require.NoError(t, repo.Update(ctx, recipients[0]))

		active, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 3)
		for _, r := range active {
			assert.True(t, utils.IsTrue(r.IsActive))
		}
	})

	t.Run("ByEmail", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())

		recipients, err := fixtures.CreateTestRecipients(1)
		require.NoError(t, err)

		found, err := repo.ByEmail(ctx, recipients[0].Email)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, recipients[0].ID, found.ID)

		missing, err := repo.ByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestCycleRunRepository(t *testing.T) {
	testDB := withTestDB(t)
	repo := repository.NewCycleRunRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	require.NoError(t, testDB.ClearAllTables())

	_, err := fixtures.CreateTestCycleRun(1, string(models.CycleRunStatusSent), 40)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCycleRun(2, string(models.CycleRunStatusFailed), 40)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCycleRun(2, string(models.CycleRunStatusSent), 42)
	require.NoError(t, err)

	t.Run("ListRecent", func(t *testing.T) {
		runs, err := repo.ListRecent(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, runs, 3)
	})

	t.Run("LastByCycle", func(t *testing.T) {
		run, err := repo.LastByCycle(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, models.CycleRunStatusSent, run.Status)
		assert.Equal(t, 42, run.RecipientCount)
	})
}

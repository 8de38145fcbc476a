package tests

import (
	"testing"
	"time"

	"github.com/propline/propline/app/dto"
	"github.com/propline/propline/app/services"
	businessflow "github.com/propline/propline/business_flow"
	"github.com/propline/propline/models"
	"github.com/propline/propline/repository"
	testingutil "github.com/propline/propline/testing"
	"github.com/propline/propline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rotationHarness struct {
	flow      businessflow.RotationFlow
	provider  *services.MockMailProvider
	stateRepo repository.RotationStateRepository
	runRepo   repository.CycleRunRepository
	fixtures  *testingutil.TestFixtures
}

func newRotationHarness(t *testing.T, testDB *testingutil.TestDB, chunkSize int) *rotationHarness {
	t.Helper()

	provider := services.NewMockMailProvider()
	sender := services.NewChunkedSender(provider, "listings@propline.ir", chunkSize, 0)

	renderer, err := services.NewListingRenderer()
	require.NoError(t, err)

	stateRepo := repository.NewRotationStateRepository(testDB.DB)
	runRepo := repository.NewCycleRunRepository(testDB.DB)

	flow := businessflow.NewRotationFlow(
		repository.NewRotationConfigRepository(testDB.DB),
		stateRepo,
		runRepo,
		repository.NewEmailRecipientRepository(testDB.DB),
		repository.NewListingRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		sender,
		renderer,
		testDB.DB,
		nil,
		time.Minute,
		nil,
	)

	return &rotationHarness{
		flow:      flow,
		provider:  provider,
		stateRepo: stateRepo,
		runRepo:   runRepo,
		fixtures:  testingutil.NewTestFixtures(testDB),
	}
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "test-agent")
}

func pastRunAt() time.Time {
	return utils.UTCNow().Add(-time.Hour).Truncate(time.Second)
}

func futureRunAt() time.Time {
	return utils.UTCNow().Add(48 * time.Hour).Truncate(time.Second)
}

func TestRotationFlowEnsureSeeded(t *testing.T) {
	testDB := withTestDB(t)
	h := newRotationHarness(t, testDB, 50)
	ctx := testingutil.CreateTestContext()

	require.NoError(t, h.flow.EnsureSeeded(ctx))

	state, err := h.stateRepo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 1, state.CurrentCycle)
	assert.True(t, state.NextRunAt.After(utils.UTCNow().Add(-time.Minute)))

	schedule, err := h.flow.GetSchedule(ctx)
	require.NoError(t, err)
	require.Len(t, schedule, 3)
	assert.Equal(t, models.DefaultCycleOneDay, schedule[0].DayOfMonth)
	assert.Equal(t, models.DefaultCycleTwoDay, schedule[1].DayOfMonth)
	assert.Equal(t, models.DefaultCycleThreeDay, schedule[2].DayOfMonth)

	// Seeding again must not duplicate rows
	require.NoError(t, h.flow.EnsureSeeded(ctx))
	schedule, err = h.flow.GetSchedule(ctx)
	require.NoError(t, err)
	assert.Len(t, schedule, 3)
}

func TestRotationFlowTriggerNotDue(t *testing.T) {
	testDB := withTestDB(t)
	h := newRotationHarness(t, testDB, 50)
	ctx := testingutil.CreateTestContext()

	nextRunAt := futureRunAt()
	_, err := h.fixtures.SeedRotation(2, nextRunAt)
	require.NoError(t, err)
	_, err = h.fixtures.CreateTestRecipients(3)
	require.NoError(t, err)

	// Trigger twice; neither attempt may send or mutate anything
	for i := 0; i < 2; i++ {
		outcome, err := h.flow.Trigger(ctx, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, outcome.Skipped)
		assert.Nil(t, outcome.Sent)
		assert.Equal(t, 2, outcome.Skipped.CurrentCycle)
		assert.True(t, nextRunAt.Equal(outcome.Skipped.NextRunAt.UTC()))
	}

	assert.Empty(t, h.provider.Requests)

	runs, err := h.runRepo.ListRecent(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	state, err := h.stateRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentCycle)
}

func TestRotationFlowTriggerDistributesAndAdvances(t *testing.T) {
	testDB := withTestDB(t)
	h := newRotationHarness(t, testDB, 2)
	ctx := testingutil.CreateTestContext()

	scheduledFor := pastRunAt()
	_, err := h.fixtures.SeedRotation(1, scheduledFor)
	require.NoError(t, err)
	_, err = h.fixtures.CreateTestRecipients(5)
	require.NoError(t, err)
	_, err = h.fixtures.CreateTestListings(1, 2)
	require.NoError(t, err)

	outcome, err := h.flow.Trigger(ctx, testMetadata())
	require.NoError(t, err)
	require.NotNil(t, outcome.Sent)
	assert.Nil(t, outcome.Skipped)

	assert.Equal(t, 1, outcome.Sent.CycleNumber)
	assert.Equal(t, 5, outcome.Sent.RecipientCount)
	assert.Equal(t, 5, outcome.Sent.SentCount)
	assert.Equal(t, 0, outcome.Sent.FailedCount)
	assert.Equal(t, 2, outcome.Sent.NextCycle)
	assert.True(t, outcome.Sent.NextRunAt.After(utils.UTCNow()))

	// 5 recipients in chunks of 2 means 3 provider calls, all BCC
	require.Len(t, h.provider.Requests, 3)
	assert.Equal(t, 5, h.provider.SentTotal())
	for _, req := range h.provider.Requests {
		assert.Equal(t, "listings@propline.ir", req.To)
		assert.NotEmpty(t, req.Subject)
		assert.NotEmpty(t, req.HTML)
	}

	state, err := h.stateRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentCycle)

	runs, err := h.runRepo.ListRecent(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.CycleRunStatusSent, runs[0].Status)
	assert.Equal(t, 1, runs[0].CycleNumber)
	assert.Equal(t, 5, runs[0].SentCount)
	assert.True(t, scheduledFor.Equal(runs[0].ScheduledFor.UTC()))
}

func TestRotationFlowTriggerCompleteFailureRetries(t *testing.T) {
	testDB := withTestDB(t)
	h := newRotationHarness(t, testDB, 50)
	ctx := testingutil.CreateTestContext()

	scheduledFor := pastRunAt()
	_, err := h.fixtures.SeedRotation(1, scheduledFor)
	require.NoError(t, err)
	recipients, err := h.fixtures.CreateTestRecipients(3)
	require.NoError(t, err)
	_, err = h.fixtures.CreateTestListings(1, 1)
	require.NoError(t, err)

	// Every chunk fails on the first attempt
	for _, r := range recipients {
		h.provider.FailBCC[r.Email] = true
	}

	outcome, err := h.flow.Trigger(ctx, testMetadata())
	require.Error(t, err)
	assert.Nil(t, outcome)

	// The failure is recorded but the rotation does not move
	state, err := h.stateRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentCycle)
	assert.True(t, scheduledFor.Equal(state.NextRunAt.UTC()))

	runs, err := h.runRepo.ListRecent(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.CycleRunStatusFailed, runs[0].Status)
	assert.Equal(t, 0, runs[0].SentCount)
	assert.NotEmpty(t, runs[0].ChunkErrors)

	// Provider recovers; the next trigger retries cycle 1 and advances
	h.provider.FailBCC = map[string]bool{}

	outcome, err = h.flow.Trigger(ctx, testMetadata())
	require.NoError(t, err)
	require.NotNil(t, outcome.Sent)
	assert.Equal(t, 1, outcome.Sent.CycleNumber)
	assert.Equal(t, 2, outcome.Sent.NextCycle)

	state, err = h.stateRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentCycle)

	runs, err = h.runRepo.ListRecent(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRotationFlowTriggerPartialFailureDoesNotAdvance(t *testing.T) {
	testDB := withTestDB(t)
	h := newRotationHarness(t, testDB, 2)
	ctx := testingutil.CreateTestContext()

	_, err := h.fixtures.SeedRotation(1, pastRunAt())
	require.NoError(t, err)
	recipients, err := h.fixtures.CreateTestRecipients(6)
	require.NoError(t, err)
	_, err = h.fixtures.CreateTestListings(1, 1)
	require.NoError(t, err)

	// One of the three chunks fails, which fails the whole run
	h.provider.FailBCC[recipients[0].Email] = true

	outcome, err := h.flow.Trigger(ctx, testMetadata())
	require.Error(t, err)
	assert.Nil(t, outcome)

	state, err := h.stateRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentCycle)

	runs, err := h.runRepo.ListRecent(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.CycleRunStatusFailed, runs[0].Status)
	assert.Equal(t, 4, runs[0].SentCount)
	assert.Equal(t, 2, runs[0].FailedCount)
	assert.Len(t, runs[0].ChunkErrors, 1)
}

func TestRotationFlowTriggerGuards(t *testing.T) {
	testDB := withTestDB(t)
	h := newRotationHarness(t, testDB, 50)
	ctx := testingutil.CreateTestContext()

	_, err := h.fixtures.SeedRotation(1, pastRunAt())
	require.NoError(t, err)

	t.Run("NoActiveRecipients", func(t *testing.T) {
		_, err := h.flow.Trigger(ctx, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsNoActiveRecipients(err))

		runs, err := h.runRepo.ListRecent(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, models.CycleRunStatusFailed, runs[0].Status)
		require.NotNil(t, runs[0].Error)
		assert.Equal(t, "No active recipients", *runs[0].Error)
		assert.Equal(t, 0, runs[0].RecipientCount)
	})

	t.Run("NoListingsForCycle", func(t *testing.T) {
		_, err := h.fixtures.CreateTestRecipients(2)
		require.NoError(t, err)

		_, err = h.flow.Trigger(ctx, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsNoListingsForCycle(err))

		runs, err := h.runRepo.ListRecent(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		require.NotNil(t, runs[0].Error)
		assert.Equal(t, "No listings for this cycle", *runs[0].Error)
		assert.Equal(t, 2, runs[0].RecipientCount)
	})

	// Precondition failures never move the rotation
	state, err := h.stateRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentCycle)
}

func TestRotationFlowCycleSuccession(t *testing.T) {
	testDB := withTestDB(t)
	h := newRotationHarness(t, testDB, 50)
	ctx := testingutil.CreateTestContext()

	_, err := h.fixtures.SeedRotation(1, pastRunAt())
	require.NoError(t, err)
	_, err = h.fixtures.CreateTestRecipients(2)
	require.NoError(t, err)
	for cycle := 1; cycle <= 3; cycle++ {
		_, err = h.fixtures.CreateTestListings(cycle, 1)
		require.NoError(t, err)
	}

	expected := []struct{ cycle, next int }{
		{1, 2},
		{2, 3},
		{3, 1},
	}

	for _, step := range expected {
		outcome, err := h.flow.Trigger(ctx, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, outcome.Sent)
		assert.Equal(t, step.cycle, outcome.Sent.CycleNumber)
		assert.Equal(t, step.next, outcome.Sent.NextCycle)

		// Pull the next run into the past so the following trigger is due
		err = testDB.DB.Model(&models.CycleRotationState{}).
			Where("1 = 1").
			Update("next_run_at", pastRunAt()).Error
		require.NoError(t, err)
	}

	runs, err := h.runRepo.ListRecent(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRotationFlowUpdateSchedule(t *testing.T) {
	testDB := withTestDB(t)
	h := newRotationHarness(t, testDB, 50)
	ctx := testingutil.CreateTestContext()

	_, err := h.fixtures.SeedRotation(1, futureRunAt())
	require.NoError(t, err)

	t.Run("ValidUpdate", func(t *testing.T) {
		updated, err := h.flow.UpdateSchedule(ctx, &dto.UpdateScheduleRequest{
			CycleNumber: 3,
			DayOfMonth:  28,
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, 3, updated.CycleNumber)
		assert.Equal(t, 28, updated.DayOfMonth)
	})

	t.Run("InvalidCycleNumber", func(t *testing.T) {
		_, err := h.flow.UpdateSchedule(ctx, &dto.UpdateScheduleRequest{
			CycleNumber: 4,
			DayOfMonth:  10,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsInvalidCycleNumber(err))
	})

	t.Run("InvalidDayOfMonth", func(t *testing.T) {
		_, err := h.flow.UpdateSchedule(ctx, &dto.UpdateScheduleRequest{
			CycleNumber: 1,
			DayOfMonth:  32,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsInvalidDayOfMonth(err))
	})
}

func TestBatchSendFlow(t *testing.T) {
	testDB := withTestDB(t)
	ctx := testingutil.CreateTestContext()
	fixtures := testingutil.NewTestFixtures(testDB)

	provider := services.NewMockMailProvider()
	sender := services.NewChunkedSender(provider, "listings@propline.ir", 3, 0)
	renderer, err := services.NewListingRenderer()
	require.NoError(t, err)

	flow := businessflow.NewBatchSendFlow(
		repository.NewBatchRecipientRepository(testDB.DB),
		repository.NewListingRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		sender,
		renderer,
		5,
		nil,
	)

	_, err = fixtures.CreateTestBatchRecipients(7)
	require.NoError(t, err)
	_, err = fixtures.CreateTestListings(2, 1)
	require.NoError(t, err)

	t.Run("SendsFullBatch", func(t *testing.T) {
		resp, err := flow.SendToBatch(ctx, &dto.SendToBatchRequest{BatchNumber: 1, CycleNumber: 2}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, 5, resp.RecipientCount)
		assert.Equal(t, 5, resp.SentCount)
		assert.Equal(t, 0, resp.FailedCount)
	})

	t.Run("SendsPartialTailBatch", func(t *testing.T) {
		resp, err := flow.SendToBatch(ctx, &dto.SendToBatchRequest{BatchNumber: 2, CycleNumber: 2}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, 2, resp.RecipientCount)
		assert.Equal(t, 2, resp.SentCount)
	})

	t.Run("BatchOutOfRange", func(t *testing.T) {
		_, err := flow.SendToBatch(ctx, &dto.SendToBatchRequest{BatchNumber: 3, CycleNumber: 2}, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsBatchOutOfRange(err))
	})

	t.Run("NoListingsForCycle", func(t *testing.T) {
		_, err := flow.SendToBatch(ctx, &dto.SendToBatchRequest{BatchNumber: 1, CycleNumber: 3}, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsNoListingsForCycle(err))
	})

	t.Run("InvalidBatchNumber", func(t *testing.T) {
		_, err := flow.SendToBatch(ctx, &dto.SendToBatchRequest{BatchNumber: 0, CycleNumber: 1}, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsInvalidBatchNumber(err))
	})
}

package businessflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/propline/propline/app/dto"
	"github.com/propline/propline/app/services"
	"github.com/propline/propline/models"
	"github.com/propline/propline/repository"
	"github.com/propline/propline/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	rotationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rotation_runs_total",
			Help: "Total number of cycle rotation runs by outcome",
		},
		[]string{"status"},
	)

	emailChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_chunks_total",
			Help: "Total number of delivered and failed email chunks",
		},
		[]string{"status"},
	)
)

const rotationLockKey = "propline:rotation:lock"

// TriggerOutcome is the result of one rotation trigger. Exactly one of
// Skipped or Sent is set.
type TriggerOutcome struct {
	Skipped *dto.RotationSkippedData
	Sent    *dto.RotationSentData
}

// RotationFlow drives the three-cycle rotation: deciding whether a cycle is
// due, distributing its listings to the active recipient list, and advancing
// the rotation state.
type RotationFlow interface {
	// EnsureSeeded creates the default schedule rows and the rotation
	// singleton when they are missing. Safe to call on every startup.
	EnsureSeeded(ctx context.Context) error
	Trigger(ctx context.Context, metadata *ClientMetadata) (*TriggerOutcome, error)
	GetState(ctx context.Context) (*dto.RotationStateDTO, error)
	GetSchedule(ctx context.Context) ([]dto.RotationConfigDTO, error)
	UpdateSchedule(ctx context.Context, req *dto.UpdateScheduleRequest, metadata *ClientMetadata) (*dto.RotationConfigDTO, error)
	ListRuns(ctx context.Context, page, pageSize int) ([]dto.CycleRunDTO, error)
}

// RotationFlowImpl implements RotationFlow
type RotationFlowImpl struct {
	configRepo    repository.RotationConfigRepository
	stateRepo     repository.RotationStateRepository
	runRepo       repository.CycleRunRepository
	recipientRepo repository.EmailRecipientRepository
	listingRepo   repository.ListingRepository
	auditRepo     repository.AuditLogRepository
	sender        services.BatchSender
	renderer      services.ListingRenderer
	db            *gorm.DB
	redisClient   redis.UniversalClient
	lockTTL       time.Duration
	logger        *log.Logger

	mu sync.Mutex // serializes triggers within this process
}

func NewRotationFlow(
	configRepo repository.RotationConfigRepository,
	stateRepo repository.RotationStateRepository,
	runRepo repository.CycleRunRepository,
	recipientRepo repository.EmailRecipientRepository,
	listingRepo repository.ListingRepository,
	auditRepo repository.AuditLogRepository,
	sender services.BatchSender,
	renderer services.ListingRenderer,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	lockTTL time.Duration,
	logger *log.Logger,
) RotationFlow {
	if logger == nil {
		logger = log.Default()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &RotationFlowImpl{
		configRepo:    configRepo,
		stateRepo:     stateRepo,
		runRepo:       runRepo,
		recipientRepo: recipientRepo,
		listingRepo:   listingRepo,
		auditRepo:     auditRepo,
		sender:        sender,
		renderer:      renderer,
		db:            db,
		redisClient:   redisClient,
		lockTTL:       lockTTL,
		logger:        logger,
	}
}

// EnsureSeeded creates the three default schedule rows and the rotation
// singleton pointing at cycle 1 when the tables are empty.
func (f *RotationFlowImpl) EnsureSeeded(ctx context.Context) error {
	return repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		defaults := map[int]int{
			1: models.DefaultCycleOneDay,
			2: models.DefaultCycleTwoDay,
			3: models.DefaultCycleThreeDay,
		}
		for cycle := 1; cycle <= utils.CycleCount; cycle++ {
			existing, err := f.configRepo.ByCycleNumber(txCtx, cycle)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			cfg := &models.CycleRotationConfig{
				CycleNumber: cycle,
				DayOfMonth:  defaults[cycle],
			}
			if err := f.configRepo.Save(txCtx, cfg); err != nil {
				return err
			}
		}

		state, err := f.stateRepo.Get(txCtx)
		if err != nil {
			return err
		}
		if state != nil {
			return nil
		}
		firstCfg, err := f.configRepo.ByCycleNumber(txCtx, 1)
		if err != nil {
			return err
		}
		if firstCfg == nil {
			return ErrRotationConfigNotFound
		}
		now := utils.UTCNow()
		return f.stateRepo.Save(txCtx, &models.CycleRotationState{
			CurrentCycle: 1,
			NextRunAt:    utils.NextOccurrenceOfDay(now, firstCfg.DayOfMonth),
		})
	})
}

// Trigger runs one rotation check. When the current cycle is not yet due it
// reports the pending cycle without side effects. When due, it distributes
// the cycle's listings to every active recipient and advances the rotation.
// A distribution where any chunk failed leaves the state untouched so the
// next trigger retries the same cycle.
func (f *RotationFlowImpl) Trigger(ctx context.Context, metadata *ClientMetadata) (*TriggerOutcome, error) {
	if !f.mu.TryLock() {
		return nil, NewBusinessError("ROTATION_IN_PROGRESS", "A rotation is already in progress", ErrRotationAlreadyInProgress)
	}
	defer f.mu.Unlock()

	// Cross-process lock when redis is configured
	if f.redisClient != nil {
		acquired, err := f.redisClient.SetNX(ctx, rotationLockKey, "1", f.lockTTL).Result()
		if err != nil {
			f.logger.Printf("rotation: redis lock unavailable, proceeding with local lock only: %v", err)
		} else if !acquired {
			return nil, NewBusinessError("ROTATION_IN_PROGRESS", "A rotation is already in progress", ErrRotationAlreadyInProgress)
		} else {
			defer f.redisClient.Del(context.WithoutCancel(ctx), rotationLockKey)
		}
	}

	state, err := f.stateRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("ROTATION_STATE_LOOKUP_FAILED", "Failed to load rotation state", err)
	}
	if state == nil {
		if err := f.EnsureSeeded(ctx); err != nil {
			return nil, NewBusinessError("ROTATION_SEED_FAILED", "Failed to seed rotation state", err)
		}
		state, err = f.stateRepo.Get(ctx)
		if err != nil || state == nil {
			return nil, NewBusinessError("ROTATION_STATE_LOOKUP_FAILED", "Failed to load rotation state", err)
		}
	}

	now := utils.UTCNow()
	if !state.Due(now) {
		return &TriggerOutcome{
			Skipped: &dto.RotationSkippedData{
				CurrentCycle: state.CurrentCycle,
				NextRunAt:    state.NextRunAt,
			},
		}, nil
	}

	recipients, err := f.recipientRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "Failed to load recipients", err)
	}
	if len(recipients) == 0 {
		f.recordFailedRun(ctx, state, 0, "No active recipients", metadata)
		return nil, NewBusinessError("NO_ACTIVE_RECIPIENTS", "No active recipients", ErrNoActiveRecipients)
	}

	listings, err := f.listingRepo.ListActiveByCycle(ctx, state.CurrentCycle)
	if err != nil {
		return nil, NewBusinessError("LISTING_LOOKUP_FAILED", "Failed to load listings", err)
	}
	if len(listings) == 0 {
		f.recordFailedRun(ctx, state, len(recipients), "No listings for this cycle", metadata)
		return nil, NewBusinessError("NO_LISTINGS_FOR_CYCLE", "No listings for this cycle", ErrNoListingsForCycle)
	}

	subject, html, err := f.renderer.Render(state.CurrentCycle, listings, now)
	if err != nil {
		return nil, NewBusinessError("RENDER_FAILED", "Failed to render distribution email", err)
	}

	addresses := make([]string, 0, len(recipients))
	for _, r := range recipients {
		addresses = append(addresses, r.Email)
	}

	result := f.sender.SendBatch(ctx, addresses, subject, html)
	emailChunksTotal.WithLabelValues("sent").Add(float64(result.Sent))
	emailChunksTotal.WithLabelValues("failed").Add(float64(result.Failed))

	sentAt := utils.UTCNow()
	run := &models.CycleRun{
		CycleNumber:    state.CurrentCycle,
		ScheduledFor:   state.NextRunAt,
		SentAt:         sentAt,
		RecipientCount: len(addresses),
		SentCount:      result.Sent,
		FailedCount:    result.Failed,
		ChunkErrors:    result.Errors,
	}

	// Any failed chunk fails the whole run: record it and keep the state so
	// the next trigger retries this cycle. Recipients in chunks that did go
	// out may receive the email again on the retry.
	if !result.Success() {
		run.Status = models.CycleRunStatusFailed
		errMsg := fmt.Sprintf("%d chunk(s) failed, %d of %d recipients reached", len(result.Errors), result.Sent, len(addresses))
		run.Error = &errMsg
		if saveErr := f.runRepo.Save(ctx, run); saveErr != nil {
			f.logger.Printf("rotation: failed to record failed run for cycle %d: %v", state.CurrentCycle, saveErr)
		}
		rotationRunsTotal.WithLabelValues("failed").Inc()
		f.audit(ctx, models.AuditActionRotationFailed, fmt.Sprintf("cycle %d distribution failed, %d recipients", state.CurrentCycle, len(addresses)), false, metadata)
		return nil, NewBusinessError("ROTATION_SEND_FAILED", "Distribution failed", fmt.Errorf("cycle %d: %v", state.CurrentCycle, result.Errors))
	}

	run.Status = models.CycleRunStatusSent

	nextCycle := utils.NextCycleNumber(state.CurrentCycle)
	nextCfg, err := f.configRepo.ByCycleNumber(ctx, nextCycle)
	if err != nil {
		return nil, NewBusinessError("ROTATION_CONFIG_LOOKUP_FAILED", "Failed to load next cycle schedule", err)
	}
	if nextCfg == nil {
		return nil, NewBusinessError("ROTATION_CONFIG_NOT_FOUND", "Next cycle schedule missing", ErrRotationConfigNotFound)
	}
	nextRunAt := utils.NextOccurrenceOfDay(sentAt, nextCfg.DayOfMonth)

	// Ledger write and state advance commit together. The conditional
	// update loses when a concurrent trigger advanced first.
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		advanced, err := f.stateRepo.Advance(txCtx, state.ID, state.NextRunAt, nextCycle, nextRunAt)
		if err != nil {
			return err
		}
		if !advanced {
			return ErrStateAdvancedConcurrently
		}
		return f.runRepo.Save(txCtx, run)
	})
	if err != nil {
		if IsStateAdvancedConcurrently(err) {
			f.recordFailedRun(ctx, state, len(addresses), "state advanced concurrently", metadata)
			return nil, NewBusinessError("ROTATION_CONCURRENT_ADVANCE", "Rotation state advanced by a concurrent trigger", err)
		}
		return nil, NewBusinessError("ROTATION_ADVANCE_FAILED", "Failed to advance rotation state", err)
	}

	rotationRunsTotal.WithLabelValues("sent").Inc()
	f.audit(ctx, models.AuditActionRotationAdvanced,
		fmt.Sprintf("cycle %d sent to %d recipients (%d failed), next cycle %d at %s",
			state.CurrentCycle, result.Sent, result.Failed, nextCycle, nextRunAt.Format(time.RFC3339)),
		true, metadata)
	f.logger.Printf("rotation: cycle %d distributed, sent=%d failed=%d, next cycle %d at %s",
		state.CurrentCycle, result.Sent, result.Failed, nextCycle, nextRunAt.Format(time.RFC3339))

	return &TriggerOutcome{
		Sent: &dto.RotationSentData{
			CycleNumber:    state.CurrentCycle,
			RecipientCount: len(addresses),
			SentCount:      result.Sent,
			FailedCount:    result.Failed,
			NextCycle:      nextCycle,
			NextRunAt:      nextRunAt,
		},
	}, nil
}

// recordFailedRun appends a failed ledger row without touching the rotation
// state, so the same cycle stays due and is retried on the next trigger.
func (f *RotationFlowImpl) recordFailedRun(ctx context.Context, state *models.CycleRotationState, recipientCount int, reason string, metadata *ClientMetadata) {
	run := &models.CycleRun{
		CycleNumber:    state.CurrentCycle,
		ScheduledFor:   state.NextRunAt,
		SentAt:         utils.UTCNow(),
		Status:         models.CycleRunStatusFailed,
		Error:          &reason,
		RecipientCount: recipientCount,
	}
	if err := f.runRepo.Save(ctx, run); err != nil {
		f.logger.Printf("rotation: failed to record failed run for cycle %d: %v", state.CurrentCycle, err)
	}
	rotationRunsTotal.WithLabelValues("failed").Inc()
	f.audit(ctx, models.AuditActionRotationFailed, fmt.Sprintf("cycle %d: %s", state.CurrentCycle, reason), false, metadata)
}

func (f *RotationFlowImpl) GetState(ctx context.Context) (*dto.RotationStateDTO, error) {
	state, err := f.stateRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("ROTATION_STATE_LOOKUP_FAILED", "Failed to load rotation state", err)
	}
	if state == nil {
		return nil, NewBusinessError("ROTATION_STATE_NOT_FOUND", "Rotation state not initialized", ErrRotationConfigNotFound)
	}
	out := ToRotationStateDTO(*state)
	return &out, nil
}

func (f *RotationFlowImpl) GetSchedule(ctx context.Context) ([]dto.RotationConfigDTO, error) {
	configs, err := f.configRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("ROTATION_CONFIG_LOOKUP_FAILED", "Failed to load schedule", err)
	}
	out := make([]dto.RotationConfigDTO, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, ToRotationConfigDTO(*cfg))
	}
	return out, nil
}

// UpdateSchedule changes the day of month for one cycle. The change affects
// the next computation of NextRunAt, not the already-scheduled run.
func (f *RotationFlowImpl) UpdateSchedule(ctx context.Context, req *dto.UpdateScheduleRequest, metadata *ClientMetadata) (*dto.RotationConfigDTO, error) {
	if req == nil || req.CycleNumber < 1 || req.CycleNumber > utils.CycleCount {
		return nil, NewBusinessError("INVALID_CYCLE_NUMBER", "Cycle number must be between 1 and 3", ErrInvalidCycleNumber)
	}
	if req.DayOfMonth < 1 || req.DayOfMonth > 31 {
		return nil, NewBusinessError("INVALID_DAY_OF_MONTH", "Day of month must be between 1 and 31", ErrInvalidDayOfMonth)
	}

	if err := f.configRepo.UpdateSchedule(ctx, req.CycleNumber, req.DayOfMonth, req.Description); err != nil {
		return nil, NewBusinessError("SCHEDULE_UPDATE_FAILED", "Failed to update schedule", err)
	}

	cfg, err := f.configRepo.ByCycleNumber(ctx, req.CycleNumber)
	if err != nil || cfg == nil {
		return nil, NewBusinessError("ROTATION_CONFIG_LOOKUP_FAILED", "Failed to reload schedule", err)
	}

	f.audit(ctx, models.AuditActionScheduleUpdated,
		fmt.Sprintf("cycle %d schedule set to day %d", req.CycleNumber, req.DayOfMonth), true, metadata)

	out := ToRotationConfigDTO(*cfg)
	return &out, nil
}

func (f *RotationFlowImpl) ListRuns(ctx context.Context, page, pageSize int) ([]dto.CycleRunDTO, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	runs, err := f.runRepo.ListRecent(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("RUN_LOOKUP_FAILED", "Failed to load run ledger", err)
	}
	out := make([]dto.CycleRunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, ToCycleRunDTO(*run))
	}
	return out, nil
}

func (f *RotationFlowImpl) audit(ctx context.Context, action, description string, success bool, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(success),
		CreatedAt:   utils.UTCNow(),
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	_ = f.auditRepo.Save(ctx, entry)
}

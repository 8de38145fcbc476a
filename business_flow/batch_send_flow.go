package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/propline/propline/app/dto"
	"github.com/propline/propline/app/services"
	"github.com/propline/propline/models"
	"github.com/propline/propline/repository"
	"github.com/propline/propline/utils"
)

// BatchSendFlow dispatches the current listings to one positional batch of
// the bulk-send list. Used as a manual tool, independent of the rotation.
type BatchSendFlow interface {
	SendToBatch(ctx context.Context, req *dto.SendToBatchRequest, metadata *ClientMetadata) (*dto.SendToBatchResponse, error)
}

// BatchSendFlowImpl implements BatchSendFlow
type BatchSendFlowImpl struct {
	batchRepo   repository.BatchRecipientRepository
	listingRepo repository.ListingRepository
	auditRepo   repository.AuditLogRepository
	sender      services.BatchSender
	renderer    services.ListingRenderer
	batchSize   int
	logger      *log.Logger
}

func NewBatchSendFlow(
	batchRepo repository.BatchRecipientRepository,
	listingRepo repository.ListingRepository,
	auditRepo repository.AuditLogRepository,
	sender services.BatchSender,
	renderer services.ListingRenderer,
	batchSize int,
	logger *log.Logger,
) BatchSendFlow {
	if batchSize <= 0 {
		batchSize = utils.BatchSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BatchSendFlowImpl{
		batchRepo:   batchRepo,
		listingRepo: listingRepo,
		auditRepo:   auditRepo,
		sender:      sender,
		renderer:    renderer,
		batchSize:   batchSize,
		logger:      logger,
	}
}

func (f *BatchSendFlowImpl) SendToBatch(ctx context.Context, req *dto.SendToBatchRequest, metadata *ClientMetadata) (*dto.SendToBatchResponse, error) {
	if req == nil || req.BatchNumber < 1 {
		return nil, NewBusinessError("INVALID_BATCH_NUMBER", "Batch number must be at least 1", ErrInvalidBatchNumber)
	}
	if req.CycleNumber < 1 || req.CycleNumber > utils.CycleCount {
		return nil, NewBusinessError("INVALID_CYCLE_NUMBER", "Cycle number must be between 1 and 3", ErrInvalidCycleNumber)
	}

	rows, err := f.batchRepo.ListBatch(ctx, req.BatchNumber, f.batchSize)
	if err != nil {
		return nil, NewBusinessError("BATCH_LOOKUP_FAILED", "Failed to load batch", err)
	}
	if len(rows) == 0 {
		return nil, NewBusinessError("BATCH_OUT_OF_RANGE", "Batch number exceeds the list size", ErrBatchOutOfRange)
	}

	listings, err := f.listingRepo.ListActiveByCycle(ctx, req.CycleNumber)
	if err != nil {
		return nil, NewBusinessError("LISTING_LOOKUP_FAILED", "Failed to load listings", err)
	}
	if len(listings) == 0 {
		return nil, NewBusinessError("NO_LISTINGS_FOR_CYCLE", "No listings for this cycle", ErrNoListingsForCycle)
	}

	now := utils.UTCNow()
	subject, html, err := f.renderer.Render(req.CycleNumber, listings, now)
	if err != nil {
		return nil, NewBusinessError("RENDER_FAILED", "Failed to render distribution email", err)
	}

	addresses := make([]string, 0, len(rows))
	for _, r := range rows {
		addresses = append(addresses, r.Email)
	}

	result := f.sender.SendBatch(ctx, addresses, subject, html)
	f.logger.Printf("batch send: batch %d cycle %d sent=%d failed=%d",
		req.BatchNumber, req.CycleNumber, result.Sent, result.Failed)

	f.audit(ctx, models.AuditActionBatchSendRequested,
		fmt.Sprintf("batch %d cycle %d: %d recipients, %d sent, %d failed",
			req.BatchNumber, req.CycleNumber, len(addresses), result.Sent, result.Failed),
		result.Success(), metadata)

	return &dto.SendToBatchResponse{
		BatchNumber:    req.BatchNumber,
		RecipientCount: len(addresses),
		SentCount:      result.Sent,
		FailedCount:    result.Failed,
		ChunkErrors:    result.Errors,
	}, nil
}

func (f *BatchSendFlowImpl) audit(ctx context.Context, action, description string, success bool, metadata *ClientMetadata) {
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

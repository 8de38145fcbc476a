package businessflow

import (
	"context"
	"fmt"

	"github.com/propline/propline/app/dto"
	"github.com/propline/propline/models"
	"github.com/propline/propline/repository"
	"github.com/propline/propline/utils"
)

// ListingFlow manages the property listings grouped by rotation cycle
type ListingFlow interface {
	CreateListing(ctx context.Context, req *dto.CreateListingRequest, metadata *ClientMetadata) (*dto.ListingDTO, error)
	UpdateListing(ctx context.Context, id uint, req *dto.UpdateListingRequest, metadata *ClientMetadata) (*dto.ListingDTO, error)
	DeleteListing(ctx context.Context, id uint, metadata *ClientMetadata) error
	ListListings(ctx context.Context, req *dto.ListListingsRequest) ([]dto.ListingDTO, int64, error)
}

// ListingFlowImpl implements ListingFlow
type ListingFlowImpl struct {
	listingRepo repository.ListingRepository
	auditRepo   repository.AuditLogRepository
}

func NewListingFlow(listingRepo repository.ListingRepository, auditRepo repository.AuditLogRepository) ListingFlow {
	return &ListingFlowImpl{
		listingRepo: listingRepo,
		auditRepo:   auditRepo,
	}
}

func (f *ListingFlowImpl) CreateListing(ctx context.Context, req *dto.CreateListingRequest, metadata *ClientMetadata) (*dto.ListingDTO, error) {
	if req == nil {
		return nil, NewBusinessError("LISTING_VALIDATION_FAILED", "Listing request is required", ErrListingNotFound)
	}
	if req.CycleGroup < 1 || req.CycleGroup > utils.CycleCount {
		return nil, NewBusinessError("INVALID_CYCLE_NUMBER", "Cycle group must be between 1 and 3", ErrInvalidCycleNumber)
	}

	listing := &models.Listing{
		Title:      req.Title,
		Address:    req.Address,
		Price:      req.Price,
		CycleGroup: req.CycleGroup,
		IsActive:   utils.ToPtr(true),
	}
	if err := f.listingRepo.Save(ctx, listing); err != nil {
		return nil, NewBusinessError("LISTING_CREATE_FAILED", "Failed to create listing", err)
	}

	f.audit(ctx, models.AuditActionListingCreated, fmt.Sprintf("listing %q created in cycle %d", listing.Title, listing.CycleGroup), true, metadata)
	out := ToListingDTO(*listing)
	return &out, nil
}

func (f *ListingFlowImpl) UpdateListing(ctx context.Context, id uint, req *dto.UpdateListingRequest, metadata *ClientMetadata) (*dto.ListingDTO, error) {
	listing, err := f.listingRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LISTING_LOOKUP_FAILED", "Failed to lookup listing", err)
	}
	if listing == nil {
		return nil, NewBusinessError("LISTING_NOT_FOUND", "Listing not found", ErrListingNotFound)
	}

	if req.CycleGroup != nil && (*req.CycleGroup < 1 || *req.CycleGroup > utils.CycleCount) {
		return nil, NewBusinessError("INVALID_CYCLE_NUMBER", "Cycle group must be between 1 and 3", ErrInvalidCycleNumber)
	}

	if req.Title != nil {
		listing.Title = *req.Title
	}
	if req.Address != nil {
		listing.Address = *req.Address
	}
	if req.Price != nil {
		listing.Price = *req.Price
	}
	if req.CycleGroup != nil {
		listing.CycleGroup = *req.CycleGroup
	}
	if req.IsActive != nil {
		listing.IsActive = req.IsActive
	}

	if err := f.listingRepo.Update(ctx, listing); err != nil {
		return nil, NewBusinessError("LISTING_UPDATE_FAILED", "Failed to update listing", err)
	}

	f.audit(ctx, models.AuditActionListingUpdated, fmt.Sprintf("listing %d updated", listing.ID), true, metadata)
	out := ToListingDTO(*listing)
	return &out, nil
}

func (f *ListingFlowImpl) DeleteListing(ctx context.Context, id uint, metadata *ClientMetadata) error {
	listing, err := f.listingRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("LISTING_LOOKUP_FAILED", "Failed to lookup listing", err)
	}
	if listing == nil {
		return NewBusinessError("LISTING_NOT_FOUND", "Listing not found", ErrListingNotFound)
	}

	if err := f.listingRepo.Delete(ctx, id); err != nil {
		return NewBusinessError("LISTING_DELETE_FAILED", "Failed to delete listing", err)
	}

	f.audit(ctx, models.AuditActionListingDeleted, fmt.Sprintf("listing %q deleted", listing.Title), true, metadata)
	return nil
}

func (f *ListingFlowImpl) ListListings(ctx context.Context, req *dto.ListListingsRequest) ([]dto.ListingDTO, int64, error) {
	page, pageSize := 1, 50
	filter := models.ListingFilter{}
	if req != nil {
		if req.Page > 0 {
			page = req.Page
		}
		if req.PageSize > 0 && req.PageSize <= 200 {
			pageSize = req.PageSize
		}
		filter.CycleGroup = req.CycleGroup
		filter.IsActive = req.IsActive
	}

	rows, err := f.listingRepo.ByFilter(ctx, filter, "id ASC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, NewBusinessError("LISTING_LOOKUP_FAILED", "Failed to list listings", err)
	}
	total, err := f.listingRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, NewBusinessError("LISTING_LOOKUP_FAILED", "Failed to count listings", err)
	}

	out := make([]dto.ListingDTO, 0, len(rows))
	for _, l := range rows {
		out = append(out, ToListingDTO(*l))
	}
	return out, total, nil
}

func (f *ListingFlowImpl) audit(ctx context.Context, action, description string, success bool, metadata *ClientMetadata) {
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

package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/propline/propline/app/dto"
	businessflow "github.com/propline/propline/business_flow"
)

// ListingHandlerInterface defines the contract for listing handlers
type ListingHandlerInterface interface {
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	List(c fiber.Ctx) error
}

// ListingHandler implements ListingHandlerInterface
type ListingHandler struct {
	flow      businessflow.ListingFlow
	validator *validator.Validate
}

func NewListingHandler(flow businessflow.ListingFlow) ListingHandlerInterface {
	return &ListingHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// ErrorResponse standard JSON error
func (h *ListingHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *ListingHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Create adds one property listing
// @Summary Create listing
// @Tags Listings
// @Accept json
// @Produce json
// @Param request body dto.CreateListingRequest true "Listing data"
// @Success 201 {object} dto.APIResponse{data=dto.ListingDTO}
// @Router /api/v1/listings [post]
func (h *ListingHandler) Create(c fiber.Ctx) error {
	var req dto.CreateListingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	listing, err := h.flow.CreateListing(h.createRequestContext(c, "/api/v1/listings"), &req, metadata)
	if err != nil {
		if businessflow.IsInvalidCycleNumber(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid cycle group", "INVALID_CYCLE_NUMBER", nil)
		}
		log.Println("Listing create failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create listing", "LISTING_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Listing created", listing)
}

// Update edits one property listing
// @Summary Update listing
// @Tags Listings
// @Accept json
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListingDTO}
// @Failure 404 {object} dto.APIResponse "Listing not found"
// @Router /api/v1/listings/{id} [put]
func (h *ListingHandler) Update(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid listing ID", "INVALID_REQUEST", nil)
	}

	var req dto.UpdateListingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	listing, err := h.flow.UpdateListing(h.createRequestContext(c, "/api/v1/listings/:id"), uint(id), &req, metadata)
	if err != nil {
		if businessflow.IsListingNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Listing not found", "LISTING_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidCycleNumber(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid cycle group", "INVALID_CYCLE_NUMBER", nil)
		}
		log.Println("Listing update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update listing", "LISTING_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Listing updated", listing)
}

// Delete removes one property listing
// @Summary Delete listing
// @Tags Listings
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Listing not found"
// @Router /api/v1/listings/{id} [delete]
func (h *ListingHandler) Delete(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid listing ID", "INVALID_REQUEST", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if err := h.flow.DeleteListing(h.createRequestContext(c, "/api/v1/listings/:id"), uint(id), metadata); err != nil {
		if businessflow.IsListingNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Listing not found", "LISTING_NOT_FOUND", nil)
		}
		log.Println("Listing delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete listing", "LISTING_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Listing deleted", nil)
}

// List pages through listings with optional cycle and active filters
// @Summary List listings
// @Tags Listings
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.ListingDTO}
// @Router /api/v1/listings [get]
func (h *ListingHandler) List(c fiber.Ctx) error {
	req := dto.ListListingsRequest{}
	req.Page, _ = strconv.Atoi(c.Query("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.Query("page_size", "50"))
	if v := c.Query("cycle_group"); v != "" {
		if cycleGroup, err := strconv.Atoi(v); err == nil {
			req.CycleGroup = &cycleGroup
		}
	}
	if v := c.Query("is_active"); v != "" {
		if isActive, err := strconv.ParseBool(v); err == nil {
			req.IsActive = &isActive
		}
	}

	listings, total, err := h.flow.ListListings(h.createRequestContext(c, "/api/v1/listings"), &req)
	if err != nil {
		log.Println("Listing list failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list listings", "LISTING_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Listings", fiber.Map{
		"listings":  listings,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

func (h *ListingHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

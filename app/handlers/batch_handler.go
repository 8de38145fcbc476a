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

// BatchHandlerInterface defines the contract for bulk-send list handlers
type BatchHandlerInterface interface {
	Append(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Remove(c fiber.Ctx) error
	ListBatch(c fiber.Ctx) error
	SendToBatch(c fiber.Ctx) error
}

// BatchHandler implements BatchHandlerInterface
type BatchHandler struct {
	recipientFlow businessflow.RecipientFlow
	sendFlow      businessflow.BatchSendFlow
	validator     *validator.Validate
}

func NewBatchHandler(recipientFlow businessflow.RecipientFlow, sendFlow businessflow.BatchSendFlow) BatchHandlerInterface {
	return &BatchHandler{
		recipientFlow: recipientFlow,
		sendFlow:      sendFlow,
		validator:     validator.New(),
	}
}

// ErrorResponse standard JSON error
func (h *BatchHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
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
func (h *BatchHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Append adds one address to the end of the bulk-send list
// @Summary Append batch recipient
// @Tags Batch
// @Accept json
// @Produce json
// @Param request body dto.AppendBatchRecipientRequest true "Recipient data"
// @Success 201 {object} dto.APIResponse{data=dto.BatchRecipientDTO}
// @Router /api/v1/batch/recipients [post]
func (h *BatchHandler) Append(c fiber.Ctx) error {
	var req dto.AppendBatchRecipientRequest
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
	row, err := h.recipientFlow.AppendBatchRecipient(h.createRequestContext(c, "/api/v1/batch/recipients"), &req, metadata)
	if err != nil {
		log.Println("Batch append failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to append recipient", "BATCH_APPEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Recipient appended", row)
}

// Update edits one bulk-send list entry in place, keeping its position
// @Summary Update batch recipient
// @Tags Batch
// @Accept json
// @Produce json
// @Param id path int true "Batch recipient ID"
// @Success 200 {object} dto.APIResponse{data=dto.BatchRecipientDTO}
// @Failure 404 {object} dto.APIResponse "Batch recipient not found"
// @Router /api/v1/batch/recipients/{id} [put]
func (h *BatchHandler) Update(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient ID", "INVALID_REQUEST", nil)
	}

	var req dto.UpdateBatchRecipientRequest
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
	row, err := h.recipientFlow.UpdateBatchRecipient(h.createRequestContext(c, "/api/v1/batch/recipients/:id"), uint(id), &req, metadata)
	if err != nil {
		if businessflow.IsBatchRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Batch recipient not found", "BATCH_RECIPIENT_NOT_FOUND", nil)
		}
		log.Println("Batch update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update recipient", "BATCH_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient updated", row)
}

// Remove deletes one entry; later entries shift back one position
// @Summary Remove batch recipient
// @Tags Batch
// @Produce json
// @Param id path int true "Batch recipient ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Batch recipient not found"
// @Router /api/v1/batch/recipients/{id} [delete]
func (h *BatchHandler) Remove(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient ID", "INVALID_REQUEST", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if err := h.recipientFlow.RemoveBatchRecipient(h.createRequestContext(c, "/api/v1/batch/recipients/:id"), uint(id), metadata); err != nil {
		if businessflow.IsBatchRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Batch recipient not found", "BATCH_RECIPIENT_NOT_FOUND", nil)
		}
		log.Println("Batch remove failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove recipient", "BATCH_REMOVE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient removed", nil)
}

// ListBatch returns one positional batch of the bulk-send list
// @Summary List one batch
// @Tags Batch
// @Produce json
// @Param batch query int false "Batch number (1-based)"
// @Success 200 {object} dto.APIResponse{data=dto.BatchListDTO}
// @Router /api/v1/batch/recipients [get]
func (h *BatchHandler) ListBatch(c fiber.Ctx) error {
	batchNumber, _ := strconv.Atoi(c.Query("batch", "1"))

	batch, err := h.recipientFlow.ListBatch(h.createRequestContext(c, "/api/v1/batch/recipients"), batchNumber)
	if err != nil {
		if businessflow.IsInvalidBatchNumber(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid batch number", "INVALID_BATCH_NUMBER", nil)
		}
		log.Println("Batch list failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load batch", "BATCH_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Batch", batch)
}

// SendToBatch dispatches one cycle's listings to one positional batch
// @Summary Send to batch
// @Tags Batch
// @Accept json
// @Produce json
// @Param request body dto.SendToBatchRequest true "Batch and cycle selection"
// @Success 200 {object} dto.APIResponse{data=dto.SendToBatchResponse}
// @Failure 409 {object} dto.APIResponse "Batch out of range or no listings"
// @Router /api/v1/batch/send [post]
func (h *BatchHandler) SendToBatch(c fiber.Ctx) error {
	var req dto.SendToBatchRequest
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
	result, err := h.sendFlow.SendToBatch(h.createRequestContext(c, "/api/v1/batch/send"), &req, metadata)
	if err != nil {
		switch {
		case businessflow.IsInvalidBatchNumber(err) || businessflow.IsInvalidCycleNumber(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid batch or cycle", "INVALID_REQUEST", nil)
		case businessflow.IsBatchOutOfRange(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "Batch number exceeds the list size", "BATCH_OUT_OF_RANGE", nil)
		case businessflow.IsNoListingsForCycle(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "No listings for this cycle", "NO_LISTINGS_FOR_CYCLE", nil)
		}
		log.Println("Batch send failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send to batch", "BATCH_SEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Batch dispatched", result)
}

func (h *BatchHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 5*time.Minute)
}

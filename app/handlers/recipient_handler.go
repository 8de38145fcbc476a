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

// RecipientHandlerInterface defines the contract for distribution list handlers
type RecipientHandlerInterface interface {
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// RecipientHandler implements RecipientHandlerInterface
type RecipientHandler struct {
	flow      businessflow.RecipientFlow
	validator *validator.Validate
}

func NewRecipientHandler(flow businessflow.RecipientFlow) RecipientHandlerInterface {
	return &RecipientHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// ErrorResponse standard JSON error
func (h *RecipientHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
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
func (h *RecipientHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Create adds one address to the distribution list
// @Summary Create recipient
// @Tags Recipients
// @Accept json
// @Produce json
// @Param request body dto.CreateRecipientRequest true "Recipient data"
// @Success 201 {object} dto.APIResponse{data=dto.EmailRecipientDTO}
// @Failure 409 {object} dto.APIResponse "Email already on the list"
// @Router /api/v1/recipients [post]
func (h *RecipientHandler) Create(c fiber.Ctx) error {
	var req dto.CreateRecipientRequest
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
	recipient, err := h.flow.CreateRecipient(h.createRequestContext(c, "/api/v1/recipients"), &req, metadata)
	if err != nil {
		if businessflow.IsRecipientExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Recipient already exists", "RECIPIENT_EXISTS", nil)
		}
		log.Println("Recipient create failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create recipient", "RECIPIENT_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Recipient created", recipient)
}

// Update edits one distribution list entry
// @Summary Update recipient
// @Tags Recipients
// @Accept json
// @Produce json
// @Param id path int true "Recipient ID"
// @Param request body dto.UpdateRecipientRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.EmailRecipientDTO}
// @Failure 404 {object} dto.APIResponse "Recipient not found"
// @Router /api/v1/recipients/{id} [put]
func (h *RecipientHandler) Update(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient ID", "INVALID_REQUEST", nil)
	}

	var req dto.UpdateRecipientRequest
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
	recipient, err := h.flow.UpdateRecipient(h.createRequestContext(c, "/api/v1/recipients/:id"), uint(id), &req, metadata)
	if err != nil {
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}
		if businessflow.IsRecipientExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Recipient already exists", "RECIPIENT_EXISTS", nil)
		}
		log.Println("Recipient update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update recipient", "RECIPIENT_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient updated", recipient)
}

// Delete removes one entry from the distribution list
// @Summary Delete recipient
// @Tags Recipients
// @Produce json
// @Param id path int true "Recipient ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Recipient not found"
// @Router /api/v1/recipients/{id} [delete]
func (h *RecipientHandler) Delete(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient ID", "INVALID_REQUEST", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if err := h.flow.DeleteRecipient(h.createRequestContext(c, "/api/v1/recipients/:id"), uint(id), metadata); err != nil {
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}
		log.Println("Recipient delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete recipient", "RECIPIENT_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient deleted", nil)
}

// List pages through the distribution list
// @Summary List recipients
// @Tags Recipients
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.EmailRecipientDTO}
// @Router /api/v1/recipients [get]
func (h *RecipientHandler) List(c fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))

	recipients, total, err := h.flow.ListRecipients(h.createRequestContext(c, "/api/v1/recipients"), page, pageSize)
	if err != nil {
		log.Println("Recipient list failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list recipients", "RECIPIENT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipients", fiber.Map{
		"recipients": recipients,
		"total":      total,
		"page":       page,
		"page_size":  pageSize,
	})
}

// Export downloads the distribution list as an XLSX workbook
// @Summary Export recipients
// @Tags Recipients
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /api/v1/recipients/export [get]
func (h *RecipientHandler) Export(c fiber.Ctx) error {
	data, err := h.flow.ExportRecipients(h.createRequestContext(c, "/api/v1/recipients/export"))
	if err != nil {
		log.Println("Recipient export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export recipients", "RECIPIENT_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="recipients.xlsx"`)
	return c.Send(data)
}

func (h *RecipientHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

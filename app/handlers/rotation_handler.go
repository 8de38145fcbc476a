package handlers

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/propline/propline/app/dto"
	businessflow "github.com/propline/propline/business_flow"
	"github.com/propline/propline/utils"
)

// RotationHandlerInterface defines the contract for rotation handlers
type RotationHandlerInterface interface {
	Trigger(c fiber.Ctx) error
	GetState(c fiber.Ctx) error
	GetSchedule(c fiber.Ctx) error
	UpdateSchedule(c fiber.Ctx) error
	ListRuns(c fiber.Ctx) error
	ExportRuns(c fiber.Ctx) error
}

// RotationHandler implements RotationHandlerInterface
type RotationHandler struct {
	flow          businessflow.RotationFlow
	recipientFlow businessflow.RecipientFlow
	triggerSecret string
	validator     *validator.Validate
}

func NewRotationHandler(flow businessflow.RotationFlow, recipientFlow businessflow.RecipientFlow, triggerSecret string) RotationHandlerInterface {
	return &RotationHandler{
		flow:          flow,
		recipientFlow: recipientFlow,
		triggerSecret: triggerSecret,
		validator:     validator.New(),
	}
}

// ErrorResponse standard JSON error
func (h *RotationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
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
func (h *RotationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Trigger runs one rotation check. Called by the external cron as well as
// manually from the back office.
// @Summary Trigger rotation
// @Description Check whether the current cycle is due and distribute it if so
// @Tags Rotation
// @Produce json
// @Param X-Rotation-Secret header string true "Shared trigger secret"
// @Success 200 {object} dto.APIResponse "Rotation checked or performed"
// @Failure 401 {object} dto.APIResponse "Missing or wrong secret"
// @Failure 409 {object} dto.APIResponse "No recipients, no listings, or rotation in progress"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rotation/trigger [post]
func (h *RotationHandler) Trigger(c fiber.Ctx) error {
	// With a secret configured only the secret authorizes. Without one the
	// in-cluster scheduler identifies itself via X-Internal-Trigger.
	if h.triggerSecret != "" {
		secret := c.Get("X-Rotation-Secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(h.triggerSecret)) != 1 {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "TRIGGER_UNAUTHORIZED", nil)
		}
	} else if c.Get("X-Internal-Trigger") != "scheduler" {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "TRIGGER_UNAUTHORIZED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	outcome, err := h.flow.Trigger(h.createRequestContext(c, "/api/v1/rotation/trigger"), metadata)
	if err != nil {
		switch {
		case businessflow.IsNoActiveRecipients(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "No active recipients", "NO_ACTIVE_RECIPIENTS", nil)
		case businessflow.IsNoListingsForCycle(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "No listings for this cycle", "NO_LISTINGS_FOR_CYCLE", nil)
		case businessflow.IsRotationAlreadyInProgress(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "A rotation is already in progress", "ROTATION_IN_PROGRESS", nil)
		case businessflow.IsStateAdvancedConcurrently(err):
			return h.ErrorResponse(c, fiber.StatusConflict, "Rotation advanced by a concurrent trigger", "ROTATION_CONCURRENT_ADVANCE", nil)
		}
		log.Println("Rotation trigger failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Rotation trigger failed", "ROTATION_TRIGGER_FAILED", nil)
	}

	if outcome.Skipped != nil {
		return h.SuccessResponse(c, fiber.StatusOK, "Not time yet", outcome.Skipped)
	}
	return h.SuccessResponse(c, fiber.StatusOK,
		fmt.Sprintf("Sent cycle %d to %d recipients", outcome.Sent.CycleNumber, outcome.Sent.RecipientCount),
		outcome.Sent)
}

// GetState returns the current rotation position
// @Summary Rotation state
// @Tags Rotation
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.RotationStateDTO}
// @Router /api/v1/rotation/state [get]
func (h *RotationHandler) GetState(c fiber.Ctx) error {
	state, err := h.flow.GetState(h.createRequestContext(c, "/api/v1/rotation/state"))
	if err != nil {
		log.Println("Rotation state lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load rotation state", "ROTATION_STATE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Rotation state", state)
}

// GetSchedule returns the three cycle schedule rows
// @Summary Rotation schedule
// @Tags Rotation
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.RotationConfigDTO}
// @Router /api/v1/rotation/schedule [get]
func (h *RotationHandler) GetSchedule(c fiber.Ctx) error {
	schedule, err := h.flow.GetSchedule(h.createRequestContext(c, "/api/v1/rotation/schedule"))
	if err != nil {
		log.Println("Rotation schedule lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load schedule", "ROTATION_SCHEDULE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Rotation schedule", schedule)
}

// UpdateSchedule changes the day of month for one cycle
// @Summary Update rotation schedule
// @Tags Rotation
// @Accept json
// @Produce json
// @Param request body dto.UpdateScheduleRequest true "Schedule change"
// @Success 200 {object} dto.APIResponse{data=dto.RotationConfigDTO}
// @Failure 400 {object} dto.APIResponse "Invalid cycle number or day"
// @Router /api/v1/rotation/schedule [put]
func (h *RotationHandler) UpdateSchedule(c fiber.Ctx) error {
	var req dto.UpdateScheduleRequest
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
	cfg, err := h.flow.UpdateSchedule(h.createRequestContext(c, "/api/v1/rotation/schedule"), &req, metadata)
	if err != nil {
		if businessflow.IsInvalidCycleNumber(err) || businessflow.IsInvalidDayOfMonth(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid schedule", "INVALID_SCHEDULE", nil)
		}
		log.Println("Schedule update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update schedule", "SCHEDULE_UPDATE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Schedule updated", cfg)
}

// ListRuns pages through the run ledger, newest first
// @Summary Run ledger
// @Tags Rotation
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.CycleRunDTO}
// @Router /api/v1/rotation/runs [get]
func (h *RotationHandler) ListRuns(c fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))

	runs, err := h.flow.ListRuns(h.createRequestContext(c, "/api/v1/rotation/runs"), page, pageSize)
	if err != nil {
		log.Println("Run ledger lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load run ledger", "RUN_LIST_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Run ledger", runs)
}

// ExportRuns downloads the recent ledger rows as an XLSX workbook
// @Summary Export run ledger
// @Tags Rotation
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /api/v1/rotation/runs/export [get]
func (h *RotationHandler) ExportRuns(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "1000"))

	data, err := h.recipientFlow.ExportRuns(h.createRequestContext(c, "/api/v1/rotation/runs/export"), limit)
	if err != nil {
		log.Println("Run export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export runs", "RUN_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="cycle_runs.xlsx"`)
	return c.Send(data)
}

func (h *RotationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 5*time.Minute)
}

// createRequestContextWithTimeout builds a request-scoped context shared by handlers
func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

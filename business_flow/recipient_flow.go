package businessflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/propline/propline/app/dto"
	"github.com/propline/propline/models"
	"github.com/propline/propline/repository"
	"github.com/propline/propline/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// RecipientFlow manages the distribution list, the bulk-send list, and the
// XLSX exports used by the back office.
type RecipientFlow interface {
	CreateRecipient(ctx context.Context, req *dto.CreateRecipientRequest, metadata *ClientMetadata) (*dto.EmailRecipientDTO, error)
	UpdateRecipient(ctx context.Context, id uint, req *dto.UpdateRecipientRequest, metadata *ClientMetadata) (*dto.EmailRecipientDTO, error)
	DeleteRecipient(ctx context.Context, id uint, metadata *ClientMetadata) error
	ListRecipients(ctx context.Context, page, pageSize int) ([]dto.EmailRecipientDTO, int64, error)

	AppendBatchRecipient(ctx context.Context, req *dto.AppendBatchRecipientRequest, metadata *ClientMetadata) (*dto.BatchRecipientDTO, error)
	UpdateBatchRecipient(ctx context.Context, id uint, req *dto.UpdateBatchRecipientRequest, metadata *ClientMetadata) (*dto.BatchRecipientDTO, error)
	RemoveBatchRecipient(ctx context.Context, id uint, metadata *ClientMetadata) error
	ListBatch(ctx context.Context, batchNumber int) (*dto.BatchListDTO, error)

	ExportRecipients(ctx context.Context) ([]byte, error)
	ExportRuns(ctx context.Context, limit int) ([]byte, error)
}

// RecipientFlowImpl implements RecipientFlow
type RecipientFlowImpl struct {
	recipientRepo repository.EmailRecipientRepository
	batchRepo     repository.BatchRecipientRepository
	runRepo       repository.CycleRunRepository
	auditRepo     repository.AuditLogRepository
	db            *gorm.DB
	batchSize     int
}

func NewRecipientFlow(
	recipientRepo repository.EmailRecipientRepository,
	batchRepo repository.BatchRecipientRepository,
	runRepo repository.CycleRunRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	batchSize int,
) RecipientFlow {
	if batchSize <= 0 {
		batchSize = utils.BatchSize
	}
	return &RecipientFlowImpl{
		recipientRepo: recipientRepo,
		batchRepo:     batchRepo,
		runRepo:       runRepo,
		auditRepo:     auditRepo,
		db:            db,
		batchSize:     batchSize,
	}
}

func (f *RecipientFlowImpl) CreateRecipient(ctx context.Context, req *dto.CreateRecipientRequest, metadata *ClientMetadata) (*dto.EmailRecipientDTO, error) {
	if req == nil || req.Email == "" {
		return nil, NewBusinessError("RECIPIENT_VALIDATION_FAILED", "Email is required", ErrRecipientNotFound)
	}

	existing, err := f.recipientRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "Failed to lookup recipient", err)
	}
	if existing != nil {
		return nil, NewBusinessError("RECIPIENT_EXISTS", "Recipient with this email already exists", ErrRecipientExists)
	}

	recipient := &models.EmailRecipient{
		Email:    req.Email,
		Name:     req.Name,
		IsActive: utils.ToPtr(true),
	}
	if err := f.recipientRepo.Save(ctx, recipient); err != nil {
		return nil, NewBusinessError("RECIPIENT_CREATE_FAILED", "Failed to create recipient", err)
	}

	f.audit(ctx, models.AuditActionRecipientCreated, fmt.Sprintf("recipient %s created", recipient.Email), true, metadata)
	out := ToEmailRecipientDTO(*recipient)
	return &out, nil
}

func (f *RecipientFlowImpl) UpdateRecipient(ctx context.Context, id uint, req *dto.UpdateRecipientRequest, metadata *ClientMetadata) (*dto.EmailRecipientDTO, error) {
	recipient, err := f.recipientRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "Failed to lookup recipient", err)
	}
	if recipient == nil {
		return nil, NewBusinessError("RECIPIENT_NOT_FOUND", "Recipient not found", ErrRecipientNotFound)
	}

	if req.Email != nil && *req.Email != recipient.Email {
		existing, err := f.recipientRepo.ByEmail(ctx, *req.Email)
		if err != nil {
			return nil, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "Failed to lookup recipient", err)
		}
		if existing != nil {
			return nil, NewBusinessError("RECIPIENT_EXISTS", "Recipient with this email already exists", ErrRecipientExists)
		}
		recipient.Email = *req.Email
	}
	if req.Name != nil {
		recipient.Name = req.Name
	}
	if req.IsActive != nil {
		recipient.IsActive = req.IsActive
	}

	if err := f.recipientRepo.Update(ctx, recipient); err != nil {
		return nil, NewBusinessError("RECIPIENT_UPDATE_FAILED", "Failed to update recipient", err)
	}

	f.audit(ctx, models.AuditActionRecipientUpdated, fmt.Sprintf("recipient %d updated", recipient.ID), true, metadata)
	out := ToEmailRecipientDTO(*recipient)
	return &out, nil
}

func (f *RecipientFlowImpl) DeleteRecipient(ctx context.Context, id uint, metadata *ClientMetadata) error {
	recipient, err := f.recipientRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("RECIPIENT_LOOKUP_FAILED", "Failed to lookup recipient", err)
	}
	if recipient == nil {
		return NewBusinessError("RECIPIENT_NOT_FOUND", "Recipient not found", ErrRecipientNotFound)
	}

	if err := f.recipientRepo.Delete(ctx, id); err != nil {
		return NewBusinessError("RECIPIENT_DELETE_FAILED", "Failed to delete recipient", err)
	}

	f.audit(ctx, models.AuditActionRecipientDeleted, fmt.Sprintf("recipient %s deleted", recipient.Email), true, metadata)
	return nil
}

func (f *RecipientFlowImpl) ListRecipients(ctx context.Context, page, pageSize int) ([]dto.EmailRecipientDTO, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	filter := models.EmailRecipientFilter{}
	rows, err := f.recipientRepo.ByFilter(ctx, filter, "id ASC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "Failed to list recipients", err)
	}
	total, err := f.recipientRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "Failed to count recipients", err)
	}
	out := make([]dto.EmailRecipientDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToEmailRecipientDTO(*r))
	}
	return out, total, nil
}

func (f *RecipientFlowImpl) AppendBatchRecipient(ctx context.Context, req *dto.AppendBatchRecipientRequest, metadata *ClientMetadata) (*dto.BatchRecipientDTO, error) {
	if req == nil || req.Email == "" {
		return nil, NewBusinessError("RECIPIENT_VALIDATION_FAILED", "Email is required", ErrBatchRecipientNotFound)
	}

	row := &models.BatchRecipient{
		Email: req.Email,
		Name:  req.Name,
	}
	if err := f.batchRepo.Append(ctx, row); err != nil {
		return nil, NewBusinessError("BATCH_APPEND_FAILED", "Failed to append to bulk-send list", err)
	}

	f.audit(ctx, models.AuditActionRecipientCreated, fmt.Sprintf("batch recipient %s appended at position %d", row.Email, row.Position), true, metadata)
	out := ToBatchRecipientDTO(*row)
	return &out, nil
}

func (f *RecipientFlowImpl) UpdateBatchRecipient(ctx context.Context, id uint, req *dto.UpdateBatchRecipientRequest, metadata *ClientMetadata) (*dto.BatchRecipientDTO, error) {
	row, err := f.batchRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("BATCH_LOOKUP_FAILED", "Failed to lookup batch recipient", err)
	}
	if row == nil {
		return nil, NewBusinessError("BATCH_RECIPIENT_NOT_FOUND", "Batch recipient not found", ErrBatchRecipientNotFound)
	}

	if req.Email != nil {
		row.Email = *req.Email
	}
	if req.Name != nil {
		row.Name = req.Name
	}

	if err := f.batchRepo.Update(ctx, row); err != nil {
		return nil, NewBusinessError("BATCH_UPDATE_FAILED", "Failed to update batch recipient", err)
	}

	f.audit(ctx, models.AuditActionRecipientUpdated, fmt.Sprintf("batch recipient %d updated", row.ID), true, metadata)
	out := ToBatchRecipientDTO(*row)
	return &out, nil
}

func (f *RecipientFlowImpl) RemoveBatchRecipient(ctx context.Context, id uint, metadata *ClientMetadata) error {
	if err := f.batchRepo.Remove(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBatchRecipientNotFound) {
			return NewBusinessError("BATCH_RECIPIENT_NOT_FOUND", "Batch recipient not found", ErrBatchRecipientNotFound)
		}
		return NewBusinessError("BATCH_REMOVE_FAILED", "Failed to remove batch recipient", err)
	}

	f.audit(ctx, models.AuditActionRecipientDeleted, fmt.Sprintf("batch recipient %d removed", id), true, metadata)
	return nil
}

func (f *RecipientFlowImpl) ListBatch(ctx context.Context, batchNumber int) (*dto.BatchListDTO, error) {
	if batchNumber < 1 {
		return nil, NewBusinessError("INVALID_BATCH_NUMBER", "Batch number must be at least 1", ErrInvalidBatchNumber)
	}

	rows, err := f.batchRepo.ListBatch(ctx, batchNumber, f.batchSize)
	if err != nil {
		return nil, NewBusinessError("BATCH_LOOKUP_FAILED", "Failed to load batch", err)
	}
	total, err := f.batchRepo.Total(ctx)
	if err != nil {
		return nil, NewBusinessError("BATCH_LOOKUP_FAILED", "Failed to count bulk-send list", err)
	}

	totalBatches := int((total + int64(f.batchSize) - 1) / int64(f.batchSize))
	recipients := make([]dto.BatchRecipientDTO, 0, len(rows))
	for _, r := range rows {
		recipients = append(recipients, ToBatchRecipientDTO(*r))
	}

	return &dto.BatchListDTO{
		BatchNumber:  batchNumber,
		BatchSize:    f.batchSize,
		TotalBatches: totalBatches,
		Total:        total,
		Recipients:   recipients,
	}, nil
}

// ExportRecipients writes the whole distribution list to an XLSX workbook
func (f *RecipientFlowImpl) ExportRecipients(ctx context.Context) ([]byte, error) {
	rows, err := f.recipientRepo.ByFilter(ctx, models.EmailRecipientFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LOOKUP_FAILED", "Failed to list recipients", err)
	}

	file := excelize.NewFile()
	defer file.Close()

	sheet := "Recipients"
	file.SetSheetName("Sheet1", sheet)
	headers := []string{"ID", "Email", "Name", "Active", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(sheet, cell, h)
	}
	for i, r := range rows {
		rowIdx := i + 2
		name := ""
		if r.Name != nil {
			name = *r.Name
		}
		values := []any{r.ID, r.Email, name, utils.IsTrue(r.IsActive), r.CreatedAt.Format("2006-01-02 15:04:05")}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, rowIdx)
			file.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to write workbook", err)
	}
	return buf.Bytes(), nil
}

// ExportRuns writes the most recent ledger rows to an XLSX workbook
func (f *RecipientFlowImpl) ExportRuns(ctx context.Context, limit int) ([]byte, error) {
	if limit < 1 || limit > 10000 {
		limit = 1000
	}
	runs, err := f.runRepo.ListRecent(ctx, limit, 0)
	if err != nil {
		return nil, NewBusinessError("RUN_LOOKUP_FAILED", "Failed to load run ledger", err)
	}

	file := excelize.NewFile()
	defer file.Close()

	sheet := "Cycle Runs"
	file.SetSheetName("Sheet1", sheet)
	headers := []string{"ID", "Cycle", "Scheduled For", "Sent At", "Status", "Recipients", "Sent", "Failed", "Error"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(sheet, cell, h)
	}
	for i, run := range runs {
		rowIdx := i + 2
		errMsg := ""
		if run.Error != nil {
			errMsg = *run.Error
		}
		values := []any{
			run.ID,
			run.CycleNumber,
			run.ScheduledFor.Format("2006-01-02 15:04:05"),
			run.SentAt.Format("2006-01-02 15:04:05"),
			string(run.Status),
			run.RecipientCount,
			run.SentCount,
			run.FailedCount,
			errMsg,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, rowIdx)
			file.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to write workbook", err)
	}
	return buf.Bytes(), nil
}

func (f *RecipientFlowImpl) audit(ctx context.Context, action, description string, success bool, metadata *ClientMetadata) {
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

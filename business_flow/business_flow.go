// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/propline/propline/app/dto"
	"github.com/propline/propline/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToAdminDTO converts an admin model to AdminDTO for authentication responses
func ToAdminDTO(admin models.Admin) dto.AdminDTO {
	return dto.AdminDTO{
		ID:        admin.ID,
		UUID:      admin.UUID.String(),
		Username:  admin.Username,
		Role:      admin.Role,
		IsActive:  admin.IsActive,
		CreatedAt: admin.CreatedAt.Format(time.RFC3339),
	}
}

// ToEmailRecipientDTO converts a recipient model to its API representation
func ToEmailRecipientDTO(r models.EmailRecipient) dto.EmailRecipientDTO {
	return dto.EmailRecipientDTO{
		ID:        r.ID,
		UUID:      r.UUID.String(),
		Email:     r.Email,
		Name:      r.Name,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}
}

// ToBatchRecipientDTO converts a bulk-send list row to its API representation
func ToBatchRecipientDTO(r models.BatchRecipient) dto.BatchRecipientDTO {
	return dto.BatchRecipientDTO{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		Position:  r.Position,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

// ToListingDTO converts a listing model to its API representation
func ToListingDTO(l models.Listing) dto.ListingDTO {
	return dto.ListingDTO{
		ID:         l.ID,
		UUID:       l.UUID.String(),
		Title:      l.Title,
		Address:    l.Address,
		Price:      l.Price,
		CycleGroup: l.CycleGroup,
		IsActive:   l.IsActive,
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  l.UpdatedAt.Format(time.RFC3339),
	}
}

// ToCycleRunDTO converts a run ledger row to its API representation
func ToCycleRunDTO(run models.CycleRun) dto.CycleRunDTO {
	return dto.CycleRunDTO{
		ID:             run.ID,
		CycleNumber:    run.CycleNumber,
		ScheduledFor:   run.ScheduledFor,
		SentAt:         run.SentAt,
		Status:         string(run.Status),
		Error:          run.Error,
		RecipientCount: run.RecipientCount,
		SentCount:      run.SentCount,
		FailedCount:    run.FailedCount,
		ChunkErrors:    run.ChunkErrors,
		CreatedAt:      run.CreatedAt.Format(time.RFC3339),
	}
}

// ToRotationConfigDTO converts a schedule row to its API representation
func ToRotationConfigDTO(cfg models.CycleRotationConfig) dto.RotationConfigDTO {
	return dto.RotationConfigDTO{
		CycleNumber: cfg.CycleNumber,
		DayOfMonth:  cfg.DayOfMonth,
		Description: cfg.Description,
		UpdatedAt:   cfg.UpdatedAt.Format(time.RFC3339),
	}
}

// ToRotationStateDTO converts the rotation singleton to its API representation
func ToRotationStateDTO(state models.CycleRotationState) dto.RotationStateDTO {
	return dto.RotationStateDTO{
		CurrentCycle: state.CurrentCycle,
		NextRunAt:    state.NextRunAt,
		UpdatedAt:    state.UpdatedAt.Format(time.RFC3339),
	}
}

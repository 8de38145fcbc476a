package models

import (
	"time"
)

type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AdminID      *uint     `gorm:"index:idx_audit_admin_id" json:"admin_id,omitempty"`
	Admin        *Admin    `gorm:"foreignKey:AdminID;references:ID" json:"admin,omitempty"`
	Action       string    `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string   `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string   `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string   `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Success      *bool     `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionLoginSuccessful    = "login_successful"
	AuditActionLoginFailed        = "login_failed"
	AuditActionRecipientCreated   = "recipient_created"
	AuditActionRecipientUpdated   = "recipient_updated"
	AuditActionRecipientDeleted   = "recipient_deleted"
	AuditActionRotationTriggered  = "rotation_triggered"
	AuditActionRotationAdvanced   = "rotation_advanced"
	AuditActionRotationFailed     = "rotation_failed"
	AuditActionBatchSendRequested = "batch_send_requested"
	AuditActionScheduleUpdated    = "schedule_updated"
	AuditActionListingCreated     = "listing_created"
	AuditActionListingUpdated     = "listing_updated"
	AuditActionListingDeleted     = "listing_deleted"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	AdminID       *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

package dto

// EmailRecipientDTO is one member of the managed distribution list
type EmailRecipientDTO struct {
	ID        uint    `json:"id" example:"7"`
	UUID      string  `json:"uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	Email     string  `json:"email" example:"agent@brokerage.example"`
	Name      *string `json:"name,omitempty" example:"Jordan Smith"`
	IsActive  *bool   `json:"is_active" example:"true"`
	CreatedAt string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt string  `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// CreateRecipientRequest adds one address to the distribution list
type CreateRecipientRequest struct {
	Email string  `json:"email" validate:"required,email,max=255"`
	Name  *string `json:"name,omitempty" validate:"omitempty,max=255"`
}

// UpdateRecipientRequest edits one distribution list entry
type UpdateRecipientRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=255"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// BatchRecipientDTO is one member of the manual bulk-send list
type BatchRecipientDTO struct {
	ID        uint    `json:"id" example:"501"`
	Email     string  `json:"email" example:"lead@example.com"`
	Name      *string `json:"name,omitempty" example:"Taylor Reed"`
	Position  int64   `json:"position" example:"499"`
	CreatedAt string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// AppendBatchRecipientRequest appends one address to the bulk-send list
type AppendBatchRecipientRequest struct {
	Email string  `json:"email" validate:"required,email,max=255"`
	Name  *string `json:"name,omitempty" validate:"omitempty,max=255"`
}

// UpdateBatchRecipientRequest edits one bulk-send list entry in place
type UpdateBatchRecipientRequest struct {
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Name  *string `json:"name,omitempty" validate:"omitempty,max=255"`
}

// ListBatchRequest selects one positional batch of the bulk-send list
type ListBatchRequest struct {
	BatchNumber int `query:"batch" validate:"omitempty,min=1"`
}

// BatchListDTO is one page of the bulk-send list with batch bookkeeping
type BatchListDTO struct {
	BatchNumber  int                 `json:"batch_number" example:"2"`
	BatchSize    int                 `json:"batch_size" example:"500"`
	TotalBatches int                 `json:"total_batches" example:"4"`
	Total        int64               `json:"total" example:"1730"`
	Recipients   []BatchRecipientDTO `json:"recipients"`
}

// SendToBatchRequest dispatches the current listings to one positional batch
type SendToBatchRequest struct {
	BatchNumber int `json:"batch_number" validate:"required,min=1"`
	CycleNumber int `json:"cycle_number" validate:"required,min=1,max=3"`
}

// SendToBatchResponse reports the tally of a manual batch send
type SendToBatchResponse struct {
	BatchNumber    int      `json:"batch_number" example:"2"`
	RecipientCount int      `json:"recipient_count" example:"500"`
	SentCount      int      `json:"sent_count" example:"500"`
	FailedCount    int      `json:"failed_count" example:"0"`
	ChunkErrors    []string `json:"chunk_errors,omitempty"`
}

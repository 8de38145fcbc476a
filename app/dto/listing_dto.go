package dto

// ListingDTO is one property listing as returned by the API
type ListingDTO struct {
	ID         uint   `json:"id" example:"12"`
	UUID       string `json:"uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	Title      string `json:"title" example:"3BR colonial, quiet street"`
	Address    string `json:"address" example:"14 Juniper Ln, Fairfield"`
	Price      int64  `json:"price" example:"489000"`
	CycleGroup int    `json:"cycle_group" example:"2"`
	IsActive   *bool  `json:"is_active" example:"true"`
	CreatedAt  string `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt  string `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// CreateListingRequest adds one property listing
type CreateListingRequest struct {
	Title      string `json:"title" validate:"required,min=3,max=255"`
	Address    string `json:"address" validate:"required,min=3,max=512"`
	Price      int64  `json:"price" validate:"required,gt=0"`
	CycleGroup int    `json:"cycle_group" validate:"required,min=1,max=3"`
}

// UpdateListingRequest edits one property listing
type UpdateListingRequest struct {
	Title      *string `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Address    *string `json:"address,omitempty" validate:"omitempty,min=3,max=512"`
	Price      *int64  `json:"price,omitempty" validate:"omitempty,gt=0"`
	CycleGroup *int    `json:"cycle_group,omitempty" validate:"omitempty,min=1,max=3"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// ListListingsRequest filters the listing index
type ListListingsRequest struct {
	CycleGroup *int  `query:"cycle_group" validate:"omitempty,min=1,max=3"`
	IsActive   *bool `query:"is_active"`
	Page       int   `query:"page" validate:"omitempty,min=1"`
	PageSize   int   `query:"page_size" validate:"omitempty,min=1,max=200"`
}

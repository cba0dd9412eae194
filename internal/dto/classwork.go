package dto

import (
	"time"

	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

// CreateClassworkRequest posts a classwork item to a class.
type CreateClassworkRequest struct {
	Title       string           `json:"title" validate:"required,max=255"`
	Type        string           `json:"type" validate:"omitempty,max=50"`
	Description *string          `json:"description"`
	DueAt       *time.Time       `json:"dueAt"`
	Rubric      jsondoc.Document `json:"rubric"`
	Extra       jsondoc.Document `json:"extra"`
}

// UpdateClassworkRequest is a partial update; absent fields are left unchanged.
type UpdateClassworkRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	DueAt       *time.Time `json:"dueAt"`
}

// Empty reports whether the update carries no changes.
func (r UpdateClassworkRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.DueAt == nil
}

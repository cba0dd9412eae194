package models

import (
	"strings"
	"time"

	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

// ClassworkItem is an assignment, activity, quiz or material posted to a class.
// Rubric and Extra are stored and returned without interpretation.
type ClassworkItem struct {
	ID          string           `db:"id" json:"id"`
	ClassID     string           `db:"class_id" json:"class_id"`
	Title       string           `db:"title" json:"title"`
	Type        string           `db:"type" json:"type"`
	Description *string          `db:"description" json:"description,omitempty"`
	DueAt       *time.Time       `db:"due_at" json:"due_at,omitempty"`
	Rubric      jsondoc.Document `db:"rubric_json" json:"rubric"`
	Extra       jsondoc.Document `db:"extra_json" json:"extra"`
	CreatedBy   *string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// PerformanceTaskGroup is the display group for activities and assignments.
const PerformanceTaskGroup = "Performance Task"

// GroupLabel maps the item type to its grade summary group.
func GroupLabel(itemType string) string {
	switch strings.ToLower(strings.TrimSpace(itemType)) {
	case "activity", "assignment":
		return PerformanceTaskGroup
	default:
		return itemType
	}
}

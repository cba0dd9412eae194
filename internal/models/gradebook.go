package models

import (
	"time"

	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

// Default split between midterm and finals when a teacher has not chosen one.
const (
	DefaultMidtermPercentage = 50
	DefaultFinalsPercentage  = 50
)

// GradebookConfig is a teacher-authored gradebook layout, one per class.
// The table and grade documents are opaque to the server.
type GradebookConfig struct {
	ID                string           `db:"id" json:"id"`
	ClassID           string           `db:"class_id" json:"classId"`
	MidtermPercentage int              `db:"midterm_percentage" json:"midtermPercentage"`
	FinalsPercentage  int              `db:"finals_percentage" json:"finalsPercentage"`
	MidtermTables     jsondoc.Document `db:"midterm_tables" json:"midtermTables"`
	FinalsTables      jsondoc.Document `db:"finals_tables" json:"finalsTables"`
	Grades            jsondoc.Document `db:"grades" json:"grades"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updatedAt"`
}

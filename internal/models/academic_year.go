package models

import "time"

// AcademicYearStatus marks whether an academic year is the current one.
type AcademicYearStatus string

const (
	AcademicYearActive   AcademicYearStatus = "active"
	AcademicYearInactive AcademicYearStatus = "inactive"
)

// AcademicYear is an uploaded academic calendar document. Several versions may share a
// year name; at most one row is active.
type AcademicYear struct {
	ID             string             `db:"id" json:"id"`
	YearName       string             `db:"year_name" json:"year_name"`
	Version        string             `db:"version" json:"version,omitempty"`
	FileName       string             `db:"file_name" json:"file_name,omitempty"`
	StoredName     string             `db:"stored_name" json:"-"`
	FilePath       string             `db:"-" json:"file_path,omitempty"`
	Notes          *string            `db:"notes" json:"notes,omitempty"`
	UploadedBy     *string            `db:"uploaded_by" json:"-"`
	UploadedByName string             `db:"uploaded_by_name" json:"uploaded_by_name,omitempty"`
	Status         AcademicYearStatus `db:"status" json:"status"`
	CreatedAt      *time.Time         `db:"created_at" json:"created_at,omitempty"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

// DefaultTotalPoints is the grade denominator used when none is recorded.
const DefaultTotalPoints = 100.0

// GradedByTeacher marks grades entered through the grading endpoint.
const GradedByTeacher = "teacher"

// SubmissionFile describes one attachment. OriginalName is for display only.
type SubmissionFile struct {
	OriginalName string `json:"originalName"`
	StoredName   string `json:"storedName,omitempty"`
	URL          string `json:"url,omitempty"`
	Size         int64  `json:"size,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	DownloadURL  string `json:"download_url,omitempty"`
}

// SubmissionFiles is the ordered attachment list stored in files_json.
type SubmissionFiles []SubmissionFile

// Value stores nil lists as SQL NULL.
func (f SubmissionFiles) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	stored := make([]SubmissionFile, len(f))
	for i, file := range f {
		file.DownloadURL = ""
		stored[i] = file
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (f *SubmissionFiles) Scan(src interface{}) error {
	raw, err := scanBytes(src)
	if err != nil || raw == nil {
		*f = nil
		return err
	}
	var files []SubmissionFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return fmt.Errorf("decode files_json: %w", err)
	}
	*f = files
	return nil
}

// SubmissionGrade is the grade payload stored in grade_json.
type SubmissionGrade struct {
	Score       float64    `json:"score"`
	TotalPoints *float64   `json:"totalPoints,omitempty"`
	GradedBy    string     `json:"gradedBy,omitempty"`
	GradedAt    *time.Time `json:"gradedAt,omitempty"`
}

// Max returns TotalPoints, defaulting to 100 when unset.
func (g SubmissionGrade) Max() float64 {
	if g.TotalPoints == nil {
		return DefaultTotalPoints
	}
	return *g.TotalPoints
}

// Value implements driver.Valuer.
func (g SubmissionGrade) Value() (driver.Value, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (g *SubmissionGrade) Scan(src interface{}) error {
	raw, err := scanBytes(src)
	if err != nil {
		return err
	}
	if raw == nil {
		*g = SubmissionGrade{}
		return nil
	}
	if err := json.Unmarshal(raw, g); err != nil {
		return fmt.Errorf("decode grade_json: %w", err)
	}
	return nil
}

// Submission is a student's single attempt record for one classwork item.
type Submission struct {
	ID          string           `db:"id" json:"id"`
	ClassworkID string           `db:"classwork_id" json:"classwork_id"`
	UserID      string           `db:"user_id" json:"user_id"`
	SubmittedAt *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	Files       SubmissionFiles  `db:"files_json" json:"files"`
	Answers     jsondoc.Document `db:"answers_json" json:"answers"`
	Grade       *SubmissionGrade `db:"grade_json" json:"grade"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionWithStudent is a submission row joined with its author for the teacher view.
type SubmissionWithStudent struct {
	Submission
	StudentName  *string `db:"student_name" json:"student_name,omitempty"`
	StudentEmail string  `db:"student_email" json:"student_email"`
}

// MySubmission is the caller's view of their own submission.
type MySubmission struct {
	Submitted      bool              `json:"submitted"`
	SubmissionID   string            `json:"submission_id,omitempty"`
	SubmissionTime *time.Time        `json:"submission_time,omitempty"`
	Files          SubmissionFiles   `json:"files,omitempty"`
	Grade          *SubmissionGrade  `json:"grade,omitempty"`
	Answers        *jsondoc.Document `json:"answers,omitempty"`
}

func scanBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v) == 0 || string(v) == "null" {
			return nil, nil
		}
		return v, nil
	case string:
		return scanBytes([]byte(v))
	default:
		return nil, fmt.Errorf("unsupported scan type %T", src)
	}
}

package dto

import (
	"io"

	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

// Upload is one attachment received with a submission.
type Upload struct {
	OriginalName string
	Size         int64
	MimeType     string
	Open         func() (io.ReadCloser, error)
}

// SubmitRequest carries a student's submission for one classwork item.
type SubmitRequest struct {
	ClassworkID string `validate:"required"`
	UserID      string `validate:"required"`
	Uploads     []Upload
	Answers     jsondoc.Document
}

// GradeSubmissionRequest grades a submission, addressed by id or by (classwork, student).
type GradeSubmissionRequest struct {
	ClassworkID  string   `json:"-" validate:"required"`
	SubmissionID string   `json:"-"`
	UserID       string   `json:"userId"`
	Score        *float64 `json:"score" validate:"required,gte=0"`
}

package dto

import "github.com/noah-isme/gradsmart-api/internal/models"

// CreateClassRequest creates a class owned by the caller. All display fields are optional;
// the stored class name falls back through className, courseName and program.
type CreateClassRequest struct {
	Program     *string `json:"program" validate:"omitempty,max=120"`
	ClassName   *string `json:"className" validate:"omitempty,max=160"`
	Section     *string `json:"section" validate:"omitempty,max=60"`
	SubjectCode *string `json:"subjectCode" validate:"omitempty,max=40"`
	CourseName  *string `json:"courseName" validate:"omitempty,max=160"`
	Description *string `json:"description"`
	ClassCode   *string `json:"classCode" validate:"omitempty,alphanum,min=4,max=16"`
}

// JoinClassRequest asks to join a class by its code.
type JoinClassRequest struct {
	ClassCode string `json:"classCode" validate:"required"`
}

// JoinClassResult reports the outcome of a join request.
type JoinClassResult struct {
	Message string              `json:"message"`
	ClassID string              `json:"classId,omitempty"`
	Class   *models.Class       `json:"class,omitempty"`
	Joined  *models.JoinedClass `json:"joined,omitempty"`
	Created bool                `json:"-"`
}

// AddInstructorRequest attaches another teaching user to a class.
type AddInstructorRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Role   string `json:"role" validate:"omitempty,oneof=instructor ta"`
}

package models

import "time"

// Class is a course section owned by one teacher.
type Class struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	Program     *string   `db:"program" json:"program,omitempty"`
	ClassName   string    `db:"class_name" json:"class_name"`
	Section     *string   `db:"section" json:"section,omitempty"`
	SubjectCode *string   `db:"subject_code" json:"subject_code,omitempty"`
	CourseName  *string   `db:"course_name" json:"course_name,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Status      string    `db:"status" json:"status"`
	ClassCode   string    `db:"class_code" json:"class_code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorRole is the role a user holds inside one class.
type InstructorRole string

const (
	InstructorOwner      InstructorRole = "owner"
	InstructorInstructor InstructorRole = "instructor"
	InstructorTA         InstructorRole = "ta"
)

// ClassInstructor links a teaching user to a class.
type ClassInstructor struct {
	ID          string         `db:"id" json:"id"`
	ClassID     string         `db:"class_id" json:"class_id"`
	UserID      string         `db:"user_id" json:"user_id"`
	RoleInClass InstructorRole `db:"role_in_class" json:"role_in_class"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// JoinStatus tracks a student's membership request.
type JoinStatus string

const (
	JoinPending  JoinStatus = "pending"
	JoinAccepted JoinStatus = "accepted"
)

// JoinedClass records a student's membership in a class.
type JoinedClass struct {
	ID       string     `db:"id" json:"id"`
	UserID   string     `db:"user_id" json:"user_id"`
	ClassID  string     `db:"class_id" json:"class_id"`
	Program  *string    `db:"program" json:"program,omitempty"`
	Status   JoinStatus `db:"status" json:"status"`
	JoinedAt time.Time  `db:"joined_at" json:"joined_at"`
}

// JoinedClassView is a membership joined with its class for listings.
type JoinedClassView struct {
	JoinedClass
	ClassName   string  `db:"class_name" json:"class_name"`
	Section     *string `db:"section" json:"section,omitempty"`
	SubjectCode *string `db:"subject_code" json:"subject_code,omitempty"`
	ClassCode   string  `db:"class_code" json:"class_code"`
	OwnerID     string  `db:"owner_id" json:"owner_id"`
}

// RosterMember is one person on a class roster.
type RosterMember struct {
	UserID string  `db:"user_id" json:"user_id"`
	Name   *string `db:"name" json:"name,omitempty"`
	Email  string  `db:"email" json:"email"`
	Role   string  `db:"role" json:"role"`
	Status *string `db:"status" json:"status,omitempty"`
}

// Roster groups the people attached to a class.
type Roster struct {
	ClassID     string         `json:"class_id"`
	Owner       *RosterMember  `json:"owner,omitempty"`
	Instructors []RosterMember `json:"instructors"`
	Students    []RosterMember `json:"students"`
}

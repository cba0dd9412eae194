package models

import (
	"strings"
	"time"
)

// UserRole is the coarse role stored on the user row.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// User represents an application user stored in the users table.
type User struct {
	ID             string    `db:"id" json:"id"`
	Name           *string   `db:"name" json:"name,omitempty"`
	FirstName      *string   `db:"first_name" json:"first_name,omitempty"`
	LastName       *string   `db:"last_name" json:"last_name,omitempty"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Role           UserRole  `db:"role" json:"role"`
	GooglePicture  *string   `db:"google_picture" json:"google_picture,omitempty"`
	ProfilePicture *string   `db:"profile_picture" json:"profile_picture,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName prefers the full name column and falls back to "first last".
func (u User) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return strings.TrimSpace(*u.Name)
	}
	parts := make([]string, 0, 2)
	for _, p := range []*string{u.FirstName, u.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	return strings.Join(parts, " ")
}

// EffectiveRole defaults an empty role to student.
func (u User) EffectiveRole() UserRole {
	if u.Role == "" {
		return RoleStudent
	}
	return u.Role
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Role    UserRole `json:"role"`
	Picture *string  `json:"picture,omitempty"`
}

// Profile builds the public view of u.
func (u User) Profile() UserProfile {
	picture := u.ProfilePicture
	if picture == nil || *picture == "" {
		picture = u.GooglePicture
	}
	return UserProfile{ID: u.ID, Name: u.DisplayName(), Email: u.Email, Role: u.EffectiveRole(), Picture: picture}
}

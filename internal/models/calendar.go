package models

import "time"

// CalendarEvent is a due-dated classwork item from one of the user's classes.
type CalendarEvent struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	ClassName string    `db:"class_name" json:"class_name"`
	Title     string    `db:"title" json:"title"`
	Type      string    `db:"type" json:"type"`
	DueAt     time.Time `db:"due_at" json:"due_at"`
}

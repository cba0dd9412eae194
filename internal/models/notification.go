package models

import (
	"time"

	"github.com/noah-isme/gradsmart-api/pkg/jsondoc"
)

// NotificationType categorises notifications shown to users.
type NotificationType string

const (
	NotificationClassworkPosted NotificationType = "classwork_posted"
	NotificationGraded          NotificationType = "graded"
	NotificationJoinRequest     NotificationType = "join_request"
)

// Notification is a persisted message for one user.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"user_id"`
	ClassID     *string          `db:"class_id" json:"class_id,omitempty"`
	ClassworkID *string          `db:"classwork_id" json:"classwork_id,omitempty"`
	Type        NotificationType `db:"type" json:"type"`
	Title       *string          `db:"title" json:"title,omitempty"`
	Message     string           `db:"message" json:"message"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	ReadAt      *time.Time       `db:"read_at" json:"read_at,omitempty"`
}

// DeviceToken is a push token registered by a client.
type DeviceToken struct {
	UserID     string           `db:"user_id" json:"user_id"`
	Token      string           `db:"token" json:"token"`
	DeviceInfo jsondoc.Document `db:"device_info" json:"device_info"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

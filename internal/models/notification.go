package models

import "time"

// NotificationType distinguishes follow events from profile visits.
type NotificationType string

const (
	// NotificationFollow is created when another user follows the recipient.
	NotificationFollow NotificationType = "follow"
	// NotificationVisit is created when another user views the recipient's profile.
	NotificationVisit NotificationType = "visit"
)

// Notification is a per-user inbox entry.
type Notification struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;index:idx_notifications_user" json:"user_id"`
	FromUserID uint             `gorm:"not null" json:"from_user_id"`
	Type       NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message    string           `gorm:"size:255;not null" json:"message"`
	Read       bool             `gorm:"not null;default:false;index:idx_notifications_user" json:"read"`
	CreatedAt  time.Time        `json:"timestamp"`

	// Relationships
	FromUser User `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

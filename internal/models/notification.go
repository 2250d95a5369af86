package models

import (
	"fmt"
	"time"
)

// NotificationType tags what triggered a notification.
type NotificationType string

// Notification types
const (
	NotifyNewPost NotificationType = "new_post"
	NotifyLike    NotificationType = "like"
)

// Notification belongs to exactly one recipient. Read only ever moves from
// false to true.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:varchar(64);column:id" json:"id"`
	RecipientID string           `gorm:"type:varchar(128);not null;index:notifications_recipient_idx;column:recipient_id" json:"recipient_id"`
	Type        NotificationType `gorm:"type:varchar(16);not null;column:type" json:"type"`
	PostID      string           `gorm:"type:varchar(64);not null;column:post_id" json:"post_id"`
	PostTitle   string           `gorm:"type:varchar(80);not null;default:'';column:post_title" json:"post_title"`
	AuthorID    string           `gorm:"type:varchar(128);not null;column:author_id" json:"author_id"`
	AuthorName  string           `gorm:"type:varchar(255);not null;default:'';column:author_name" json:"author_name"`
	Message     string           `gorm:"type:varchar(512);not null;default:'';column:message" json:"message"`
	CreatedAt   time.Time        `gorm:"not null;column:created_at" json:"created_at"`
	Read        bool             `gorm:"not null;default:false;column:read" json:"read"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// RenderMessage builds the human-readable text stored with a notification.
func RenderMessage(typ NotificationType, authorName, postTitle string) string {
	switch typ {
	case NotifyLike:
		return fmt.Sprintf("%s liked your post: %s", authorName, postTitle)
	default:
		return fmt.Sprintf("%s published: %s", authorName, postTitle)
	}
}

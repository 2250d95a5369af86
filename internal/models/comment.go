package models

import "time"

// Comment belongs to exactly one post.
type Comment struct {
	ID         string    `gorm:"primaryKey;type:varchar(64);column:id" json:"id"`
	PostID     string    `gorm:"type:varchar(64);not null;index:comments_post_idx;column:post_id" json:"post_id"`
	AuthorID   string    `gorm:"type:varchar(128);not null;column:author_id" json:"author_id"`
	AuthorName string    `gorm:"type:varchar(255);not null;default:'';column:author_name" json:"author_name"`
	Text       string    `gorm:"type:varchar(200);not null;column:text" json:"text"`
	CreatedAt  time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

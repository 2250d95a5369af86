package models

import (
	"strings"
	"time"
)

// Visibility tags who a post is meant for.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityFriends Visibility = "friends"
)

// ParseVisibility decodes a visibility tag; anything unrecognised is public.
func ParseVisibility(s string) Visibility {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case VisibilityPrivate, VisibilityFriends:
		return v
	default:
		return VisibilityPublic
	}
}

// Post represents an authored post. Likes and Dislikes are loaded from the
// reaction records and are disjoint.
type Post struct {
	ID         string     `gorm:"primaryKey;type:varchar(64);column:id" json:"id"`
	AuthorID   string     `gorm:"type:varchar(128);not null;index:posts_author_idx;column:author_id" json:"author_id"`
	AuthorName string     `gorm:"type:varchar(255);not null;default:'';column:author_name" json:"author_name"`
	Title      string     `gorm:"type:varchar(80);not null;column:title" json:"title"`
	Body       string     `gorm:"type:varchar(500);not null;column:body" json:"body"`
	MediaURL   string     `gorm:"type:varchar(1024);not null;default:'';column:media_url" json:"media_url"`
	Visibility Visibility `gorm:"type:varchar(16);not null;default:'public';column:visibility" json:"visibility"`
	CreatedAt  time.Time  `gorm:"not null;index:posts_created_idx;column:created_at" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;column:updated_at" json:"updated_at"`

	Likes    []string `gorm:"-" json:"likes"`
	Dislikes []string `gorm:"-" json:"dislikes"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Clone returns a deep copy so snapshots never share reaction slices.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Likes = append([]string(nil), p.Likes...)
	c.Dislikes = append([]string(nil), p.Dislikes...)
	return &c
}

// LikedBy reports whether the account liked the post.
func (p *Post) LikedBy(accountID string) bool {
	return contains(p.Likes, accountID)
}

// DislikedBy reports whether the account disliked the post.
func (p *Post) DislikedBy(accountID string) bool {
	return contains(p.Dislikes, accountID)
}

// ReactionKind is a like or a dislike.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Valid reports whether the kind is known.
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// Reaction is one account's reaction to one post. An account holds at most
// one reaction per post.
type Reaction struct {
	PostID    string       `gorm:"primaryKey;type:varchar(64);column:post_id" json:"post_id"`
	AccountID string       `gorm:"primaryKey;type:varchar(128);column:account_id" json:"account_id"`
	Kind      ReactionKind `gorm:"type:varchar(16);not null;column:kind" json:"kind"`
	CreatedAt time.Time    `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Reaction
func (Reaction) TableName() string {
	return "post_reactions"
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

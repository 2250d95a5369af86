// Package store declares the document-store ports the core talks to. Reads
// return nil (not an error) when a record does not exist, and every write is
// atomic for the single record it touches.
package store

import (
	"context"

	"github.com/jalasoft/jalanews/internal/models"
)

// Accounts reads the profiles owned by the authentication collaborator.
type Accounts interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

// AccountWriter seeds profiles; only the authentication glue and tests use it.
type AccountWriter interface {
	PutAccount(ctx context.Context, account *models.Account) error
}

// Edges stores one edge-list record per account. Records are created lazily
// by the first AddEdge and never deleted.
type Edges interface {
	GetEdgeList(ctx context.Context, accountID string) (*models.EdgeList, error)
	// AddEdge adds member to one side of owner's record. Adding an existing
	// member is a no-op.
	AddEdge(ctx context.Context, ownerID string, kind models.EdgeKind, memberID string) error
	// RemoveEdge removes member from one side of owner's record. Removing an
	// absent member, or touching an absent record, is a no-op.
	RemoveEdge(ctx context.Context, ownerID string, kind models.EdgeKind, memberID string) error
}

// Posts stores posts and their reactions.
type Posts interface {
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	// UpdatePost overwrites the editable fields of an existing post.
	UpdatePost(ctx context.Context, post *models.Post) error
	// DeletePost removes the post with its comments and reactions.
	// Notifications referencing it are left in place.
	DeletePost(ctx context.Context, id string) error
	// ListPosts returns posts newest first.
	ListPosts(ctx context.Context, limit int) ([]*models.Post, error)
	// SetReaction records the account's reaction, replacing any previous
	// one. An empty kind clears it.
	SetReaction(ctx context.Context, postID, accountID string, kind models.ReactionKind) error
}

// Comments stores the comments of posts.
type Comments interface {
	GetComment(ctx context.Context, postID, id string) (*models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, postID, id string) error
	// ListComments returns the comments of a post oldest first.
	ListComments(ctx context.Context, postID string) ([]*models.Comment, error)
}

// Notifications stores per-recipient inboxes.
type Notifications interface {
	GetNotification(ctx context.Context, recipientID, id string) (*models.Notification, error)
	// CreateNotification inserts n unless a notification with the same id
	// already exists, and reports whether it inserted.
	CreateNotification(ctx context.Context, n *models.Notification) (bool, error)
	// MarkNotificationRead sets read=true. A missing notification is not an
	// error.
	MarkNotificationRead(ctx context.Context, recipientID, id string) error
	// ListNotifications returns the inbox newest first, ties by id.
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)
}

// Store is a complete document-store backend. Every write publishes change
// notices on the backend's Bus.
type Store interface {
	Accounts
	AccountWriter
	Edges
	Posts
	Comments
	Notifications

	Bus() Bus
	Health(ctx context.Context) error
	Close() error
}

// Package events announces post lifecycle changes to other services.
// Delivery is best effort; callers log failures and carry on.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/jalasoft/jalanews/internal/models"
)

// Subjects
const (
	SubjectPostCreated = "post.created"
	SubjectPostDeleted = "post.deleted"
)

// PostCreatedEvent is the payload of SubjectPostCreated.
type PostCreatedEvent struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Title      string    `json:"title"`
	Visibility string    `json:"visibility"`
	Recipients int       `json:"recipients"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostDeletedEvent is the payload of SubjectPostDeleted.
type PostDeletedEvent struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
}

// Publisher sends lifecycle events.
type Publisher interface {
	PostCreated(ctx context.Context, post *models.Post, recipients int) error
	PostDeleted(ctx context.Context, post *models.Post) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PostCreated(context.Context, *models.Post, int) error { return nil }
func (Nop) PostDeleted(context.Context, *models.Post) error      { return nil }
func (Nop) Close() error                                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu      sync.Mutex
	Created []PostCreatedEvent
	Deleted []PostDeletedEvent
}

func (r *Recorder) PostCreated(_ context.Context, post *models.Post, recipients int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Created = append(r.Created, newPostCreated(post, recipients))
	return nil
}

func (r *Recorder) PostDeleted(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, PostDeletedEvent{ID: post.ID, AuthorID: post.AuthorID})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Snapshot returns copies of the recorded events.
func (r *Recorder) Snapshot() ([]PostCreatedEvent, []PostDeletedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PostCreatedEvent(nil), r.Created...), append([]PostDeletedEvent(nil), r.Deleted...)
}

func newPostCreated(post *models.Post, recipients int) PostCreatedEvent {
	return PostCreatedEvent{
		ID:         post.ID,
		AuthorID:   post.AuthorID,
		Title:      post.Title,
		Visibility: string(post.Visibility),
		Recipients: recipients,
		CreatedAt:  post.CreatedAt,
	}
}

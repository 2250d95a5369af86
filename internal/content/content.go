// Package content handles post edits, reactions and comments: the plumbing
// around the fan-out path.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/events"
	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
)

var (
	// ErrForbidden is returned when the actor does not own the record.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a mutation targets a missing record.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for text that breaks a field rule.
	ErrInvalidInput = models.ErrInvalidInput
)

// Store is the subset of the document store content writes to.
type Store interface {
	store.Posts
	store.Comments
}

// LikeNotifier tells authors about likes.
type LikeNotifier interface {
	NotifyLike(ctx context.Context, post *models.Post, liker *models.Account) error
}

// Edit carries the editable fields of a post.
type Edit struct {
	Title      string
	Body       string
	MediaURL   string
	Visibility string
}

// Service manages posts after publication
type Service struct {
	store  Store
	likes  LikeNotifier
	events events.Publisher
	logger *zap.Logger
}

// NewService creates a new content service
func NewService(st Store, likes LikeNotifier, pub events.Publisher, logger *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:  st,
		likes:  likes,
		events: pub,
		logger: logger,
	}
}

// GetPost returns a post with its reactions, or nil if it does not exist.
func (s *Service) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", postID, err)
	}
	return post, nil
}

func (s *Service) ownedPost(ctx context.Context, actorID, postID string) (*models.Post, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, nil
	}
	if post.AuthorID != actorID {
		return nil, fmt.Errorf("%w: post %s belongs to another account", ErrForbidden, postID)
	}
	return post, nil
}

// UpdatePost replaces the editable fields of the actor's post.
func (s *Service) UpdatePost(ctx context.Context, actorID, postID string, edit Edit) (*models.Post, error) {
	if err := models.ValidatePostText(edit.Title, edit.Body); err != nil {
		return nil, err
	}
	post, err := s.ownedPost(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post %s", ErrNotFound, postID)
	}

	post.Title = edit.Title
	post.Body = edit.Body
	post.MediaURL = edit.MediaURL
	post.Visibility = models.ParseVisibility(edit.Visibility)
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post %s: %w", postID, err)
	}
	return post, nil
}

// DeletePost removes the actor's post. Deleting a missing post succeeds.
// Notifications that reference it stay in their inboxes.
func (s *Service) DeletePost(ctx context.Context, actorID, postID string) error {
	post, err := s.ownedPost(ctx, actorID, postID)
	if err != nil || post == nil {
		return err
	}
	if err := s.store.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post %s: %w", postID, err)
	}
	if err := s.events.PostDeleted(ctx, post); err != nil {
		s.logger.Warn("Failed to publish post event",
			zap.String("post_id", postID),
			zap.Error(err))
	}
	s.logger.Debug("Deleted post", zap.String("post_id", postID))
	return nil
}

// React toggles the actor's reaction. Choosing the reaction the actor
// already holds clears it; choosing the other one replaces it, so an
// account never both likes and dislikes a post.
func (s *Service) React(ctx context.Context, actor *models.Account, postID string, kind models.ReactionKind) (*models.Post, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown reaction %q", ErrInvalidInput, kind)
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post %s", ErrNotFound, postID)
	}

	next := kind
	if (kind == models.ReactionLike && post.LikedBy(actor.ID)) ||
		(kind == models.ReactionDislike && post.DislikedBy(actor.ID)) {
		next = ""
	}
	if err := s.store.SetReaction(ctx, postID, actor.ID, next); err != nil {
		return nil, fmt.Errorf("failed to react to post %s: %w", postID, err)
	}

	if next == models.ReactionLike && s.likes != nil {
		if err := s.likes.NotifyLike(ctx, post, actor); err != nil {
			s.logger.Warn("Failed to notify like",
				zap.String("post_id", postID),
				zap.String("liker_id", actor.ID),
				zap.Error(err))
		}
	}

	return s.GetPost(ctx, postID)
}

// AddComment appends the actor's comment to a post.
func (s *Service) AddComment(ctx context.Context, actor *models.Account, postID, text string) (*models.Comment, error) {
	if err := models.ValidateText("comment", text, models.MaxCommentLength); err != nil {
		return nil, err
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post %s", ErrNotFound, postID)
	}

	comment := &models.Comment{
		ID:         uuid.NewString(),
		PostID:     postID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name(),
		Text:       text,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment to post %s: %w", postID, err)
	}
	return comment, nil
}

// DeleteComment removes the actor's own comment. Deleting a missing
// comment succeeds.
func (s *Service) DeleteComment(ctx context.Context, actorID, postID, commentID string) error {
	comment, err := s.store.GetComment(ctx, postID, commentID)
	if err != nil {
		return fmt.Errorf("failed to get comment %s: %w", commentID, err)
	}
	if comment == nil {
		return nil
	}
	if comment.AuthorID != actorID {
		return fmt.Errorf("%w: comment %s belongs to another account", ErrForbidden, commentID)
	}
	if err := s.store.DeleteComment(ctx, postID, commentID); err != nil {
		return fmt.Errorf("failed to delete comment %s: %w", commentID, err)
	}
	return nil
}

// ListComments returns a post's comments oldest first.
func (s *Service) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	comments, err := s.store.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of %s: %w", postID, err)
	}
	return comments, nil
}

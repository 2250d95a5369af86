// Package inbox reads and updates per-recipient notification inboxes.
package inbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
)

// DefaultLimit caps how many notifications one read returns.
const DefaultLimit = 100

// livenessWorkers bounds concurrent post lookups in CheckLiveness.
const livenessWorkers = 8

// PostReader looks posts up by id.
type PostReader interface {
	GetPost(ctx context.Context, id string) (*models.Post, error)
}

// Service manages notification inboxes
type Service struct {
	notifications store.Notifications
	posts         PostReader
	bus           store.Bus
	limit         int
	logger        *zap.Logger
}

// NewService creates a new inbox service
func NewService(notifications store.Notifications, posts PostReader, bus store.Bus, limit int, logger *zap.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{
		notifications: notifications,
		posts:         posts,
		bus:           bus,
		limit:         limit,
		logger:        logger,
	}
}

// MarkRead flags one notification as read. Marking an already read or
// missing notification succeeds.
func (s *Service) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	if err := s.notifications.MarkNotificationRead(ctx, recipientID, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", notificationID, err)
	}
	s.logger.Debug("Marked notification read",
		zap.String("recipient_id", recipientID),
		zap.String("notification_id", notificationID))
	return nil
}

// List returns the recipient's notifications newest first, ties by id.
func (s *Service) List(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	list, err := s.notifications.ListNotifications(ctx, recipientID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications of %s: %w", recipientID, err)
	}
	return list, nil
}

// Watch streams the recipient's inbox, pushing a full snapshot after every
// change.
func (s *Service) Watch(ctx context.Context, recipientID string) (<-chan store.Snapshot[[]*models.Notification], error) {
	load := func(ctx context.Context) ([]*models.Notification, error) {
		return s.List(ctx, recipientID)
	}
	return store.Watch(ctx, s.bus, load, store.TopicNotifications(recipientID))
}

// IsReferencedEntityLive reports whether the notification's post still
// exists. It is a point-in-time check and is not re-evaluated.
func (s *Service) IsReferencedEntityLive(ctx context.Context, n *models.Notification) (bool, error) {
	if n == nil || n.PostID == "" {
		return false, nil
	}
	post, err := s.posts.GetPost(ctx, n.PostID)
	if err != nil {
		return false, fmt.Errorf("failed to look up post %s: %w", n.PostID, err)
	}
	return post != nil, nil
}

// CheckLiveness runs one point-in-time check per distinct post referenced
// by the batch. Posts whose lookup failed are left out of the result.
func (s *Service) CheckLiveness(ctx context.Context, batch []*models.Notification) map[string]bool {
	distinct := make(map[string]*models.Notification)
	for _, n := range batch {
		if n == nil || n.PostID == "" {
			continue
		}
		if _, ok := distinct[n.PostID]; !ok {
			distinct[n.PostID] = n
		}
	}

	var (
		g       errgroup.Group
		results = make(chan liveness, len(distinct))
	)
	g.SetLimit(livenessWorkers)
	for postID, n := range distinct {
		postID, n := postID, n
		g.Go(func() error {
			live, err := s.IsReferencedEntityLive(ctx, n)
			if err != nil {
				s.logger.Debug("Liveness check failed", zap.String("post_id", postID), zap.Error(err))
				return nil
			}
			results <- liveness{postID: postID, live: live}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	live := make(map[string]bool, len(distinct))
	for r := range results {
		live[r.postID] = r.live
	}
	return live
}

type liveness struct {
	postID string
	live   bool
}

// UnreadCount counts the unread notifications in a snapshot.
func UnreadCount(batch []*models.Notification) int {
	count := 0
	for _, n := range batch {
		if n != nil && !n.Read {
			count++
		}
	}
	return count
}

// Package fanout writes notifications into recipients' inboxes at publish
// time. Delivery is best effort: a failed recipient is reported, never
// rolled back, and a re-run of Deliver skips recipients already served.
package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jalasoft/jalanews/internal/events"
	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
	"github.com/jalasoft/jalanews/pkg/telemetry"
)

// DefaultWorkers bounds concurrent inbox writes when no limit is given.
const DefaultWorkers = 8

// notificationNamespace seeds the name-based notification ids.
var notificationNamespace = uuid.MustParse("6f1c7c2e-5a0e-4d43-9b61-2f9b3c7a8e15")

// NotificationID derives the id of the notification of type typ about
// postID for subjectID. For new_post the subject is the recipient; for
// like it is the liker.
func NotificationID(typ models.NotificationType, postID, subjectID string) string {
	return uuid.NewSHA1(notificationNamespace, []byte(string(typ)+":"+postID+":"+subjectID)).String()
}

// Draft is the author-supplied content of a new post.
type Draft struct {
	Title      string
	Body       string
	MediaURL   string
	Visibility string
}

// Result describes one fan-out run.
type Result struct {
	Post *models.Post
	// Recipients is the follower count read at fan-out time.
	Recipients int
	// Delivered counts notifications newly written by this run.
	Delivered int
	// Failed lists recipients whose inbox write failed.
	Failed []string
}

// Store is the subset of the document store the engine writes to.
type Store interface {
	store.Posts
	store.Edges
	store.Notifications
}

// Engine persists posts and fans them out to followers.
type Engine struct {
	store   Store
	events  events.Publisher
	workers int
	logger  *zap.Logger

	delivered metric.Int64Counter
	failed    metric.Int64Counter
}

// NewEngine creates a fan-out engine running at most workers inbox writes
// at once.
func NewEngine(st Store, pub events.Publisher, workers int, logger *zap.Logger) (*Engine, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if pub == nil {
		pub = events.Nop{}
	}

	meter := telemetry.Meter()
	delivered, err := meter.Int64Counter("fanout.notifications.delivered",
		metric.WithDescription("Notifications written to recipient inboxes"))
	if err != nil {
		return nil, fmt.Errorf("failed to create delivered counter: %w", err)
	}
	failed, err := meter.Int64Counter("fanout.notifications.failed",
		metric.WithDescription("Notification writes that failed"))
	if err != nil {
		return nil, fmt.Errorf("failed to create failed counter: %w", err)
	}

	return &Engine{
		store:     st,
		events:    pub,
		workers:   workers,
		logger:    logger,
		delivered: delivered,
		failed:    failed,
	}, nil
}

// Publish persists a new post by author and notifies every current
// follower. Once the post is written it is never rolled back: when the
// follower read fails the returned Result still carries the post alongside
// the error.
func (e *Engine) Publish(ctx context.Context, author *models.Account, draft Draft) (*Result, error) {
	if author == nil || author.ID == "" {
		return nil, fmt.Errorf("%w: missing author", models.ErrInvalidInput)
	}
	if err := models.ValidatePostText(draft.Title, draft.Body); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "fanout.Publish",
		trace.WithAttributes(attribute.String("fanout.author", author.ID)))
	defer span.End()

	post := &models.Post{
		ID:         uuid.NewString(),
		AuthorID:   author.ID,
		AuthorName: author.Name(),
		Title:      draft.Title,
		Body:       draft.Body,
		MediaURL:   draft.MediaURL,
		Visibility: models.ParseVisibility(draft.Visibility),
		Likes:      []string{},
		Dislikes:   []string{},
	}
	if err := e.store.CreatePost(ctx, post); err != nil {
		return nil, telemetry.RecordError(span, fmt.Errorf("failed to create post: %w", err))
	}
	span.SetAttributes(attribute.String("fanout.post", post.ID))

	result, err := e.Deliver(ctx, post)
	if err != nil {
		return result, telemetry.RecordError(span, err)
	}

	if err := e.events.PostCreated(ctx, post, result.Recipients); err != nil {
		e.logger.Warn("Failed to publish post event",
			zap.String("post_id", post.ID),
			zap.Error(err))
	}
	return result, nil
}

// Deliver writes one new_post notification per account that followed the
// post's author when the post was created. Re-running it for the same post
// only fills in recipients that were missed and leaves read flags
// untouched; accounts that followed later are never notified.
func (e *Engine) Deliver(ctx context.Context, post *models.Post) (*Result, error) {
	result := &Result{Post: post}

	list, err := e.store.GetEdgeList(ctx, post.AuthorID)
	if err != nil {
		return result, fmt.Errorf("failed to read followers of %s: %w", post.AuthorID, err)
	}
	followers := list.Members(models.EdgeFollowers)
	if !post.CreatedAt.IsZero() {
		followers = list.FollowersAsOf(post.CreatedAt)
	}
	result.Recipients = len(followers)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.workers)

	for _, recipient := range followers {
		recipient := recipient
		g.Go(func() error {
			created, err := e.store.CreateNotification(ctx, newPostNotification(post, recipient))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, recipient)
				e.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(models.NotifyNewPost))))
				e.logger.Warn("Failed to deliver notification",
					zap.String("post_id", post.ID),
					zap.String("recipient_id", recipient),
					zap.Error(err))
				return nil
			}
			if created {
				result.Delivered++
				e.delivered.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(models.NotifyNewPost))))
			}
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Debug("Fanned out post",
		zap.String("post_id", post.ID),
		zap.Int("recipients", result.Recipients),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// NotifyLike tells the post's author that liker liked it. Self-likes and
// repeated likes by the same account produce nothing.
func (e *Engine) NotifyLike(ctx context.Context, post *models.Post, liker *models.Account) error {
	if post == nil || liker == nil || liker.ID == post.AuthorID {
		return nil
	}
	n := &models.Notification{
		ID:          NotificationID(models.NotifyLike, post.ID, liker.ID),
		RecipientID: post.AuthorID,
		Type:        models.NotifyLike,
		PostID:      post.ID,
		PostTitle:   post.Title,
		AuthorID:    liker.ID,
		AuthorName:  liker.Name(),
		Message:     models.RenderMessage(models.NotifyLike, liker.Name(), post.Title),
	}
	created, err := e.store.CreateNotification(ctx, n)
	if err != nil {
		e.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(models.NotifyLike))))
		return fmt.Errorf("failed to notify like on %s: %w", post.ID, err)
	}
	if created {
		e.delivered.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(models.NotifyLike))))
	}
	return nil
}

func newPostNotification(post *models.Post, recipient string) *models.Notification {
	return &models.Notification{
		ID:          NotificationID(models.NotifyNewPost, post.ID, recipient),
		RecipientID: recipient,
		Type:        models.NotifyNewPost,
		PostID:      post.ID,
		PostTitle:   post.Title,
		AuthorID:    post.AuthorID,
		AuthorName:  post.AuthorName,
		Message:     models.RenderMessage(models.NotifyNewPost, post.AuthorName, post.Title),
		CreatedAt:   post.CreatedAt,
		Read:        false,
	}
}

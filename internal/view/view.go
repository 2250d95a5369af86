// Package view folds live store snapshots and point lookups into
// per-screen view models. Each open screen is one goroutine that owns its
// state; it emits a fresh immutable value after every change, and a slow
// reader only ever sees the latest one.
package view

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
)

// FollowGraph is the relationship service as seen by screens.
type FollowGraph interface {
	Follow(ctx context.Context, follower, followee string) error
	Unfollow(ctx context.Context, follower, followee string) error
	IsFollowing(ctx context.Context, follower, followee string) (bool, error)
}

// Inbox is the notification inbox as seen by screens.
type Inbox interface {
	Watch(ctx context.Context, recipientID string) (<-chan store.Snapshot[[]*models.Notification], error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	CheckLiveness(ctx context.Context, batch []*models.Notification) map[string]bool
}

// Deps are the collaborators screens read from.
type Deps struct {
	Accounts store.Accounts
	Posts    store.Posts
	Comments store.Comments
	Bus      store.Bus
	Graph    FollowGraph
	Inbox    Inbox
}

// Options tune what screens show.
type Options struct {
	// CommentLimit is how many comments a feed entry shows.
	CommentLimit int
	// FeedLimit caps the number of posts in the feed; zero means no cap.
	FeedLimit int
	// AutoMarkRead marks every unread notification read while the inbox
	// screen is open.
	AutoMarkRead bool
}

// ErrSignedOut is returned by screen actions that need a viewer when
// nobody is signed in.
var ErrSignedOut = errors.New("no account signed in")

// DefaultCommentLimit is the feed comment limit used when none is set.
const DefaultCommentLimit = 5

// Aggregator opens screens.
type Aggregator struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// NewAggregator creates a screen factory. A negative comment limit falls
// back to DefaultCommentLimit.
func NewAggregator(deps Deps, opts Options, logger *zap.Logger) *Aggregator {
	if opts.CommentLimit < 0 {
		opts.CommentLimit = DefaultCommentLimit
	}
	return &Aggregator{deps: deps, opts: opts, logger: logger}
}

// Screen is the output side of one open screen.
type Screen[T any] struct {
	updates chan T
	done    chan struct{}
	cancel  context.CancelFunc
	ctx     context.Context
}

func newScreen[T any](parent context.Context) *Screen[T] {
	ctx, cancel := context.WithCancel(parent)
	return &Screen[T]{
		updates: make(chan T, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
		ctx:     ctx,
	}
}

// Updates delivers view values; it is closed when the screen closes.
func (s *Screen[T]) Updates() <-chan T {
	return s.updates
}

// Done is closed once the screen's loop has exited.
func (s *Screen[T]) Done() <-chan struct{} {
	return s.done
}

// Close tears the screen down and waits for its loop to exit. Lookups
// still in flight are discarded.
func (s *Screen[T]) Close() {
	s.cancel()
	<-s.done
}

func (s *Screen[T]) emit(v T) {
	if s.ctx.Err() != nil {
		return
	}
	store.Offer(s.updates, v)
}

func (s *Screen[T]) finish() {
	s.cancel()
	close(s.updates)
	close(s.done)
}

// deliver hands a lookup result to a screen loop unless the screen has
// gone away.
func deliver[T any](ctx context.Context, ch chan<- T, v T) {
	select {
	case ch <- v:
	case <-ctx.Done():
	}
}

// lookupName resolves an account's display name, falling back to
// models.UnknownName when the account is missing or the lookup fails.
func (a *Aggregator) lookupName(ctx context.Context, accountID string) string {
	account, err := a.deps.Accounts.GetAccount(ctx, accountID)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Debug("Account lookup failed",
				zap.String("account_id", accountID),
				zap.Error(err))
		}
		return models.UnknownName
	}
	return account.Name()
}

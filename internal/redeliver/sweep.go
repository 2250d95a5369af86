// Package redeliver re-runs fan-out for recent posts so that recipients a
// publish run failed to reach eventually get their notification.
package redeliver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/fanout"
	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/pkg/config"
)

// PostLister lists posts newest first.
type PostLister interface {
	ListPosts(ctx context.Context, limit int) ([]*models.Post, error)
}

// Deliverer runs fan-out for one post. Deliver must be safe to repeat.
type Deliverer interface {
	Deliver(ctx context.Context, post *models.Post) (*fanout.Result, error)
}

// Stats summarises one sweep.
type Stats struct {
	Posts     int
	Delivered int
	Failed    int
}

// Sweeper periodically redelivers recent posts
type Sweeper struct {
	posts    PostLister
	fanout   Deliverer
	interval time.Duration
	window   time.Duration
	batch    int
	now      func() time.Time
	logger   *zap.Logger
}

// NewSweeper creates a new sweeper
func NewSweeper(cfg *config.RedeliverConfig, posts PostLister, d Deliverer, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		posts:    posts,
		fanout:   d,
		interval: cfg.Interval,
		window:   cfg.Window,
		batch:    cfg.Batch,
		now:      time.Now,
		logger:   logger,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("Starting redelivery sweeps",
		zap.Duration("interval", s.interval),
		zap.Duration("window", s.window))

	for {
		stats, err := s.SweepOnce(ctx)
		if err != nil {
			s.logger.Error("Redelivery sweep failed", zap.Error(err))
		} else if stats.Delivered > 0 || stats.Failed > 0 {
			s.logger.Info("Redelivered notifications",
				zap.Int("posts", stats.Posts),
				zap.Int("delivered", stats.Delivered),
				zap.Int("failed", stats.Failed))
		}

		if !s.wait(ctx) {
			return ctx.Err()
		}
	}
}

// SweepOnce redelivers every post created within the window, reading at
// most one batch. A post whose follower list cannot be read is skipped and
// retried on the next sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	list, err := s.posts.ListPosts(ctx, s.batch)
	if err != nil {
		return stats, fmt.Errorf("failed to list posts: %w", err)
	}

	cutoff := s.now().Add(-s.window)
	for _, post := range list {
		if post.CreatedAt.Before(cutoff) {
			// Newest first: everything after is older still.
			break
		}
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		stats.Posts++
		res, err := s.fanout.Deliver(ctx, post)
		if err != nil {
			s.logger.Warn("Failed to redeliver post",
				zap.String("post_id", post.ID),
				zap.Error(err))
			continue
		}
		stats.Delivered += res.Delivered
		stats.Failed += len(res.Failed)
	}

	return stats, nil
}

// wait waits one interval; it reports false once ctx is cancelled.
func (s *Sweeper) wait(ctx context.Context) bool {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

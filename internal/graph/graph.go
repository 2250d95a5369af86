// Package graph keeps the follow relationship as two edge lists per
// account. A follow is two independent record writes, so the two sides may
// disagree for one round trip; every operation is idempotent and safe to
// retry until they agree.
package graph

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
	"github.com/jalasoft/jalanews/pkg/telemetry"
)

// ErrInvalidAccount is returned for empty account ids and self-follows.
var ErrInvalidAccount = errors.New("invalid account")

// Service maintains the follow relationship
type Service struct {
	edges  store.Edges
	logger *zap.Logger
}

// NewService creates a new relationship service
func NewService(edges store.Edges, logger *zap.Logger) *Service {
	return &Service{
		edges:  edges,
		logger: logger,
	}
}

func validatePair(follower, followee string) error {
	if follower == "" || followee == "" {
		return fmt.Errorf("%w: missing follower or followee", ErrInvalidAccount)
	}
	if follower == followee {
		return fmt.Errorf("%w: an account cannot follow itself", ErrInvalidAccount)
	}
	return nil
}

func pairAttributes(follower, followee string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("graph.follower", follower),
		attribute.String("graph.followee", followee),
	)
}

// Follow adds followee to following[follower], then follower to
// followers[followee]. If the first write fails nothing was written; if the
// second fails the first stays in place and the call may be retried.
func (s *Service) Follow(ctx context.Context, follower, followee string) error {
	if err := validatePair(follower, followee); err != nil {
		return err
	}
	ctx, span := telemetry.StartSpan(ctx, "graph.Follow", pairAttributes(follower, followee))
	defer span.End()

	if err := s.edges.AddEdge(ctx, follower, models.EdgeFollowing, followee); err != nil {
		return telemetry.RecordError(span, fmt.Errorf("failed to add %s to following of %s: %w", followee, follower, err))
	}
	if err := s.edges.AddEdge(ctx, followee, models.EdgeFollowers, follower); err != nil {
		return telemetry.RecordError(span, fmt.Errorf("failed to add %s to followers of %s: %w", follower, followee, err))
	}

	s.logger.Debug("Followed",
		zap.String("follower", follower),
		zap.String("followee", followee))
	return nil
}

// Unfollow removes both sides of the relationship. Unfollowing an account
// that is not followed is not an error.
func (s *Service) Unfollow(ctx context.Context, follower, followee string) error {
	if err := validatePair(follower, followee); err != nil {
		return err
	}
	ctx, span := telemetry.StartSpan(ctx, "graph.Unfollow", pairAttributes(follower, followee))
	defer span.End()

	if err := s.edges.RemoveEdge(ctx, follower, models.EdgeFollowing, followee); err != nil {
		return telemetry.RecordError(span, fmt.Errorf("failed to remove %s from following of %s: %w", followee, follower, err))
	}
	if err := s.edges.RemoveEdge(ctx, followee, models.EdgeFollowers, follower); err != nil {
		return telemetry.RecordError(span, fmt.Errorf("failed to remove %s from followers of %s: %w", follower, followee, err))
	}

	s.logger.Debug("Unfollowed",
		zap.String("follower", follower),
		zap.String("followee", followee))
	return nil
}

// IsFollowing reports whether followee is in following[follower]. Only the
// follower's record is read; an absent record means false.
func (s *Service) IsFollowing(ctx context.Context, follower, followee string) (bool, error) {
	if follower == "" || followee == "" {
		return false, nil
	}
	ctx, span := telemetry.StartSpan(ctx, "graph.IsFollowing", pairAttributes(follower, followee))
	defer span.End()

	list, err := s.edges.GetEdgeList(ctx, follower)
	if err != nil {
		return false, telemetry.RecordError(span, fmt.Errorf("failed to read edge list of %s: %w", follower, err))
	}
	return list.Has(models.EdgeFollowing, followee), nil
}

// Following lists the accounts the account follows.
func (s *Service) Following(ctx context.Context, accountID string) ([]string, error) {
	return s.members(ctx, accountID, models.EdgeFollowing)
}

// Followers lists the accounts following the account. An account nobody
// has followed yet has no followers.
func (s *Service) Followers(ctx context.Context, accountID string) ([]string, error) {
	return s.members(ctx, accountID, models.EdgeFollowers)
}

func (s *Service) members(ctx context.Context, accountID string, kind models.EdgeKind) ([]string, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: missing account id", ErrInvalidAccount)
	}
	ctx, span := telemetry.StartSpan(ctx, "graph.List",
		trace.WithAttributes(
			attribute.String("graph.account", accountID),
			attribute.String("graph.kind", string(kind)),
		))
	defer span.End()

	list, err := s.edges.GetEdgeList(ctx, accountID)
	if err != nil {
		return nil, telemetry.RecordError(span, fmt.Errorf("failed to read edge list of %s: %w", accountID, err))
	}
	return append([]string{}, list.Members(kind)...), nil
}

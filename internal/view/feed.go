package view

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
)

// FeedPost is one rendered post.
type FeedPost struct {
	ID         string            `json:"id"`
	AuthorID   string            `json:"author_id"`
	AuthorName string            `json:"author_name"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	MediaURL   string            `json:"media_url,omitempty"`
	Visibility models.Visibility `json:"visibility"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	Likes          int                 `json:"likes"`
	Dislikes       int                 `json:"dislikes"`
	ViewerReaction models.ReactionKind `json:"viewer_reaction,omitempty"`
	FollowState    FollowState         `json:"follow_state"`

	Comments          []models.Comment `json:"comments"`
	CommentCount      int              `json:"comment_count"`
	CommentsTruncated bool             `json:"comments_truncated"`
}

// FeedView lists posts newest first.
type FeedView struct {
	ViewerID string     `json:"viewer_id,omitempty"`
	Posts    []FeedPost `json:"posts"`
	Loaded   bool       `json:"loaded"`
}

// FeedScreen is an open feed. Follow and Unfollow change the relationship
// and are the only way the screen's follow buttons change after they are
// first looked up.
type FeedScreen struct {
	*Screen[FeedView]
	*followActions
}

type feedSnapshot struct {
	posts    []*models.Post
	comments map[string][]*models.Comment
}

func (a *Aggregator) loadFeed(ctx context.Context) (feedSnapshot, error) {
	posts, err := a.deps.Posts.ListPosts(ctx, a.opts.FeedLimit)
	if err != nil {
		return feedSnapshot{}, fmt.Errorf("failed to list posts: %w", err)
	}
	snap := feedSnapshot{posts: posts, comments: make(map[string][]*models.Comment, len(posts))}
	for _, p := range posts {
		comments, err := a.deps.Comments.ListComments(ctx, p.ID)
		if err != nil {
			return feedSnapshot{}, fmt.Errorf("failed to list comments of %s: %w", p.ID, err)
		}
		snap.comments[p.ID] = comments
	}
	return snap, nil
}

// Feed opens the feed screen. viewerID may be empty when nobody is signed
// in; follow buttons then stay FollowUnknown.
func (a *Aggregator) Feed(ctx context.Context, viewerID string) (*FeedScreen, error) {
	scr := newScreen[FeedView](ctx)
	ctx = scr.ctx

	snaps, err := store.Watch(ctx, a.deps.Bus, a.loadFeed, store.TopicFeed)
	if err != nil {
		scr.cancel()
		return nil, err
	}

	logger := a.logger.With(zap.String("screen", "feed"), zap.String("viewer_id", viewerID))
	lk := newLookups(ctx, a, viewerID, logger)

	go func() {
		defer scr.finish()

		var (
			current   feedSnapshot
			positions = map[string]int{}
			loaded    bool
		)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				if snap.Err != nil {
					logger.Warn("Feed snapshot failed", zap.Error(snap.Err))
					continue
				}
				current = snap.Value
				current.posts = append([]*models.Post(nil), current.posts...)
				positions = orderStable(current.posts, positions,
					func(p *models.Post) string { return p.ID },
					func(p *models.Post) time.Time { return p.CreatedAt },
					false)
				loaded = true
				for _, p := range current.posts {
					lk.want(p.AuthorID)
				}
			case r := <-lk.nameResults:
				lk.applyName(r)
			case r := <-lk.followResults:
				lk.applyFollow(r)
			}

			scr.emit(a.buildFeedView(viewerID, current, lk, loaded))
		}
	}()

	return &FeedScreen{
		Screen: scr,
		followActions: &followActions{
			graph:    a.deps.Graph,
			viewerID: viewerID,
			ctx:      ctx,
			results:  lk.followResults,
		},
	}, nil
}

func (a *Aggregator) buildFeedView(viewerID string, snap feedSnapshot, lk *lookups, loaded bool) FeedView {
	posts := make([]FeedPost, 0, len(snap.posts))
	for _, p := range snap.posts {
		fp := a.buildPost(viewerID, p, lk)
		all := snap.comments[p.ID]
		fp.CommentCount = len(all)
		shown := all
		if len(all) > a.opts.CommentLimit {
			shown = all[:a.opts.CommentLimit]
			fp.CommentsTruncated = true
		}
		fp.Comments = copyComments(shown)
		posts = append(posts, fp)
	}
	return FeedView{ViewerID: viewerID, Posts: posts, Loaded: loaded}
}

func (a *Aggregator) buildPost(viewerID string, p *models.Post, lk *lookups) FeedPost {
	fp := FeedPost{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		AuthorName:  lk.name(p.AuthorID, p.AuthorName),
		Title:       p.Title,
		Body:        p.Body,
		MediaURL:    p.MediaURL,
		Visibility:  p.Visibility,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Likes:       len(p.Likes),
		Dislikes:    len(p.Dislikes),
		FollowState: lk.followState(p.AuthorID),
	}
	if viewerID != "" {
		switch {
		case p.LikedBy(viewerID):
			fp.ViewerReaction = models.ReactionLike
		case p.DislikedBy(viewerID):
			fp.ViewerReaction = models.ReactionDislike
		}
	}
	return fp
}

func copyComments(list []*models.Comment) []models.Comment {
	out := make([]models.Comment, len(list))
	for i, c := range list {
		out[i] = *c
	}
	return out
}

package view

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
)

// PostDetailView is one post with all of its comments, oldest first.
type PostDetailView struct {
	PostID string    `json:"post_id"`
	Post   *FeedPost `json:"post,omitempty"`
	// Deleted is set once the post is gone; Post is then nil.
	Deleted bool `json:"deleted"`
	Loaded  bool `json:"loaded"`
}

// PostDetailScreen is an open post page.
type PostDetailScreen struct {
	*Screen[PostDetailView]
	*followActions
}

// PostDetail opens the page of one post.
func (a *Aggregator) PostDetail(ctx context.Context, viewerID, postID string) (*PostDetailScreen, error) {
	scr := newScreen[PostDetailView](ctx)
	ctx = scr.ctx

	postSnaps, err := store.Watch(ctx, a.deps.Bus, func(ctx context.Context) (*models.Post, error) {
		post, err := a.deps.Posts.GetPost(ctx, postID)
		if err != nil {
			return nil, fmt.Errorf("failed to get post %s: %w", postID, err)
		}
		return post, nil
	}, store.TopicPost(postID))
	if err != nil {
		scr.cancel()
		return nil, err
	}
	commentSnaps, err := store.Watch(ctx, a.deps.Bus, func(ctx context.Context) ([]*models.Comment, error) {
		return a.deps.Comments.ListComments(ctx, postID)
	}, store.TopicComments(postID))
	if err != nil {
		scr.cancel()
		return nil, err
	}

	logger := a.logger.With(zap.String("screen", "post"), zap.String("post_id", postID))
	lk := newLookups(ctx, a, viewerID, logger)

	go func() {
		defer scr.finish()

		var (
			post           *models.Post
			comments       []*models.Comment
			positions      = map[string]int{}
			postLoaded     bool
			commentsLoaded bool
		)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-postSnaps:
				if !ok {
					return
				}
				if snap.Err != nil {
					logger.Warn("Post snapshot failed", zap.Error(snap.Err))
					continue
				}
				post, postLoaded = snap.Value, true
				if post != nil {
					lk.want(post.AuthorID)
				}
			case snap, ok := <-commentSnaps:
				if !ok {
					return
				}
				if snap.Err != nil {
					logger.Warn("Comments snapshot failed", zap.Error(snap.Err))
					continue
				}
				comments = append([]*models.Comment(nil), snap.Value...)
				positions = orderStable(comments, positions,
					func(c *models.Comment) string { return c.ID },
					func(c *models.Comment) time.Time { return c.CreatedAt },
					true)
				commentsLoaded = true
			case r := <-lk.nameResults:
				lk.applyName(r)
			case r := <-lk.followResults:
				lk.applyFollow(r)
			}

			v := PostDetailView{PostID: postID, Loaded: postLoaded && commentsLoaded}
			if postLoaded && post == nil {
				v.Deleted = true
			} else if post != nil {
				fp := a.buildPost(viewerID, post, lk)
				fp.Comments = copyComments(comments)
				fp.CommentCount = len(comments)
				v.Post = &fp
			}
			scr.emit(v)
		}
	}()

	return &PostDetailScreen{
		Screen: scr,
		followActions: &followActions{
			graph:    a.deps.Graph,
			viewerID: viewerID,
			ctx:      ctx,
			results:  lk.followResults,
		},
	}, nil
}

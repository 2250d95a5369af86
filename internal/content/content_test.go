package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/events"
	"github.com/jalasoft/jalanews/internal/fanout"
	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store/memory"
)

var (
	owner  = &models.Account{ID: "u2", FirstName: "Uma"}
	reader = &models.Account{ID: "u1", DisplayName: "ulises"}
)

type fixture struct {
	store   *memory.Store
	content *Service
	events  *events.Recorder
	post    *models.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	rec := &events.Recorder{}
	engine, err := fanout.NewEngine(st, rec, 1, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := engine.Publish(context.Background(), owner, fanout.Draft{Title: "Launch", Body: "We shipped"})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		store:   st,
		content: NewService(st, engine, rec, zap.NewNop()),
		events:  rec,
		post:    res.Post,
	}
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	updated, err := f.content.UpdatePost(ctx, owner.ID, f.post.ID, Edit{Title: "Launch v2", Body: "Edited", Visibility: "friends"})
	if err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if updated.Title != "Launch v2" || updated.Visibility != models.VisibilityFriends {
		t.Errorf("updated = %+v", updated)
	}

	tests := []struct {
		name    string
		actor   string
		postID  string
		edit    Edit
		wantErr error
	}{
		{"not owner", reader.ID, f.post.ID, Edit{Title: "x", Body: "y"}, ErrForbidden},
		{"missing post", owner.ID, "nope", Edit{Title: "x", Body: "y"}, ErrNotFound},
		{"blank title", owner.ID, f.post.ID, Edit{Title: "", Body: "y"}, ErrInvalidInput},
		{"long body", owner.ID, f.post.ID, Edit{Title: "x", Body: strings.Repeat("b", models.MaxBodyLength+1)}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.content.UpdatePost(ctx, tt.actor, tt.postID, tt.edit); !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdatePost() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.content.DeletePost(ctx, reader.ID, f.post.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("DeletePost() by reader error = %v, want ErrForbidden", err)
	}
	if err := f.content.DeletePost(ctx, owner.ID, f.post.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	if got, _ := f.content.GetPost(ctx, f.post.ID); got != nil {
		t.Error("post still readable after delete")
	}
	if err := f.content.DeletePost(ctx, owner.ID, f.post.ID); err != nil {
		t.Errorf("second DeletePost() error = %v", err)
	}

	_, deleted := f.events.Snapshot()
	if len(deleted) != 1 || deleted[0].ID != f.post.ID {
		t.Errorf("post.deleted events = %+v", deleted)
	}
}

func TestReact_Toggles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	steps := []struct {
		kind         models.ReactionKind
		wantLiked    bool
		wantDisliked bool
	}{
		{models.ReactionLike, true, false},
		{models.ReactionDislike, false, true},
		{models.ReactionDislike, false, false},
		{models.ReactionLike, true, false},
		{models.ReactionLike, false, false},
	}
	for i, step := range steps {
		post, err := f.content.React(ctx, reader, f.post.ID, step.kind)
		if err != nil {
			t.Fatalf("step %d React() error = %v", i, err)
		}
		if post.LikedBy(reader.ID) != step.wantLiked || post.DislikedBy(reader.ID) != step.wantDisliked {
			t.Errorf("step %d: likes=%v dislikes=%v", i, post.Likes, post.Dislikes)
		}
	}

	inbox, _ := f.store.ListNotifications(ctx, owner.ID, 0)
	if len(inbox) != 1 {
		t.Fatalf("owner has %d like notifications, want 1", len(inbox))
	}
	if inbox[0].Message != "ulises liked your post: Launch" {
		t.Errorf("message = %q", inbox[0].Message)
	}

	if _, err := f.content.React(ctx, reader, f.post.ID, "love"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("React() unknown kind error = %v", err)
	}
	if _, err := f.content.React(ctx, reader, "nope", models.ReactionLike); !errors.Is(err, ErrNotFound) {
		t.Errorf("React() missing post error = %v", err)
	}
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c, err := f.content.AddComment(ctx, reader, f.post.ID, "Congrats!")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if c.AuthorName != "ulises" {
		t.Errorf("AuthorName = %q", c.AuthorName)
	}

	if _, err := f.content.AddComment(ctx, reader, f.post.ID, strings.Repeat("x", models.MaxCommentLength+1)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("AddComment() long text error = %v", err)
	}
	if _, err := f.content.AddComment(ctx, reader, "nope", "hi"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddComment() missing post error = %v", err)
	}

	if err := f.content.DeleteComment(ctx, owner.ID, f.post.ID, c.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("DeleteComment() by other account error = %v", err)
	}
	if err := f.content.DeleteComment(ctx, reader.ID, f.post.ID, c.ID); err != nil {
		t.Fatalf("DeleteComment() error = %v", err)
	}
	if comments, _ := f.content.ListComments(ctx, f.post.ID); len(comments) != 0 {
		t.Errorf("comments left: %d", len(comments))
	}
	if err := f.content.DeleteComment(ctx, reader.ID, f.post.ID, c.ID); err != nil {
		t.Errorf("second DeleteComment() error = %v", err)
	}
}

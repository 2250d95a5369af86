package posts

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/jalasoft/jalanews/internal/api/rpc"
	"github.com/jalasoft/jalanews/internal/content"
	"github.com/jalasoft/jalanews/internal/fanout"
	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
)

// PostAPI provides the posts.* and comments.* methods
type PostAPI struct {
	engine   *fanout.Engine
	content  *content.Service
	accounts store.Accounts
}

// NewPostAPI creates a new post API
func NewPostAPI(engine *fanout.Engine, svc *content.Service, accounts store.Accounts) *PostAPI {
	return &PostAPI{engine: engine, content: svc, accounts: accounts}
}

type postParams struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	MediaURL   string `json:"media_url"`
	Visibility string `json:"visibility"`
}

// PublishResult is the result of posts.publish.
type PublishResult struct {
	Post       *models.Post `json:"post"`
	Recipients int          `json:"recipients"`
	Delivered  int          `json:"delivered"`
	Failed     []string     `json:"failed"`
}

// actor loads the acting account. An account without a profile record
// still acts under its id.
func (a *PostAPI) actor(ctx *gin.Context) (*models.Account, error) {
	id, err := rpc.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	account, err := a.accounts.GetAccount(ctx.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &models.Account{ID: id}
	}
	return account, nil
}

// Publish handles posts.publish
func (a *PostAPI) Publish(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	author, err := a.actor(ctx)
	if err != nil {
		return nil, err
	}
	var p postParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}

	res, err := a.engine.Publish(ctx.Request.Context(), author, fanout.Draft{
		Title:      p.Title,
		Body:       p.Body,
		MediaURL:   p.MediaURL,
		Visibility: p.Visibility,
	})
	if err != nil {
		return nil, err
	}
	failed := res.Failed
	if failed == nil {
		failed = []string{}
	}
	return &PublishResult{
		Post:       res.Post,
		Recipients: res.Recipients,
		Delivered:  res.Delivered,
		Failed:     failed,
	}, nil
}

// Get handles posts.get. A missing post yields null.
func (a *PostAPI) Get(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p postParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("id", p.ID); err != nil {
		return nil, err
	}
	post, err := a.content.GetPost(ctx.Request.Context(), p.ID)
	if err != nil || post == nil {
		return nil, err
	}
	return post, nil
}

// Update handles posts.update
func (a *PostAPI) Update(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := rpc.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var p postParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("id", p.ID); err != nil {
		return nil, err
	}
	return a.content.UpdatePost(ctx.Request.Context(), actor, p.ID, content.Edit{
		Title:      p.Title,
		Body:       p.Body,
		MediaURL:   p.MediaURL,
		Visibility: p.Visibility,
	})
}

// Delete handles posts.delete
func (a *PostAPI) Delete(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := rpc.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var p postParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("id", p.ID); err != nil {
		return nil, err
	}
	if err := a.content.DeletePost(ctx.Request.Context(), actor, p.ID); err != nil {
		return nil, err
	}
	return gin.H{"id": p.ID, "deleted": true}, nil
}

// React handles posts.react
func (a *PostAPI) React(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := a.actor(ctx)
	if err != nil {
		return nil, err
	}
	var p struct {
		ID       string `json:"id"`
		Reaction string `json:"reaction"`
	}
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("id", p.ID, "reaction", p.Reaction); err != nil {
		return nil, err
	}
	return a.content.React(ctx.Request.Context(), actor, p.ID, models.ReactionKind(p.Reaction))
}

type commentParams struct {
	PostID string `json:"post_id"`
	ID     string `json:"id"`
	Text   string `json:"text"`
}

// AddComment handles comments.add
func (a *PostAPI) AddComment(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := a.actor(ctx)
	if err != nil {
		return nil, err
	}
	var p commentParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("post_id", p.PostID); err != nil {
		return nil, err
	}
	return a.content.AddComment(ctx.Request.Context(), actor, p.PostID, p.Text)
}

// DeleteComment handles comments.delete
func (a *PostAPI) DeleteComment(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := rpc.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var p commentParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("post_id", p.PostID, "id", p.ID); err != nil {
		return nil, err
	}
	if err := a.content.DeleteComment(ctx.Request.Context(), actor, p.PostID, p.ID); err != nil {
		return nil, err
	}
	return gin.H{"id": p.ID, "deleted": true}, nil
}

// ListComments handles comments.list
func (a *PostAPI) ListComments(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p commentParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("post_id", p.PostID); err != nil {
		return nil, err
	}
	return a.content.ListComments(ctx.Request.Context(), p.PostID)
}

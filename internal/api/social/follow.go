package social

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/jalasoft/jalanews/internal/api/rpc"
	"github.com/jalasoft/jalanews/internal/graph"
	"github.com/jalasoft/jalanews/internal/store"
)

// FollowAPI provides the graph.* methods
type FollowAPI struct {
	graph    *graph.Service
	accounts store.Accounts
}

// NewFollowAPI creates a new follow API
func NewFollowAPI(g *graph.Service, accounts store.Accounts) *FollowAPI {
	return &FollowAPI{graph: g, accounts: accounts}
}

type accountParams struct {
	Account string `json:"account"`
}

// Member is one entry of a following or followers list.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Follow handles graph.follow
func (f *FollowAPI) Follow(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	return f.setFollow(ctx, params, true)
}

// Unfollow handles graph.unfollow
func (f *FollowAPI) Unfollow(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	return f.setFollow(ctx, params, false)
}

func (f *FollowAPI) setFollow(ctx *gin.Context, params json.RawMessage, follow bool) (interface{}, error) {
	actor, err := rpc.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var p accountParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("account", p.Account); err != nil {
		return nil, err
	}

	if follow {
		err = f.graph.Follow(ctx.Request.Context(), actor, p.Account)
	} else {
		err = f.graph.Unfollow(ctx.Request.Context(), actor, p.Account)
	}
	if err != nil {
		return nil, err
	}
	return gin.H{"follower": actor, "account": p.Account, "following": follow}, nil
}

// IsFollowing handles graph.is_following. The follower defaults to the
// acting account.
func (f *FollowAPI) IsFollowing(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Follower string `json:"follower"`
		Account  string `json:"account"`
	}
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Follower == "" {
		p.Follower = rpc.Actor(ctx)
	}
	if err := rpc.Require("follower", p.Follower, "account", p.Account); err != nil {
		return nil, err
	}

	following, err := f.graph.IsFollowing(ctx.Request.Context(), p.Follower, p.Account)
	if err != nil {
		return nil, err
	}
	return gin.H{"follower": p.Follower, "account": p.Account, "following": following}, nil
}

// ListFollowing handles graph.list_following
func (f *FollowAPI) ListFollowing(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	return f.list(ctx, params, f.graph.Following, "following")
}

// ListFollowers handles graph.list_followers
func (f *FollowAPI) ListFollowers(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	return f.list(ctx, params, f.graph.Followers, "followers")
}

func (f *FollowAPI) list(ctx *gin.Context, params json.RawMessage, read func(context.Context, string) ([]string, error), key string) (interface{}, error) {
	var p accountParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Account == "" {
		p.Account = rpc.Actor(ctx)
	}
	if err := rpc.Require("account", p.Account); err != nil {
		return nil, err
	}

	ids, err := read(ctx.Request.Context(), p.Account)
	if err != nil {
		return nil, err
	}
	return gin.H{"account": p.Account, key: f.members(ctx.Request.Context(), ids)}, nil
}

// members resolves display names; a failed lookup renders the member as
// unknown rather than failing the list.
func (f *FollowAPI) members(ctx context.Context, ids []string) []Member {
	out := make([]Member, len(ids))
	for i, id := range ids {
		account, _ := f.accounts.GetAccount(ctx, id)
		out[i] = Member{ID: id, Name: account.Name()}
	}
	return out
}

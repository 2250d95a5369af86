package notify

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/jalasoft/jalanews/internal/api/rpc"
	"github.com/jalasoft/jalanews/internal/inbox"
	"github.com/jalasoft/jalanews/internal/models"
)

// NotifyAPI provides the notifications.* methods
type NotifyAPI struct {
	inbox *inbox.Service
}

// NewNotifyAPI creates a new notify API
func NewNotifyAPI(svc *inbox.Service) *NotifyAPI {
	return &NotifyAPI{inbox: svc}
}

// Item is one notification with its post's liveness.
type Item struct {
	*models.Notification
	PostDeleted bool `json:"post_deleted"`
}

// List handles notifications.list
func (n *NotifyAPI) List(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := rpc.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	list, err := n.inbox.List(ctx.Request.Context(), actor)
	if err != nil {
		return nil, err
	}

	live := n.inbox.CheckLiveness(ctx.Request.Context(), list)
	items := make([]Item, len(list))
	for i, notif := range list {
		isLive, checked := live[notif.PostID]
		items[i] = Item{Notification: notif, PostDeleted: checked && !isLive}
	}
	return gin.H{"items": items, "unread": inbox.UnreadCount(list)}, nil
}

// MarkRead handles notifications.mark_read
func (n *NotifyAPI) MarkRead(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := rpc.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var p struct {
		ID string `json:"id"`
	}
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if err := rpc.Require("id", p.ID); err != nil {
		return nil, err
	}
	if err := n.inbox.MarkRead(ctx.Request.Context(), actor, p.ID); err != nil {
		return nil, err
	}
	return gin.H{"id": p.ID, "read": true}, nil
}

// UnreadCount handles notifications.unread_count
func (n *NotifyAPI) UnreadCount(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, err := rpc.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	list, err := n.inbox.List(ctx.Request.Context(), actor)
	if err != nil {
		return nil, err
	}
	return gin.H{"unread": inbox.UnreadCount(list)}, nil
}

package view

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/inbox"
	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
)

// InboxItem is one rendered notification.
type InboxItem struct {
	models.Notification
	// PostDeleted replaces the link to the post with a disabled
	// indicator once a lookup found the post gone.
	PostDeleted bool `json:"post_deleted"`
}

// InboxView is the ordered inbox of one account.
type InboxView struct {
	AccountID string      `json:"account_id"`
	Items     []InboxItem `json:"items"`
	Unread    int         `json:"unread"`
	Loaded    bool        `json:"loaded"`
}

// InboxScreen is an open inbox.
type InboxScreen struct {
	*Screen[InboxView]
	accountID string
	inbox     Inbox
}

// MarkRead marks one notification read; the screen updates from the
// resulting snapshot.
func (s *InboxScreen) MarkRead(ctx context.Context, notificationID string) error {
	return s.inbox.MarkRead(ctx, s.accountID, notificationID)
}

type livenessResult struct {
	generation int
	live       map[string]bool
}

// Inbox opens the inbox screen for an account.
func (a *Aggregator) Inbox(ctx context.Context, accountID string) (*InboxScreen, error) {
	scr := newScreen[InboxView](ctx)
	ctx = scr.ctx

	snaps, err := a.deps.Inbox.Watch(ctx, accountID)
	if err != nil {
		scr.cancel()
		return nil, err
	}

	// Post deletions do not touch the inbox, so liveness is also rechecked
	// whenever posts change.
	postNotices, err := a.deps.Bus.Subscribe(ctx, store.TopicFeed)
	if err != nil {
		scr.cancel()
		return nil, err
	}

	logger := a.logger.With(zap.String("screen", "inbox"), zap.String("account_id", accountID))
	liveness := make(chan livenessResult)

	go func() {
		defer scr.finish()

		var (
			current    []*models.Notification
			positions  = map[string]int{}
			deleted    = map[string]bool{}
			marked     = map[string]bool{}
			generation int
			applied    int
			loaded     bool
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
					logger.Warn("Inbox snapshot failed", zap.Error(snap.Err))
					continue
				}
				current = append([]*models.Notification(nil), snap.Value...)
				positions = orderStable(current, positions,
					func(n *models.Notification) string { return n.ID },
					func(n *models.Notification) time.Time { return n.CreatedAt },
					false)
				loaded = true

				generation++
				a.checkLiveness(ctx, liveness, generation, current)

				if a.opts.AutoMarkRead {
					a.markUnread(ctx, logger, accountID, current, marked)
				}
			case _, ok := <-postNotices:
				if !ok {
					return
				}
				if !loaded {
					continue
				}
				generation++
				a.checkLiveness(ctx, liveness, generation, current)
				continue
			case res := <-liveness:
				if res.generation <= applied {
					continue
				}
				applied = res.generation
				for postID, live := range res.live {
					deleted[postID] = !live
				}
			}

			scr.emit(buildInboxView(accountID, current, deleted, loaded))
		}
	}()

	return &InboxScreen{Screen: scr, accountID: accountID, inbox: a.deps.Inbox}, nil
}

func (a *Aggregator) checkLiveness(ctx context.Context, results chan<- livenessResult, generation int, batch []*models.Notification) {
	go func() {
		deliver(ctx, results, livenessResult{generation: generation, live: a.deps.Inbox.CheckLiveness(ctx, batch)})
	}()
}

// markUnread marks each unread notification read once per screen.
func (a *Aggregator) markUnread(ctx context.Context, logger *zap.Logger, accountID string, batch []*models.Notification, marked map[string]bool) {
	var ids []string
	for _, n := range batch {
		if !n.Read && !marked[n.ID] {
			marked[n.ID] = true
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	go func() {
		for _, id := range ids {
			if err := a.deps.Inbox.MarkRead(ctx, accountID, id); err != nil && ctx.Err() == nil {
				logger.Warn("Auto mark read failed", zap.String("notification_id", id), zap.Error(err))
			}
		}
	}()
}

func buildInboxView(accountID string, current []*models.Notification, deleted map[string]bool, loaded bool) InboxView {
	items := make([]InboxItem, len(current))
	for i, n := range current {
		items[i] = InboxItem{Notification: *n, PostDeleted: deleted[n.PostID]}
	}
	return InboxView{
		AccountID: accountID,
		Items:     items,
		Unread:    inbox.UnreadCount(current),
		Loaded:    loaded,
	}
}

package view

import (
	"context"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/inbox"
)

// HeaderView is the signed-in account's name and unread badge.
type HeaderView struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	Unread      int    `json:"unread"`
	// Loaded is false until the first inbox snapshot arrives.
	Loaded bool `json:"loaded"`
}

// HeaderScreen is an open header.
type HeaderScreen struct {
	*Screen[HeaderView]
}

// Header opens the header screen for an account.
func (a *Aggregator) Header(ctx context.Context, accountID string) (*HeaderScreen, error) {
	scr := newScreen[HeaderView](ctx)
	ctx = scr.ctx

	snaps, err := a.deps.Inbox.Watch(ctx, accountID)
	if err != nil {
		scr.cancel()
		return nil, err
	}

	names := make(chan string, 1)
	go func() {
		deliver(ctx, names, a.lookupName(ctx, accountID))
	}()

	logger := a.logger.With(zap.String("screen", "header"), zap.String("account_id", accountID))
	go func() {
		defer scr.finish()

		v := HeaderView{AccountID: accountID}
		for {
			select {
			case <-ctx.Done():
				return
			case name := <-names:
				v.AccountName = name
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				if snap.Err != nil {
					logger.Warn("Inbox snapshot failed", zap.Error(snap.Err))
					continue
				}
				v.Unread = inbox.UnreadCount(snap.Value)
				v.Loaded = true
			}
			scr.emit(v)
		}
	}()

	return &HeaderScreen{Screen: scr}, nil
}

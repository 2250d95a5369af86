package view

import (
	"context"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/store"
)

// Identity is one push from the authentication collaborator: the current
// account id, or empty when nobody is signed in.
type Identity struct {
	AccountID string
}

// SignedIn reports whether an account is present.
func (i Identity) SignedIn() bool {
	return i.AccountID != ""
}

// Session holds the account-scoped screens of one signed-in account.
type Session struct {
	AccountID string
	Header    *HeaderScreen
	Inbox     *InboxScreen
	Feed      *FeedScreen

	cancel context.CancelFunc
}

// Close tears down every screen of the session.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.cancel()
	for _, closer := range []interface{ Close() }{s.Header, s.Inbox, s.Feed} {
		closer.Close()
	}
}

// Bind follows the authentication stream. Each change of account tears
// down the previous session and opens a new one; signing out emits nil.
// Repeated pushes of the same identity are ignored. The returned channel
// holds only the latest session and is closed, with the last session torn
// down, when identities closes or ctx is done.
func (a *Aggregator) Bind(ctx context.Context, identities <-chan Identity) <-chan *Session {
	out := make(chan *Session, 1)

	go func() {
		defer close(out)

		var (
			current *Session
			started bool
			last    Identity
		)
		defer func() { current.Close() }()

		for {
			var id Identity
			select {
			case <-ctx.Done():
				return
			case next, ok := <-identities:
				if !ok {
					return
				}
				id = next
			}
			if started && id == last {
				continue
			}
			started, last = true, id

			current.Close()
			current = nil

			if id.SignedIn() {
				session, err := a.openSession(ctx, id.AccountID)
				if err != nil {
					a.logger.Error("Failed to open session screens",
						zap.String("account_id", id.AccountID),
						zap.Error(err))
				} else {
					current = session
				}
			}
			store.Offer(out, current)
		}
	}()

	return out
}

func (a *Aggregator) openSession(parent context.Context, accountID string) (*Session, error) {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{AccountID: accountID, cancel: cancel}

	var err error
	if s.Header, err = a.Header(ctx, accountID); err != nil {
		cancel()
		return nil, err
	}
	if s.Inbox, err = a.Inbox(ctx, accountID); err != nil {
		s.Header.Close()
		cancel()
		return nil, err
	}
	if s.Feed, err = a.Feed(ctx, accountID); err != nil {
		s.Header.Close()
		s.Inbox.Close()
		cancel()
		return nil, err
	}
	return s, nil
}

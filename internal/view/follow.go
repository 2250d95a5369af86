package view

import (
	"context"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/models"
)

// FollowState is the follow button of one author as seen by the viewer.
type FollowState string

const (
	// FollowUnknown shows no button: the lookup is pending or failed, or
	// nobody is signed in.
	FollowUnknown FollowState = "unknown"
	FollowSelf    FollowState = "self"
	Following     FollowState = "following"
	NotFollowing  FollowState = "not_following"
)

type followResult struct {
	subjectID  string
	following  bool
	fromAction bool
	err        error
}

type nameResult struct {
	accountID string
	name      string
}

// lookups caches per-screen account names and follow states. It is owned
// by the screen loop; lookups report back through the two channels.
type lookups struct {
	agg      *Aggregator
	ctx      context.Context
	viewerID string
	logger   *zap.Logger

	names        map[string]string
	follows      map[string]bool
	pinned       map[string]bool
	pendingName  map[string]bool
	pendingCheck map[string]bool

	nameResults   chan nameResult
	followResults chan followResult
}

func newLookups(ctx context.Context, agg *Aggregator, viewerID string, logger *zap.Logger) *lookups {
	return &lookups{
		agg:           agg,
		ctx:           ctx,
		viewerID:      viewerID,
		logger:        logger,
		names:         make(map[string]string),
		follows:       make(map[string]bool),
		pinned:        make(map[string]bool),
		pendingName:   make(map[string]bool),
		pendingCheck:  make(map[string]bool),
		nameResults:   make(chan nameResult),
		followResults: make(chan followResult),
	}
}

// want starts the lookups a newly seen author needs.
func (l *lookups) want(authorID string) {
	if _, ok := l.names[authorID]; !ok && !l.pendingName[authorID] {
		l.pendingName[authorID] = true
		go func() {
			deliver(l.ctx, l.nameResults, nameResult{accountID: authorID, name: l.agg.lookupName(l.ctx, authorID)})
		}()
	}

	if l.viewerID == "" || authorID == l.viewerID {
		return
	}
	if _, ok := l.follows[authorID]; ok || l.pendingCheck[authorID] {
		return
	}
	l.pendingCheck[authorID] = true
	go func() {
		following, err := l.agg.deps.Graph.IsFollowing(l.ctx, l.viewerID, authorID)
		if err != nil {
			if l.ctx.Err() == nil {
				l.logger.Debug("Follow state lookup failed", zap.String("subject_id", authorID), zap.Error(err))
			}
			deliver(l.ctx, l.followResults, followResult{subjectID: authorID, err: err})
			return
		}
		deliver(l.ctx, l.followResults, followResult{subjectID: authorID, following: following})
	}()
}

func (l *lookups) applyName(r nameResult) {
	delete(l.pendingName, r.accountID)
	l.names[r.accountID] = r.name
}

// applyFollow records a follow state. A state set by the screen's own
// action wins over any lookup still in flight. A failed lookup leaves the
// state unknown and is retried on the next snapshot.
func (l *lookups) applyFollow(r followResult) {
	delete(l.pendingCheck, r.subjectID)
	if r.err != nil {
		return
	}
	if l.pinned[r.subjectID] && !r.fromAction {
		return
	}
	if r.fromAction {
		l.pinned[r.subjectID] = true
	}
	l.follows[r.subjectID] = r.following
}

// name returns the resolved name, the name stored on the record, or
// models.UnknownName, in that order.
func (l *lookups) name(accountID, stored string) string {
	if name, ok := l.names[accountID]; ok && name != models.UnknownName {
		return name
	}
	if stored != "" {
		return stored
	}
	return models.UnknownName
}

func (l *lookups) followState(authorID string) FollowState {
	switch {
	case l.viewerID == "":
		return FollowUnknown
	case authorID == l.viewerID:
		return FollowSelf
	}
	following, ok := l.follows[authorID]
	switch {
	case !ok:
		return FollowUnknown
	case following:
		return Following
	default:
		return NotFollowing
	}
}

// followActions runs Follow and Unfollow for a screen and feeds the result
// back into its loop.
type followActions struct {
	graph    FollowGraph
	viewerID string
	ctx      context.Context
	results  chan<- followResult
}

func (f *followActions) set(ctx context.Context, subjectID string, follow bool) error {
	if f.viewerID == "" {
		return ErrSignedOut
	}
	var err error
	if follow {
		err = f.graph.Follow(ctx, f.viewerID, subjectID)
	} else {
		err = f.graph.Unfollow(ctx, f.viewerID, subjectID)
	}
	if err != nil {
		return err
	}
	deliver(f.ctx, f.results, followResult{subjectID: subjectID, following: follow, fromAction: true})
	return nil
}

// Follow follows subjectID as the viewer and updates the button.
func (f *followActions) Follow(ctx context.Context, subjectID string) error {
	return f.set(ctx, subjectID, true)
}

// Unfollow unfollows subjectID as the viewer and updates the button.
func (f *followActions) Unfollow(ctx context.Context, subjectID string) error {
	return f.set(ctx, subjectID, false)
}

// Package memory is an in-process store backend. It serves local runs and
// is the fake backend in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
)

// Store keeps every record in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	accounts      map[string]models.Account
	edges         map[string]*edgeRecord
	posts         map[string]*models.Post
	reactions     map[string]map[string]models.ReactionKind // postID -> accountID -> kind
	comments      map[string]map[string]*models.Comment     // postID -> commentID
	notifications map[string]map[string]*models.Notification

	bus store.Bus
	now func() time.Time

	// failures injects write errors per operation name, for tests.
	failures map[string]func(args ...string) error
}

// edgeRecord maps each member to the time its edge was added.
type edgeRecord struct {
	following map[string]time.Time
	followers map[string]time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithBus sets the change bus; a LocalBus is used otherwise.
func WithBus(bus store.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		accounts:      make(map[string]models.Account),
		edges:         make(map[string]*edgeRecord),
		posts:         make(map[string]*models.Post),
		reactions:     make(map[string]map[string]models.ReactionKind),
		comments:      make(map[string]map[string]*models.Comment),
		notifications: make(map[string]map[string]*models.Notification),
		now:           func() time.Time { return time.Now().UTC() },
		failures:      make(map[string]func(args ...string) error),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = store.NewLocalBus()
	}
	return s
}

// FailOn makes the named operation call fn with its id arguments and fail
// with any error it returns. Passing nil clears the hook.
func (s *Store) FailOn(op string, fn func(args ...string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = fn
}

func (s *Store) fail(op string, args ...string) error {
	if fn, ok := s.failures[op]; ok {
		return fn(args...)
	}
	return nil
}

// Bus returns the store's change bus.
func (s *Store) Bus() store.Bus { return s.bus }

// Health always succeeds.
func (s *Store) Health(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) publish(ctx context.Context, topics ...string) {
	_ = s.bus.Publish(ctx, topics...)
}

// GetAccount returns the account or nil.
func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetAccount", id); err != nil {
		return nil, err
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// PutAccount creates or replaces an account.
func (s *Store) PutAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	s.accounts[account.ID] = *account
	s.mu.Unlock()
	return nil
}

// GetEdgeList returns the account's edge list or nil when it has none yet.
func (s *Store) GetEdgeList(ctx context.Context, accountID string) (*models.EdgeList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetEdgeList", accountID); err != nil {
		return nil, err
	}
	rec, ok := s.edges[accountID]
	if !ok {
		return nil, nil
	}
	return models.NewEdgeList(accountID, copyEdges(rec.following), copyEdges(rec.followers)), nil
}

// AddEdge adds member to one side of owner's record, creating it if needed.
func (s *Store) AddEdge(ctx context.Context, ownerID string, kind models.EdgeKind, memberID string) error {
	s.mu.Lock()
	if err := s.fail("AddEdge", ownerID, string(kind), memberID); err != nil {
		s.mu.Unlock()
		return err
	}
	rec, ok := s.edges[ownerID]
	if !ok {
		rec = &edgeRecord{following: map[string]time.Time{}, followers: map[string]time.Time{}}
		s.edges[ownerID] = rec
	}
	if side := rec.side(kind); side[memberID].IsZero() {
		side[memberID] = s.now()
	}
	s.mu.Unlock()

	s.publish(ctx, store.TopicEdges(ownerID))
	return nil
}

// RemoveEdge removes member from one side of owner's record.
func (s *Store) RemoveEdge(ctx context.Context, ownerID string, kind models.EdgeKind, memberID string) error {
	s.mu.Lock()
	if err := s.fail("RemoveEdge", ownerID, string(kind), memberID); err != nil {
		s.mu.Unlock()
		return err
	}
	rec, ok := s.edges[ownerID]
	if ok {
		delete(rec.side(kind), memberID)
	}
	s.mu.Unlock()

	if ok {
		s.publish(ctx, store.TopicEdges(ownerID))
	}
	return nil
}

func copyEdges(side map[string]time.Time) map[string]time.Time {
	out := make(map[string]time.Time, len(side))
	for id, since := range side {
		out[id] = since
	}
	return out
}

func (r *edgeRecord) side(kind models.EdgeKind) map[string]time.Time {
	if kind == models.EdgeFollowers {
		return r.followers
	}
	return r.following
}

// GetPost returns the post with its reactions, or nil.
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetPost", id); err != nil {
		return nil, err
	}
	p, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	return s.withReactions(p), nil
}

// CreatePost inserts a post, stamping its timestamps when unset.
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	if err := s.fail("CreatePost", post.ID); err != nil {
		s.mu.Unlock()
		return err
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	stored := post.Clone()
	stored.Likes, stored.Dislikes = nil, nil
	s.posts[post.ID] = stored
	s.mu.Unlock()

	s.publish(ctx, store.PostTopics(post.ID)...)
	return nil
}

// UpdatePost overwrites the editable fields of an existing post.
func (s *Store) UpdatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	if err := s.fail("UpdatePost", post.ID); err != nil {
		s.mu.Unlock()
		return err
	}
	existing, ok := s.posts[post.ID]
	if ok {
		existing.Title = post.Title
		existing.Body = post.Body
		existing.MediaURL = post.MediaURL
		existing.Visibility = post.Visibility
		existing.UpdatedAt = s.now()
		post.UpdatedAt = existing.UpdatedAt
	}
	s.mu.Unlock()

	if ok {
		s.publish(ctx, store.PostTopics(post.ID)...)
	}
	return nil
}

// DeletePost removes a post with its comments and reactions.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.fail("DeletePost", id); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.posts, id)
	delete(s.reactions, id)
	delete(s.comments, id)
	s.mu.Unlock()

	s.publish(ctx, append(store.PostTopics(id), store.TopicComments(id))...)
	return nil
}

// ListPosts returns posts newest first, ties by id descending.
func (s *Store) ListPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("ListPosts"); err != nil {
		return nil, err
	}
	out := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, s.withReactions(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetReaction replaces the account's reaction to a post. Reactions to a
// missing post are dropped.
func (s *Store) SetReaction(ctx context.Context, postID, accountID string, kind models.ReactionKind) error {
	s.mu.Lock()
	if err := s.fail("SetReaction", postID, accountID); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.posts[postID]; !ok {
		s.mu.Unlock()
		return nil
	}
	byAccount, ok := s.reactions[postID]
	if !ok {
		byAccount = make(map[string]models.ReactionKind)
		s.reactions[postID] = byAccount
	}
	if kind == "" {
		delete(byAccount, accountID)
	} else {
		byAccount[accountID] = kind
	}
	s.mu.Unlock()

	s.publish(ctx, store.PostTopics(postID)...)
	return nil
}

func (s *Store) withReactions(p *models.Post) *models.Post {
	c := p.Clone()
	c.Likes, c.Dislikes = []string{}, []string{}
	for accountID, kind := range s.reactions[p.ID] {
		switch kind {
		case models.ReactionLike:
			c.Likes = append(c.Likes, accountID)
		case models.ReactionDislike:
			c.Dislikes = append(c.Dislikes, accountID)
		}
	}
	sort.Strings(c.Likes)
	sort.Strings(c.Dislikes)
	return c
}

// GetComment returns the comment or nil.
func (s *Store) GetComment(ctx context.Context, postID, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[postID][id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// CreateComment inserts a comment under its post.
func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	if err := s.fail("CreateComment", comment.PostID, comment.ID); err != nil {
		s.mu.Unlock()
		return err
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	byID, ok := s.comments[comment.PostID]
	if !ok {
		byID = make(map[string]*models.Comment)
		s.comments[comment.PostID] = byID
	}
	cp := *comment
	byID[comment.ID] = &cp
	s.mu.Unlock()

	s.publish(ctx, store.CommentTopics(comment.PostID)...)
	return nil
}

// DeleteComment removes a comment; a missing one is not an error.
func (s *Store) DeleteComment(ctx context.Context, postID, id string) error {
	s.mu.Lock()
	if err := s.fail("DeleteComment", postID, id); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.comments[postID], id)
	s.mu.Unlock()

	s.publish(ctx, store.CommentTopics(postID)...)
	return nil
}

// ListComments returns the comments of a post oldest first.
func (s *Store) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("ListComments", postID); err != nil {
		return nil, err
	}
	out := make([]*models.Comment, 0, len(s.comments[postID]))
	for _, c := range s.comments[postID] {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetNotification returns the notification or nil.
func (s *Store) GetNotification(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[recipientID][id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

// CreateNotification inserts n unless its id is already present.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) (bool, error) {
	s.mu.Lock()
	if err := s.fail("CreateNotification", n.RecipientID, n.ID); err != nil {
		s.mu.Unlock()
		return false, err
	}
	inbox, ok := s.notifications[n.RecipientID]
	if !ok {
		inbox = make(map[string]*models.Notification)
		s.notifications[n.RecipientID] = inbox
	}
	if _, exists := inbox[n.ID]; exists {
		s.mu.Unlock()
		return false, nil
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	cp := *n
	inbox[n.ID] = &cp
	s.mu.Unlock()

	s.publish(ctx, store.TopicNotifications(n.RecipientID))
	return true, nil
}

// MarkNotificationRead sets read=true; missing notifications are ignored.
func (s *Store) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	s.mu.Lock()
	if err := s.fail("MarkNotificationRead", recipientID, id); err != nil {
		s.mu.Unlock()
		return err
	}
	n, ok := s.notifications[recipientID][id]
	changed := ok && !n.Read
	if changed {
		n.Read = true
	}
	s.mu.Unlock()

	if changed {
		s.publish(ctx, store.TopicNotifications(recipientID))
	}
	return nil
}

// ListNotifications returns the inbox newest first, ties by id.
func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("ListNotifications", recipientID); err != nil {
		return nil, err
	}
	out := make([]*models.Notification, 0, len(s.notifications[recipientID]))
	for _, n := range s.notifications[recipientID] {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package db

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
	"github.com/jalasoft/jalanews/pkg/logging"
)

// Repository provides database access methods
type Repository struct {
	db  *gorm.DB
	bus store.Bus
}

// NewRepository creates a new repository. Writes publish change notices
// on bus.
func NewRepository(db *gorm.DB, bus store.Bus) *Repository {
	return &Repository{db: db, bus: bus}
}

func (r *Repository) publish(ctx context.Context, topics ...string) {
	if err := r.bus.Publish(ctx, topics...); err != nil {
		logging.GetLogger().Warn("Failed to publish change notice",
			zap.Strings("topics", topics),
			zap.Error(err))
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// AccountRepository provides account-related database operations
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(repo *Repository) *AccountRepository {
	return &AccountRepository{Repository: repo}
}

// GetAccount retrieves an account by ID
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// PutAccount creates or replaces an account
func (r *AccountRepository) PutAccount(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// EdgeRepository provides edge-list database operations
type EdgeRepository struct {
	*Repository
}

// NewEdgeRepository creates a new edge repository
func NewEdgeRepository(repo *Repository) *EdgeRepository {
	return &EdgeRepository{Repository: repo}
}

// GetEdgeList retrieves an account's edge list, or nil if it has none
func (r *EdgeRepository) GetEdgeList(ctx context.Context, accountID string) (*models.EdgeList, error) {
	var record models.EdgeListRecord
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var edges []models.Edge
	if err := r.db.WithContext(ctx).Where("owner_id = ?", accountID).Find(&edges).Error; err != nil {
		return nil, err
	}

	following := make(map[string]time.Time)
	followers := make(map[string]time.Time)
	for _, e := range edges {
		if e.Kind == models.EdgeFollowers {
			followers[e.MemberID] = e.CreatedAt
		} else {
			following[e.MemberID] = e.CreatedAt
		}
	}
	return models.NewEdgeList(accountID, following, followers), nil
}

// AddEdge adds a member to one side of the owner's edge list
func (r *EdgeRepository) AddEdge(ctx context.Context, ownerID string, kind models.EdgeKind, memberID string) error {
	ts := now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.EdgeListRecord{AccountID: ownerID, CreatedAt: ts}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Edge{OwnerID: ownerID, Kind: kind, MemberID: memberID, CreatedAt: ts}).Error
	})
	if err != nil {
		return err
	}
	r.publish(ctx, store.TopicEdges(ownerID))
	return nil
}

// RemoveEdge removes a member from one side of the owner's edge list
func (r *EdgeRepository) RemoveEdge(ctx context.Context, ownerID string, kind models.EdgeKind, memberID string) error {
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND member_id = ?", ownerID, kind, memberID).
		Delete(&models.Edge{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		r.publish(ctx, store.TopicEdges(ownerID))
	}
	return nil
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetPost retrieves a post by ID with its reactions
func (r *PostRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	posts := []*models.Post{&post}
	if err := r.loadReactions(ctx, posts); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost creates a new post
func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return err
	}
	r.publish(ctx, store.PostTopics(post.ID)...)
	return nil
}

// UpdatePost updates the editable fields of a post
func (r *PostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = now()
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"title":      post.Title,
			"body":       post.Body,
			"media_url":  post.MediaURL,
			"visibility": post.Visibility,
			"updated_at": post.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		r.publish(ctx, store.PostTopics(post.ID)...)
	}
	return nil
}

// DeletePost deletes a post with its comments and reactions
func (r *PostRepository) DeletePost(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Post{}).Error
	})
	if err != nil {
		return err
	}
	r.publish(ctx, append(store.PostTopics(id), store.TopicComments(id))...)
	return nil
}

// ListPosts retrieves posts newest first
func (r *PostRepository) ListPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := r.loadReactions(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// SetReaction replaces an account's reaction to a post
func (r *PostRepository) SetReaction(ctx context.Context, postID, accountID string, kind models.ReactionKind) error {
	var res *gorm.DB
	if kind == "" {
		res = r.db.WithContext(ctx).
			Where("post_id = ? AND account_id = ?", postID, accountID).
			Delete(&models.Reaction{})
	} else {
		// The subselect drops reactions to posts that no longer exist.
		res = r.db.WithContext(ctx).Exec(
			`INSERT INTO post_reactions (post_id, account_id, kind, created_at)
			 SELECT id, ?, ?, ? FROM posts WHERE id = ?
			 ON CONFLICT (post_id, account_id) DO UPDATE SET kind = EXCLUDED.kind`,
			accountID, kind, now(), postID)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		r.publish(ctx, store.PostTopics(postID)...)
	}
	return nil
}

func (r *PostRepository) loadReactions(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*models.Post, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		p.Likes, p.Dislikes = []string{}, []string{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	var reactions []models.Reaction
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("account_id").
		Find(&reactions).Error; err != nil {
		return err
	}
	for _, rx := range reactions {
		p := byID[rx.PostID]
		switch rx.Kind {
		case models.ReactionLike:
			p.Likes = append(p.Likes, rx.AccountID)
		case models.ReactionDislike:
			p.Dislikes = append(p.Dislikes, rx.AccountID)
		}
	}
	return nil
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// GetComment retrieves a comment of a post
func (r *CommentRepository) GetComment(ctx context.Context, postID, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND id = ?", postID, id).
		First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// CreateComment creates a new comment
func (r *CommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now()
	}
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return err
	}
	r.publish(ctx, store.CommentTopics(comment.PostID)...)
	return nil
}

// DeleteComment deletes a comment
func (r *CommentRepository) DeleteComment(ctx context.Context, postID, id string) error {
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND id = ?", postID, id).
		Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	r.publish(ctx, store.CommentTopics(postID)...)
	return nil
}

// ListComments retrieves the comments of a post oldest first
func (r *CommentRepository) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// NotificationRepository provides notification-related database operations
type NotificationRepository struct {
	*Repository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(repo *Repository) *NotificationRepository {
	return &NotificationRepository{Repository: repo}
}

// GetNotification retrieves a notification from a recipient's inbox
func (r *NotificationRepository) GetNotification(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND id = ?", recipientID, id).
		First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// CreateNotification inserts a notification unless its id already exists
func (r *NotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) (bool, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.publish(ctx, store.TopicNotifications(n.RecipientID))
	return true, nil
}

// MarkNotificationRead flags a notification as read
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND id = ? AND read = ?", recipientID, id, false).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		r.publish(ctx, store.TopicNotifications(recipientID))
	}
	return nil
}

// ListNotifications retrieves a recipient's inbox newest first
func (r *NotificationRepository) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	var list []*models.Notification
	q := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

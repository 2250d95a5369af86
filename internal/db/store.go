package db

import (
	"context"

	"github.com/jalasoft/jalanews/internal/store"
)

// Store is the postgres-backed store.Store.
type Store struct {
	*AccountRepository
	*EdgeRepository
	*PostRepository
	*CommentRepository
	*NotificationRepository

	conn *DB
	bus  store.Bus
}

var _ store.Store = (*Store)(nil)

// NewStore wires the repositories over one connection. Change notices go
// out on bus.
func NewStore(conn *DB, bus store.Bus) *Store {
	repo := NewRepository(conn.DB, bus)
	return &Store{
		AccountRepository:      NewAccountRepository(repo),
		EdgeRepository:         NewEdgeRepository(repo),
		PostRepository:         NewPostRepository(repo),
		CommentRepository:      NewCommentRepository(repo),
		NotificationRepository: NewNotificationRepository(repo),
		conn:                   conn,
		bus:                    bus,
	}
}

// Bus returns the change bus writes publish on.
func (s *Store) Bus() store.Bus { return s.bus }

// Health pings the database.
func (s *Store) Health(ctx context.Context) error { return s.conn.Health(ctx) }

// Close closes the database connection.
func (s *Store) Close() error { return s.conn.Close() }

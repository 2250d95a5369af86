package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/internal/store"
	"github.com/jalasoft/jalanews/pkg/logging"
)

// AccountCache is a read-through cache in front of account lookups. Only
// existing accounts are cached. With a disabled Cache every read goes to
// the next layer.
type AccountCache struct {
	next  store.Accounts
	cache *Cache
	ttl   time.Duration
}

var _ store.Accounts = (*AccountCache)(nil)

// NewAccountCache wraps next with a cache whose entries live for ttl.
func NewAccountCache(next store.Accounts, c *Cache, ttl time.Duration) *AccountCache {
	return &AccountCache{next: next, cache: c, ttl: ttl}
}

func accountKey(id string) string {
	return "account:" + HashKey(id)
}

// GetAccount returns the account from cache, loading it on a miss.
func (a *AccountCache) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if !a.cache.Enabled() {
		return a.next.GetAccount(ctx, id)
	}

	logger := logging.WithAccount(logging.GetLogger(), id)
	key := accountKey(id)
	raw, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		var account models.Account
		if err := json.Unmarshal([]byte(raw), &account); err == nil {
			return &account, nil
		}
		logger.Debug("Discarding undecodable cached account")
	case !errors.Is(err, ErrCacheMiss):
		logger.Debug("Account cache read failed", zap.Error(err))
	}

	account, err := a.next.GetAccount(ctx, id)
	if err != nil || account == nil {
		return account, err
	}

	if data, err := json.Marshal(account); err == nil {
		if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
			logger.Debug("Account cache write failed", zap.Error(err))
		}
	}
	return account, nil
}

// Invalidate drops a cached account.
func (a *AccountCache) Invalidate(ctx context.Context, id string) error {
	if !a.cache.Enabled() {
		return nil
	}
	return a.cache.Delete(ctx, accountKey(id))
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jalasoft/jalanews/internal/models"
)

func TestHashKey(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{
			name:  "single part",
			parts: []string{"test"},
		},
		{
			name:  "multiple parts",
			parts: []string{"test", "key", "with", "many", "parts"},
		},
		{
			name:  "empty parts",
			parts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed1 := HashKey(tt.parts...)
			hashed2 := HashKey(tt.parts...)

			if hashed1 != hashed2 {
				t.Errorf("HashKey() should be consistent, got %s and %s", hashed1, hashed2)
			}

			if len(hashed1) != 32 {
				t.Errorf("HashKey() should return 32 character hex string, got length %d", len(hashed1))
			}
		})
	}

	if HashKey("a", "b") == HashKey("ab") {
		t.Error("HashKey() should separate parts")
	}
}

func TestCache_NamespaceKey(t *testing.T) {
	cache := &Cache{}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "simple key",
			key:      "test",
			expected: "jalanews:test",
		},
		{
			name:     "key with colon",
			key:      "account:key",
			expected: "jalanews:account:key",
		},
		{
			name:     "empty key",
			key:      "",
			expected: "jalanews:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cache.namespaceKey(tt.key)
			if result != tt.expected {
				t.Errorf("namespaceKey() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	var c *Cache

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("Get() error = %v, want ErrCacheDisabled", err)
	}
	if err := c.Set(ctx, "k", "v", time.Second); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("Set() error = %v, want ErrCacheDisabled", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := NewBus(c); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("NewBus() error = %v, want ErrCacheDisabled", err)
	}
}

type stubAccounts struct {
	calls    int
	accounts map[string]*models.Account
}

func (s *stubAccounts) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.calls++
	return s.accounts[id], nil
}

func TestAccountCache_DisabledReadsThrough(t *testing.T) {
	next := &stubAccounts{accounts: map[string]*models.Account{
		"alice": {ID: "alice", FirstName: "Alice"},
	}}
	ac := NewAccountCache(next, nil, time.Minute)

	got, err := ac.GetAccount(context.Background(), "alice")
	if err != nil || got == nil || got.Name() != "Alice" {
		t.Fatalf("GetAccount() = %v, %v", got, err)
	}
	missing, err := ac.GetAccount(context.Background(), "nobody")
	if err != nil || missing != nil {
		t.Errorf("GetAccount(missing) = %v, %v; want nil, nil", missing, err)
	}
	if next.calls != 2 {
		t.Errorf("next called %d times, want 2", next.calls)
	}
	if err := ac.Invalidate(context.Background(), "alice"); err != nil {
		t.Errorf("Invalidate() error = %v", err)
	}
}

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList records token IDs that were signed out before they expired.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "leadbook:revoked:"

// RedisRevocationList shares revocations between server instances.
type RedisRevocationList struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisRevocationList.
type RedisOption func(*RedisRevocationList)

// WithKeyPrefix overrides the key prefix, for tests sharing one server.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisRevocationList) { l.prefix = prefix }
}

// NewRedisRevocationList wraps client. The caller owns the client.
func NewRedisRevocationList(client redis.UniversalClient, opts ...RedisOption) *RedisRevocationList {
	l := &RedisRevocationList{client: client, prefix: revokedKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Revoke marks jti as revoked for ttl. Non-positive ttl is a no-op since the
// token has already expired.
func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return l.client.Set(ctx, l.prefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti is in the list.
func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := l.client.Get(ctx, l.prefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryRevocationList is a process-local RevocationList for single-instance
// deployments and tests.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList returns an empty list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.entries[jti] = now.Add(ttl)
	l.sweepLocked(now)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	if !l.now().Before(exp) {
		delete(l.entries, jti)
		return false, nil
	}
	return true, nil
}

// Len returns the number of unexpired entries.
func (l *MemoryRevocationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(l.now())
	return len(l.entries)
}

func (l *MemoryRevocationList) sweepLocked(now time.Time) {
	for jti, exp := range l.entries {
		if !now.Before(exp) {
			delete(l.entries, jti)
		}
	}
}

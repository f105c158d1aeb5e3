// Package session tracks revoked session tokens by their token id.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

type Revoker interface {
	// Revoke marks the token id as unusable until expiresAt.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const redisKeyPrefix = "session:revoked:"

// RedisRevoker shares revocations across instances.
type RedisRevoker struct {
	client *redis.Client
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, redisKeyPrefix+tokenID, 1, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, redisKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryRevoker keeps revocations in process. Entries are dropped after ttl,
// which should be at least the token lifetime.
type MemoryRevoker struct {
	cache *expirable.LRU[string, struct{}]
}

func NewMemoryRevoker(size int, ttl time.Duration) *MemoryRevoker {
	return &MemoryRevoker{cache: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}
	m.cache.Add(tokenID, struct{}{})
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := m.cache.Get(tokenID)
	return ok, nil
}

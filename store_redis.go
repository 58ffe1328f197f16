package sessionkit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedKeyPrefix = "sessionkit:revoked:"
	refreshKeyPrefix = "sessionkit:refresh:"
)

// RedisStore is a Redis-backed implementation of RevocationStore and
// RefreshStore. Expiry rides on native key TTLs, so dead entries never
// accumulate and no reaper is needed.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store and verifies the connection.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Revoke stores the credential's hash with a native TTL. A non-positive
// ttl is a no-op.
func (r *RedisStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}

	key := revokedKeyPrefix + hashToken(token)
	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// IsRevoked reports whether the credential's revocation key still exists.
func (r *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	exists, err := r.client.Exists(ctx, revokedKeyPrefix+hashToken(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return exists > 0, nil
}

// Put overwrites the identity's refresh slot with a native TTL.
func (r *RedisStore) Put(ctx context.Context, identityID int64, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := r.client.Set(ctx, refreshKey(identityID), token, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Get returns the identity's refresh credential if the key is still live.
func (r *RedisStore) Get(ctx context.Context, identityID int64) (string, bool, error) {
	token, err := r.client.Get(ctx, refreshKey(identityID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis error: %w", err)
	}
	return token, true, nil
}

// Delete removes the identity's refresh slot.
func (r *RedisStore) Delete(ctx context.Context, identityID int64) error {
	if err := r.client.Del(ctx, refreshKey(identityID)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func refreshKey(identityID int64) string {
	return refreshKeyPrefix + strconv.FormatInt(identityID, 10)
}

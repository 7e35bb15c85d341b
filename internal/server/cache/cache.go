// Package cache holds a Redis-backed fast path for the token blacklist.
// The database ledger stays authoritative; the cache only ever answers
// "known revoked".
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gophauth:revoked:"

type RevocationCache struct {
	client *redis.Client
}

func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{client: client}
}

// Connect dials addr and pings it once.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// key never stores the raw token.
func key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// MarkRevoked remembers token as revoked until expiresAt. Already expired
// entries are skipped.
func (c *RevocationCache) MarkRevoked(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RevocationCache) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := c.client.Exists(ctx, key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

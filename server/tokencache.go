package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenCache is a read-through cache in front of the token table. Entries are
// short-lived so revoked or expired tokens go stale quickly.
type tokenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func newTokenCache(rdb *redis.Client, ttl time.Duration) *tokenCache {
	return &tokenCache{rdb: rdb, ttl: ttl}
}

func (c *tokenCache) key(token string) string { return "token:" + token }

func (c *tokenCache) get(ctx context.Context, token string) (User, bool) {
	var u User
	raw, err := c.rdb.Get(ctx, c.key(token)).Bytes()
	if err != nil {
		return u, false
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return u, false
	}
	return u, true
}

func (c *tokenCache) put(ctx context.Context, token string, u User) {
	raw, err := json.Marshal(u)
	if err != nil {
		return
	}
	// cache failures are invisible to callers, the store remains authoritative
	_ = c.rdb.Set(ctx, c.key(token), raw, c.ttl).Err()
}

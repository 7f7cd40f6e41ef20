// Package cache keeps short-lived copies of data the request path looks up
// on every call. Redis is optional: with no client every lookup misses.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Connect dials addr and pings it. It returns nil, and caching stays off,
// when addr is empty or the server does not answer.
func Connect(ctx context.Context, addr string, log logrus.FieldLogger) *redis.Client {
	if addr == "" {
		log.Warn("REDIS_ADDR not set, identity cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", addr).Error("redis unreachable, identity cache disabled")
		_ = rdb.Close()
		return nil
	}

	log.WithField("addr", addr).Info("connected to redis")
	return rdb
}

// Identity is what the auth middleware needs to know about a token's subject.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// DefaultTTL bounds how long a deleted account keeps passing the auth check.
const DefaultTTL = 10 * time.Minute

// Identities caches user lookups by id. A nil client turns it into a no-op.
type Identities struct {
	rdb *redis.Client
	ttl time.Duration
	log logrus.FieldLogger
}

func NewIdentities(rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Identities {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Identities{rdb: rdb, ttl: ttl, log: log}
}

func identityKey(userID string) string { return "user:" + userID + ":identity" }

// Get returns the cached identity, or false on a miss. Redis failures are
// logged and reported as misses so the caller falls back to the database.
func (c *Identities) Get(ctx context.Context, userID string) (Identity, bool) {
	if c == nil || c.rdb == nil {
		return Identity{}, false
	}

	raw, err := c.rdb.Get(ctx, identityKey(userID)).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("user", userID).Warn("identity cache get failed")
		}
		return Identity{}, false
	}

	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		c.log.WithError(err).WithField("user", userID).Warn("identity cache entry unreadable")
		return Identity{}, false
	}
	return id, true
}

func (c *Identities) Set(ctx context.Context, id Identity) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, identityKey(id.UserID), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("user", id.UserID).Warn("identity cache set failed")
	}
}

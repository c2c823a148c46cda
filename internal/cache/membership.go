package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Membership caches external chat-membership checks for a fixed TTL. Expired
// and absent entries look the same to callers: both mean the upstream check
// must run again. It is never the source of truth.
type Membership struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewMembership(rdb *redis.Client, ttl time.Duration) *Membership {
	return &Membership{rdb: rdb, ttl: ttl}
}

func memberKey(chat string, userID int64) string {
	return fmt.Sprintf("member:%s:%d", chat, userID)
}

func (m *Membership) Get(ctx context.Context, chat string, userID int64) (member bool, found bool, err error) {
	val, err := m.rdb.Get(ctx, memberKey(chat, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("membership cache get: %w", err)
	}
	return val == "1", true, nil
}

func (m *Membership) Set(ctx context.Context, chat string, userID int64, member bool) error {
	val := "0"
	if member {
		val = "1"
	}
	if err := m.rdb.Set(ctx, memberKey(chat, userID), val, m.ttl).Err(); err != nil {
		return fmt.Errorf("membership cache set: %w", err)
	}
	return nil
}

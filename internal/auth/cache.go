package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefixes. Session entries map a user id to their current
// token and live until explicit deletion -- their presence is the
// authoritative "is this session valid" check at authorization time.
// Action entries map a one-off token to its target email and expire on
// their own.
const (
	sessionKeyPrefix = "session:"
	actionKeyPrefix  = "verify:"
)

// SessionCache mirrors session liveness in Redis. Misses are reported as
// empty values with a nil error; a non-nil error always means the cache
// itself failed.
type SessionCache interface {
	// SetSession stores userID -> token with no TTL (latest token wins).
	SetSession(ctx context.Context, userID, tok string) error

	// GetSession returns the current token for userID, or "" on a miss.
	GetSession(ctx context.Context, userID string) (string, error)

	// DeleteSession removes the liveness entry for userID.
	DeleteSession(ctx context.Context, userID string) error

	// SetActionToken stores tok -> email with the given TTL.
	SetActionToken(ctx context.Context, tok, email string, ttl time.Duration) error

	// GetActionToken returns the email for an action token, or "" on a miss.
	GetActionToken(ctx context.Context, tok string) (string, error)

	// DeleteActionToken consumes an action token so it cannot be replayed.
	DeleteActionToken(ctx context.Context, tok string) error
}

// redisSessionCache implements SessionCache on a shared Redis client.
type redisSessionCache struct {
	rdb *redis.Client
}

// NewSessionCache creates a SessionCache backed by the given Redis client.
func NewSessionCache(rdb *redis.Client) SessionCache {
	return &redisSessionCache{rdb: rdb}
}

func (c *redisSessionCache) SetSession(ctx context.Context, userID, tok string) error {
	if err := c.rdb.Set(ctx, sessionKeyPrefix+userID, tok, 0).Err(); err != nil {
		return fmt.Errorf("storing session in redis: %w", err)
	}
	return nil
}

func (c *redisSessionCache) GetSession(ctx context.Context, userID string) (string, error) {
	tok, err := c.rdb.Get(ctx, sessionKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session from redis: %w", err)
	}
	return tok, nil
}

func (c *redisSessionCache) DeleteSession(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, sessionKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("deleting session from redis: %w", err)
	}
	return nil
}

func (c *redisSessionCache) SetActionToken(ctx context.Context, tok, email string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, actionKeyPrefix+tok, email, ttl).Err(); err != nil {
		return fmt.Errorf("storing action token in redis: %w", err)
	}
	return nil
}

func (c *redisSessionCache) GetActionToken(ctx context.Context, tok string) (string, error) {
	email, err := c.rdb.Get(ctx, actionKeyPrefix+tok).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading action token from redis: %w", err)
	}
	return email, nil
}

func (c *redisSessionCache) DeleteActionToken(ctx context.Context, tok string) error {
	if err := c.rdb.Del(ctx, actionKeyPrefix+tok).Err(); err != nil {
		return fmt.Errorf("deleting action token from redis: %w", err)
	}
	return nil
}

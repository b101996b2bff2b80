package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrNotLogged = errors.New("not logged in")

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	now         func() time.Time
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		now:         time.Now,
	}
}

// UserID returns the user owning the session token. Unknown and expired
// tokens give ErrNotLogged.
func (c *LoginChecker) UserID(ctx context.Context, token string) (string, error) {
	val, err := c.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotLogged
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}

	createdAt, userID, err := decodeSession(val)
	if err != nil {
		return "", err
	}
	if c.now().Sub(createdAt) > c.ttl {
		return "", ErrNotLogged
	}

	return userID, nil
}

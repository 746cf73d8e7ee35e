package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"classboard/internal/model"
)

// SessionCache handles Redis operations for session lookup by join code.
// Mongo stays the source of truth; this is the hot path for join and for
// code-collision checks during generation.
type SessionCache interface {
	Set(ctx context.Context, session *model.Session) error
	GetByCode(ctx context.Context, code string) (*model.Session, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, code string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    24 * time.Hour, // classroom sessions never outlive a day
	}
}

func (c *sessionCache) key(code string) string {
	return fmt.Sprintf("session:code:%s", code)
}

func (c *sessionCache) Set(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.JoinCode), data, c.ttl).Err()
}

func (c *sessionCache) GetByCode(ctx context.Context, code string) (*model.Session, error) {
	data, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}

func (c *sessionCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}

package credential

import (
	"context"
	"errors"

	"storefront/internal/domain"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:credential:"

type redisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedis returns a Store that keeps the slot under a single redis key.
func NewRedis(client redis.UniversalClient, slot string) Store {
	return &redisStore{client: client, key: redisKeyPrefix + slot}
}

func (s *redisStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && token == "") {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *redisStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	return s.client.Set(ctx, s.key, token, 0).Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

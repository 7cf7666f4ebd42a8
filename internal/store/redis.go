package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis is the primary fast backend: one key, no TTL. Treated as
// ephemeral; a flushed instance simply falls through to the next backend.
type Redis struct {
	Client *redis.Client
	Key    string
}

func NewRedis(opt *redis.Options, key string) *Redis {
	return &Redis{Client: redis.NewClient(opt), Key: key}
}

func (s *Redis) Name() string { return "redis" }

func (s *Redis) Load(ctx context.Context) ([]byte, bool, error) {
	b, err := s.Client.Get(ctx, s.Key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Redis) Save(ctx context.Context, data []byte) error {
	return s.Client.Set(ctx, s.Key, data, 0).Err()
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

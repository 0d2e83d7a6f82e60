package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/seedslabs/gratibot-backend/pkg/redis"
)

// RedisStore keeps scratch records in Redis so registration flows survive
// process restarts and horizontal scale-out.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps the shared redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, chatIdentity string) (Scratch, bool, error) {
	raw, err := s.client.Get(ctx, s.client.ConversationKey(chatIdentity))
	if errors.Is(err, redis.Nil) {
		return Scratch{}, false, nil
	}
	if err != nil {
		return Scratch{}, false, err
	}

	var scratch Scratch
	if err := json.Unmarshal([]byte(raw), &scratch); err != nil {
		return Scratch{}, false, err
	}
	return scratch, true, nil
}

func (s *RedisStore) Put(ctx context.Context, chatIdentity string, scratch Scratch) error {
	payload, err := json.Marshal(scratch)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.client.ConversationKey(chatIdentity), payload, s.ttl)
}

func (s *RedisStore) Clear(ctx context.Context, chatIdentity string) error {
	return s.client.Del(ctx, s.client.ConversationKey(chatIdentity))
}

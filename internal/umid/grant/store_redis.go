package grant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/sentinel"
)

const keyPrefix = "umid:grant:"

// RedisStore keeps grants in Redis, leaning on key TTLs so expiry needs no
// sweeper. Redis is the natural fit here: grants are ephemeral and shared
// across server replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed grant store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, grant models.Grant) error {
	ttl := time.Until(grant.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("grant already expired")
	}
	payload, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+grant.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store grant: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*models.Grant, error) {
	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("fetch grant: %w", err)
	}
	var grant models.Grant
	if err := json.Unmarshal(payload, &grant); err != nil {
		return nil, fmt.Errorf("unmarshal grant: %w", err)
	}
	return &grant, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}
	return nil
}

package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"doiregistrar/pkg/platform/sentinel"
)

// DefaultRedisKey is where the customer credential document lives unless configured otherwise.
const DefaultRedisKey = "doiregistrar:secrets:customers"

// RedisStore reads the credential document from a single Redis string key.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore creates a store reading key. An empty key uses DefaultRedisKey.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Fetch returns the raw document. A missing key is sentinel.ErrNotFound;
// connection failures are sentinel.ErrUnavailable.
func (s *RedisStore) Fetch(ctx context.Context) ([]byte, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("secret key %s: %w", s.key, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read secret key %s: %w: %w", s.key, sentinel.ErrUnavailable, err)
	}
	return payload, nil
}

// Put replaces the document. Used by seeding and integration tests.
func (s *RedisStore) Put(ctx context.Context, payload []byte) error {
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("write secret key %s: %w", s.key, err)
	}
	return nil
}

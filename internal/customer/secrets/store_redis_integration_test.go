//go:build integration

package secrets_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"doiregistrar/internal/customer/secrets"
	platformredis "doiregistrar/internal/platform/redis"
	"doiregistrar/pkg/platform/sentinel"
	"doiregistrar/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *secrets.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = secrets.NewRedisStore(s.redis.Client, "")
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestMissingKeyIsNotFound() {
	_, err := s.store.Fetch(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestPutThenFetch() {
	ctx := context.Background()
	doc := []byte(`[{"customerId":"https://example.org/c/1","customerDoiPrefix":"10.5072"}]`)
	s.Require().NoError(s.store.Put(ctx, doc))

	got, err := s.store.Fetch(ctx)
	s.Require().NoError(err)
	s.JSONEq(string(doc), string(got))
}

func (s *RedisStoreSuite) TestCustomKey() {
	ctx := context.Background()
	store := secrets.NewRedisStore(s.redis.Client, "other:key")
	s.Require().NoError(store.Put(ctx, []byte(`[]`)))

	_, err := s.store.Fetch(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSecondClientSeesWrites() {
	ctx := context.Background()
	other, err := platformredis.New(ctx, s.redis.Config())
	s.Require().NoError(err)
	defer other.Close()

	s.Require().NoError(secrets.NewRedisStore(other, "").Put(ctx, []byte(`[]`)))

	got, err := s.store.Fetch(ctx)
	s.Require().NoError(err)
	s.Equal("[]", string(got))
}

func (s *RedisStoreSuite) TestClosedClientIsUnavailable() {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	_, err := secrets.NewRedisStore(client, "").Fetch(context.Background())
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

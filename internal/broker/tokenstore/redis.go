package tokenstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

const defaultKeyPrefix = "kis:token:"

// RedisClient is the subset of the go-redis client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps records in Redis so several processes on different hosts
// share one token. Entries expire together with the token.
type RedisStore struct {
	client RedisClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a RedisStore. An empty prefix selects "kis:token:".
func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// NewRedisClient connects to addr with the given password and database.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, key string) (Record, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}

	if err != nil {
		return Record{}, false, errors.Wrap(errors.ErrCodeTokenStore, "failed to read token from redis", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false, errors.Wrap(errors.ErrCodeTokenStore, "failed to decode token from redis", err)
	}

	return rec, true, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, key string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTokenStore, "failed to encode token", err)
	}

	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Minute
	}

	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeTokenStore, "failed to write token to redis", err)
	}

	return nil
}

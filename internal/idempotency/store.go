package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyCartAdd scopes a client key to a session: idem:cart:add:{session}:{key}.
const KeyCartAdd = "idem:cart:add:%s:%s"

const lockTTL = 30 * time.Second

// Response is a stored HTTP response replayed for a repeated key.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

type Store interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Save(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Lock marks key as in flight. It returns false if another request holds it.
	Lock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Response, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Response{}, false, nil
		}
		return Response{}, false, fmt.Errorf("get idempotency key: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false, fmt.Errorf("decode idempotent response: %w", err)
	}
	return resp, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotent response: %w", err)
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key+":lock", 1, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("lock idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Unlock(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key+":lock").Err()
}

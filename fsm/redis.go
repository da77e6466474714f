package fsm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const keyPrefix = "kiprej:dialog:"

// RedisStore keeps dialogues in redis as JSON so they survive restarts and
// are shared between replicas. Idle dialogues expire after TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(chatID int64) string {
	return keyPrefix + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) Load(ctx context.Context, chatID int64) (*Dialog, error) {
	raw, err := s.rdb.Get(ctx, key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load dialogue")
	}
	d, err := decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode dialogue")
	}
	return d, nil
}

func (s *RedisStore) Save(ctx context.Context, d *Dialog) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "encode dialogue")
	}
	return errors.Wrap(s.rdb.Set(ctx, key(d.ChatID), raw, s.ttl).Err(), "save dialogue")
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	return errors.Wrap(s.rdb.Del(ctx, key(chatID)).Err(), "clear dialogue")
}

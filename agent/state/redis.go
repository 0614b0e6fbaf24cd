package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string `split_words:"true"`
	Password string `split_words:"true"`
	DB       int    `envconfig:"DB" default:"0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// RedisReplayStore shares replies between specialist replicas.
type RedisReplayStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ ReplayStore = (*RedisReplayStore)(nil)

// NewRedisReplayStore connects and pings the server before returning.
func NewRedisReplayStore(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisReplayStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisReplayStoreFromClient(client, ttl), nil
}

func NewRedisReplayStoreFromClient(client *redis.Client, ttl time.Duration) *RedisReplayStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisReplayStore{client: client, keyPrefix: defaultKeyPrefix, ttl: ttl}
}

func (s *RedisReplayStore) Get(ctx context.Context, key string) (*Reply, bool, error) {
	k, err := storeKey(s.keyPrefix, key)
	if err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", k, err)
	}
	var r Reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, fmt.Errorf("decode reply: %w", err)
	}
	return &r, true, nil
}

// Put keeps the first reply stored for a key.
func (s *RedisReplayStore) Put(ctx context.Context, key string, r *Reply) error {
	if r == nil {
		return ErrNilReply
	}
	k, err := storeKey(s.keyPrefix, key)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	if err := s.client.SetNX(ctx, k, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", k, err)
	}
	return nil
}

func (s *RedisReplayStore) Close() error {
	return s.client.Close()
}

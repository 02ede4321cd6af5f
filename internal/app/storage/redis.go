package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"croissants/internal/app/config"
	"croissants/internal/app/form"
)

const (
	sessionPrefix = "croissants:session:"
	submitPrefix  = "croissants:submit:"
)

// RedisStore — состояние сессий в Redis, блокировка отправки через SETNX
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl, lockTTL time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Username:    cfg.User,
		Password:    cfg.Password,
		DB:          0,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cant ping redis: %w", err)
	}
	logrus.Infof("Redis connected at %s:%d", cfg.Host, cfg.Port)

	return NewRedisStoreWithClient(client, ttl, lockTTL), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl, lockTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, lockTTL: lockTTL}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (*form.State, error) {
	data, err := r.client.Get(ctx, sessionPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return form.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	st := form.NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return st, nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, st *form.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, sessionPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

func (r *RedisStore) AcquireSubmit(ctx context.Context, sessionID string) (bool, error) {
	return r.client.SetNX(ctx, submitPrefix+sessionID, 1, r.lockTTL).Result()
}

func (r *RedisStore) ReleaseSubmit(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, submitPrefix+sessionID).Err()
}

func (r *RedisStore) SubmitInFlight(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, submitPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

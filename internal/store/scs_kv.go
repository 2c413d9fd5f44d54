package store

import (
	"authsession/internal/config"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/redis/go-redis/v9"
)

// persistentLifetime is the expiry handed to scs stores. Records must outlive
// any token they carry, the credential store decides validity itself.
const persistentLifetime = 10 * 365 * 24 * time.Hour

// ScsKV adapts any scs session store to KV, using one scs token per key.
type ScsKV struct {
	store  scs.Store
	prefix string
	now    func() time.Time
}

func NewScsKV(store scs.Store, prefix string) *ScsKV {
	return &ScsKV{store: store, prefix: prefix, now: time.Now}
}

func (s *ScsKV) token(key string) string {
	return s.prefix + key
}

func (s *ScsKV) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		b     []byte
		found bool
		err   error
	)

	if ctxStore, ok := s.store.(scs.CtxStore); ok {
		b, found, err = ctxStore.FindCtx(ctx, s.token(key))
	} else {
		b, found, err = s.store.Find(s.token(key))
	}
	if err != nil {
		return "", false, &StoreError{Operation: "get", Key: key, Cause: err}
	}
	if !found {
		return "", false, nil
	}
	return string(b), true, nil
}

func (s *ScsKV) Set(ctx context.Context, key string, value string) error {
	expiry := s.now().Add(persistentLifetime)

	var err error
	if ctxStore, ok := s.store.(scs.CtxStore); ok {
		err = ctxStore.CommitCtx(ctx, s.token(key), []byte(value), expiry)
	} else {
		err = s.store.Commit(s.token(key), []byte(value), expiry)
	}
	if err != nil {
		return &StoreError{Operation: "set", Key: key, Cause: err}
	}
	return nil
}

func (s *ScsKV) Delete(ctx context.Context, key string) error {
	var err error
	if ctxStore, ok := s.store.(scs.CtxStore); ok {
		err = ctxStore.DeleteCtx(ctx, s.token(key))
	} else {
		err = s.store.Delete(s.token(key))
	}
	if err != nil {
		return &StoreError{Operation: "delete", Key: key, Cause: err}
	}
	return nil
}

// NewRedisClient connects to redis directly or through sentinel and verifies
// the connection with a ping.
func NewRedisClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration is required")
	}

	var client *redis.Client

	if cfg.Redis.Sentinel != nil {
		logger.Info("connecting to redis via sentinel",
			"master", cfg.Redis.Sentinel.MasterName,
			"sentinels", cfg.Redis.Sentinel.SentinelAddresses)

		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.Redis.Sentinel.MasterName,
			SentinelAddrs:    cfg.Redis.Sentinel.SentinelAddresses,
			SentinelUsername: cfg.Redis.Sentinel.SentinelUsername,
			SentinelPassword: cfg.Redis.Sentinel.SentinelPassword,
			Username:         cfg.Redis.Username,
			Password:         cfg.Redis.Password,
			DB:               cfg.Redis.Index,
			MinIdleConns:     2,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.Index,
			MinIdleConns: 2,
		})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

// RedisKV is a ScsKV over goredisstore that also exposes the redis client so
// callers can register client metrics and close it on shutdown.
type RedisKV struct {
	*ScsKV
	Client *redis.Client
}

func NewRedisKV(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*RedisKV, error) {
	client, err := NewRedisClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &RedisKV{
		ScsKV:  NewScsKV(goredisstore.New(client), cfg.Store.KeyPrefix),
		Client: client,
	}, nil
}

func (r *RedisKV) Close() error {
	return r.Client.Close()
}

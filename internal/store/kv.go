package store

import (
	"authsession/internal/config"
	"authsession/internal/metrics"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -source=kv.go -destination=../mocks/kv.go -package=mocks

// KV is the durable, synchronous key-value storage the credential store is
// built on. Set must replace a value as a whole.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend is an instrumented KV plus the resources behind it.
type Backend struct {
	KV
	// Redis is set only for the redis backend.
	Redis  *redis.Client
	closer io.Closer
}

func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// NewKV builds the backend selected by cfg.Store.Type.
func NewKV(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	storeType := cfg.Store.Type
	if storeType == "" {
		storeType = metrics.StoreTypeMemory
	}

	backend := &Backend{}
	var kv KV

	switch storeType {
	case metrics.StoreTypeFile:
		fileKV, err := NewFileKV(cfg.Store.FilePath)
		if err != nil {
			return nil, err
		}
		kv = fileKV
	case metrics.StoreTypeRedis:
		redisKV, err := NewRedisKV(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		kv = redisKV
		backend.Redis = redisKV.Client
		backend.closer = redisKV
	case metrics.StoreTypeSQLite:
		sqliteKV, err := NewSQLiteKV(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		kv = sqliteKV
		backend.closer = sqliteKV
	case metrics.StoreTypeMemory:
		kv = NewMemKV()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, cfg.Store.Type)
	}

	logger.Info("credential store ready", "type", storeType)

	backend.KV = Instrument(kv, storeType)
	return backend, nil
}

type instrumentedKV struct {
	next KV
	name string
}

// Instrument wraps kv with operation timing and error counters.
func Instrument(kv KV, name string) KV {
	return &instrumentedKV{next: kv, name: name}
}

func (i *instrumentedKV) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, found, err := i.next.Get(ctx, key)
	i.observe(metrics.StoreOperationGet, start, err)
	return value, found, err
}

func (i *instrumentedKV) Set(ctx context.Context, key string, value string) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	i.observe(metrics.StoreOperationSet, start, err)
	return err
}

func (i *instrumentedKV) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Delete(ctx, key)
	i.observe(metrics.StoreOperationDelete, start, err)
	return err
}

func (i *instrumentedKV) observe(operation string, start time.Time, err error) {
	metrics.StoreOperationDuration.WithLabelValues(i.name, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(i.name, operation).Inc()
	}
}

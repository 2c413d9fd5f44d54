package store

import (
	"authsession/internal/metrics"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Bundle is the persisted result of a successful token exchange.
type Bundle struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	// ExpiresIn is the token lifetime in seconds as reported by the server.
	ExpiresIn int64 `json:"expiresIn"`
	// CreatedAt is epoch milliseconds taken from the local clock.
	CreatedAt int64 `json:"createdAt"`
}

func (b *Bundle) Validate() error {
	if b == nil || b.AccessToken == "" {
		return ErrInvalidBundle
	}
	return nil
}

func (b *Bundle) ExpiresAt() time.Time {
	return time.UnixMilli(b.CreatedAt).Add(time.Duration(b.ExpiresIn) * time.Second)
}

// Expired reports whether now is at or past createdAt + expiresIn.
func (b *Bundle) Expired(now time.Time) bool {
	return now.UnixMilli()-b.CreatedAt >= b.ExpiresIn*1000
}

// Remaining is the time left before expiry, negative once expired.
func (b *Bundle) Remaining(now time.Time) time.Duration {
	return b.ExpiresAt().Sub(now)
}

// CredentialStore is the typed view over a KV used by the session controller.
// Read failures are logged and reported as absent.
type CredentialStore struct {
	kv     KV
	logger *slog.Logger
}

func NewCredentialStore(kv KV, logger *slog.Logger) *CredentialStore {
	return &CredentialStore{
		kv:     kv,
		logger: logger.With("component", "credential_store"),
	}
}

// LoadBundle returns the persisted bundle or nil. A record that cannot be
// parsed, or that lacks an access token or creation time, is deleted.
func (c *CredentialStore) LoadBundle(ctx context.Context) *Bundle {
	raw, ok := c.Load(ctx, KeyAuth)
	if !ok {
		return nil
	}

	var bundle Bundle
	err := json.Unmarshal([]byte(raw), &bundle)
	if err == nil && bundle.AccessToken == "" {
		err = ErrInvalidBundle
	}
	if err == nil && bundle.CreatedAt <= 0 {
		err = errors.New("missing createdAt")
	}

	if err != nil {
		corrupted := &CorruptedStateError{Key: KeyAuth, Err: err}
		c.logger.Warn("discarding persisted credentials", "error", corrupted)
		metrics.CorruptedRecords.WithLabelValues(string(KeyAuth)).Inc()

		if err := c.Clear(ctx, KeyAuth); err != nil {
			c.logger.Error("failed to remove corrupted credentials", "error", err)
		}
		return nil
	}

	return &bundle
}

// SaveBundle replaces the persisted bundle with a single write.
func (c *CredentialStore) SaveBundle(ctx context.Context, bundle Bundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	return c.Save(ctx, KeyAuth, string(data))
}

func (c *CredentialStore) ClearBundle(ctx context.Context) error {
	return c.Clear(ctx, KeyAuth)
}

func (c *CredentialStore) Load(ctx context.Context, key Key) (string, bool) {
	value, found, err := c.kv.Get(ctx, string(key))
	if err != nil {
		c.logger.Error("failed to read persisted value", "key", key, "error", err)
		return "", false
	}
	return value, found
}

func (c *CredentialStore) Save(ctx context.Context, key Key, value string) error {
	if err := c.kv.Set(ctx, string(key), value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func (c *CredentialStore) Clear(ctx context.Context, key Key) error {
	if err := c.kv.Delete(ctx, string(key)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", key, err)
	}
	return nil
}

// Flag reports whether a boolean slot is set.
func (c *CredentialStore) Flag(ctx context.Context, key Key) bool {
	value, ok := c.Load(ctx, key)
	return ok && value == flagTrue
}

func (c *CredentialStore) SetFlag(ctx context.Context, key Key) error {
	return c.Save(ctx, key, flagTrue)
}

// ClearAll removes every slot. It keeps going after a failure and returns the
// joined errors.
func (c *CredentialStore) ClearAll(ctx context.Context) error {
	var errs []error
	for _, key := range AllKeys {
		if err := c.Clear(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

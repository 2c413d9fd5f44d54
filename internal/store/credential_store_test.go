package store_test

import (
	"authsession/internal/mocks"
	"authsession/internal/store"
	"authsession/internal/testutil"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestStore(t *testing.T) (*store.CredentialStore, *store.MemKV, *testutil.TestLogHandler) {
	t.Helper()
	handler := testutil.NewTestLogHandler()
	kv := store.NewMemKV()
	return store.NewCredentialStore(kv, slog.New(handler)), kv, handler
}

func TestBundle_Expiry(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	bundle := store.Bundle{AccessToken: "a", ExpiresIn: 600, CreatedAt: now.Add(-550 * time.Second).UnixMilli()}

	assert.False(t, bundle.Expired(now))
	assert.Equal(t, 50*time.Second, bundle.Remaining(now))
	assert.True(t, bundle.Expired(now.Add(50*time.Second)))
	assert.Equal(t, now.Add(50*time.Second), bundle.ExpiresAt())
}

func TestCredentialStore_LoadAbsent(t *testing.T) {
	creds, _, _ := newTestStore(t)
	assert.Nil(t, creds.LoadBundle(context.Background()))
}

func TestCredentialStore_SaveAndLoad(t *testing.T) {
	creds, kv, _ := newTestStore(t)
	ctx := context.Background()

	bundle := store.Bundle{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600, CreatedAt: 1_700_000_000_000}
	require.NoError(t, creds.SaveBundle(ctx, bundle))

	raw, found, err := kv.Get(ctx, string(store.KeyAuth))
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"accessToken":"access","refreshToken":"refresh","expiresIn":3600,"createdAt":1700000000000}`, raw)

	loaded := creds.LoadBundle(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, bundle, *loaded)
}

func TestCredentialStore_SaveRejectsMissingAccessToken(t *testing.T) {
	creds, kv, _ := newTestStore(t)

	err := creds.SaveBundle(context.Background(), store.Bundle{ExpiresIn: 60, CreatedAt: 1})
	assert.ErrorIs(t, err, store.ErrInvalidBundle)
	assert.Equal(t, 0, kv.Len())
}

func TestCredentialStore_CorruptedRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "{accessToken:"},
		{name: "wrong type", raw: `{"accessToken":"a","expiresIn":"soon","createdAt":1}`},
		{name: "missing access token", raw: `{"expiresIn":60,"createdAt":1}`},
		{name: "missing createdAt", raw: `{"accessToken":"a","expiresIn":60}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, kv, handler := newTestStore(t)
			ctx := context.Background()
			require.NoError(t, kv.Set(ctx, string(store.KeyAuth), tt.raw))

			assert.Nil(t, creds.LoadBundle(ctx))

			_, found, _ := kv.Get(ctx, string(store.KeyAuth))
			assert.False(t, found, "corrupted record should be removed")
			assert.True(t, handler.ContainsMessage(slog.LevelWarn, "discarding persisted credentials"))

			records := handler.GetRecordsByLevel(slog.LevelWarn)
			require.Len(t, records, 1)
			var corrupted *store.CorruptedStateError
			err, ok := records[0].Attrs["error"].(error)
			require.True(t, ok)
			assert.ErrorAs(t, err, &corrupted)
			assert.Equal(t, store.KeyAuth, corrupted.Key)
		})
	}
}

func TestCredentialStore_Flags(t *testing.T) {
	creds, _, _ := newTestStore(t)
	ctx := context.Background()

	assert.False(t, creds.Flag(ctx, store.KeyManualLogout))
	require.NoError(t, creds.SetFlag(ctx, store.KeyManualLogout))
	assert.True(t, creds.Flag(ctx, store.KeyManualLogout))

	require.NoError(t, creds.Save(ctx, store.KeySessionExpired, "1"))
	assert.False(t, creds.Flag(ctx, store.KeySessionExpired), "only the canonical value counts as set")

	require.NoError(t, creds.Clear(ctx, store.KeyManualLogout))
	assert.False(t, creds.Flag(ctx, store.KeyManualLogout))
}

func TestCredentialStore_ClearAll(t *testing.T) {
	creds, kv, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range store.AllKeys {
		require.NoError(t, creds.Save(ctx, key, "value"))
	}
	require.NoError(t, kv.Set(ctx, "unrelated", "kept"))

	require.NoError(t, creds.ClearAll(ctx))
	assert.Equal(t, 1, kv.Len())
}

func TestCredentialStore_BackendFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := mocks.NewMockKV(ctrl)
	handler := testutil.NewTestLogHandler()
	creds := store.NewCredentialStore(kv, slog.New(handler))
	ctx := context.Background()
	backendErr := errors.New("connection refused")

	kv.EXPECT().Get(gomock.Any(), string(store.KeyAuth)).Return("", false, backendErr)
	assert.Nil(t, creds.LoadBundle(ctx))
	assert.True(t, handler.ContainsMessage(slog.LevelError, "failed to read persisted value"))

	kv.EXPECT().Set(gomock.Any(), string(store.KeyPKCEVerifier), "v").Return(backendErr)
	err := creds.Save(ctx, store.KeyPKCEVerifier, "v")
	assert.ErrorIs(t, err, backendErr)

	kv.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(backendErr).Times(len(store.AllKeys))
	err = creds.ClearAll(ctx)
	assert.ErrorIs(t, err, backendErr)
}

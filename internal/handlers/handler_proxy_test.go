package handlers

import (
	"authsession/internal/apiclient"
	"authsession/internal/store"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSession struct {
	bundle  *store.Bundle
	expired int
}

func (s *staticSession) Auth() *store.Bundle { return s.bundle }

func (s *staticSession) ExpireSession(context.Context) error {
	s.expired++
	return nil
}

func TestUpstreamProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Cookie"))
		assert.Equal(t, "/widgets", r.URL.Path)
		_, _ = io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &staticSession{bundle: &store.Bundle{AccessToken: "token-1", ExpiresIn: 60}}
	proxy := NewUpstreamProxy(target, apiclient.NewTransport(nil, source, logger), logger)

	req := httptest.NewRequest(http.MethodGet, "/widgets", nil)
	req.Header.Set("Cookie", "session=abc")
	rr := httptest.NewRecorder()

	proxy.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.Zero(t, source.expired)
}

func TestUpstreamProxy_NoCredentials(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called without credentials")
	}))
	defer upstream.Close()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proxy := NewUpstreamProxy(target, apiclient.NewTransport(nil, &staticSession{}, logger), logger)

	rr := httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/widgets", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpstreamProxy_Rejected(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &staticSession{bundle: &store.Bundle{AccessToken: "stale"}}
	proxy := NewUpstreamProxy(target, apiclient.NewTransport(nil, source, logger), logger)

	rr := httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/widgets", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 1, source.expired)
}

package apiclient

import (
	"authsession/internal/store"
	"context"
	"errors"
	"log/slog"
	"net/http"
)

var ErrNoCredentials = errors.New("no credentials available for outbound request")

// SessionSource supplies the bearer token and is told when the API rejects it.
type SessionSource interface {
	Auth() *store.Bundle
	ExpireSession(ctx context.Context) error
}

// Transport attaches the session's access token to outgoing requests. A 401
// response marks the session expired so the controller starts a new login.
type Transport struct {
	base    http.RoundTripper
	session SessionSource
	logger  *slog.Logger
}

func NewTransport(base http.RoundTripper, session SessionSource, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:    base,
		session: session,
		logger:  logger,
	}
}

// NewClient returns an http.Client that authenticates with the current session.
func NewClient(session SessionSource, logger *slog.Logger) *http.Client {
	return &http.Client{Transport: NewTransport(nil, session, logger)}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	bundle := t.session.Auth()
	if bundle == nil || bundle.AccessToken == "" {
		return nil, ErrNoCredentials
	}

	outbound := req.Clone(req.Context())
	outbound.Header.Set("Authorization", "Bearer "+bundle.AccessToken)

	resp, err := t.base.RoundTrip(outbound)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.logger.Warn("API rejected access token, expiring session", "method", req.Method, "url", req.URL.Redacted())
		if err := t.session.ExpireSession(context.WithoutCancel(req.Context())); err != nil {
			t.logger.Error("failed to expire session", "error", err)
		}
	}

	return resp, nil
}

package auth

import (
	"authsession/internal/store"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

var errMissingAccessToken = errors.New("token response has no access_token")

// Exchanger trades authorization codes and refresh tokens for credential
// bundles at the token endpoint.
type Exchanger struct {
	config *oauth2.Config
	client *http.Client
	now    func() time.Time
}

func NewExchanger(config *oauth2.Config, client *http.Client) *Exchanger {
	if client == nil {
		client = http.DefaultClient
	}
	return &Exchanger{config: config, client: client, now: time.Now}
}

// WithClock overrides the clock used for CreatedAt.
func (e *Exchanger) WithClock(now func() time.Time) *Exchanger {
	e.now = now
	return e
}

// Exchange posts grant_type=authorization_code with the code, redirect_uri,
// client_id and code_verifier.
func (e *Exchanger) Exchange(ctx context.Context, code string, verifier string) (store.Bundle, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)

	token, err := e.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return store.Bundle{}, newTokenExchangeError(err)
	}

	return e.bundleFromToken(token)
}

// Refresh posts grant_type=refresh_token. The previous refresh token is kept
// when the server does not return a new one.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (store.Bundle, error) {
	if refreshToken == "" {
		return store.Bundle{}, &TokenExchangeError{Err: errors.New("no refresh token available")}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)

	token, err := e.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return store.Bundle{}, newTokenExchangeError(err)
	}

	return e.bundleFromToken(token)
}

func (e *Exchanger) bundleFromToken(token *oauth2.Token) (store.Bundle, error) {
	if token.AccessToken == "" {
		return store.Bundle{}, &TokenExchangeError{Err: errMissingAccessToken}
	}

	now := e.now()
	bundle := store.Bundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn(token, now),
		CreatedAt:    now.UnixMilli(),
	}

	if bundle.ExpiresIn <= 0 {
		return store.Bundle{}, &TokenExchangeError{Err: fmt.Errorf("token response has no usable expires_in")}
	}

	return bundle, nil
}

func expiresIn(token *oauth2.Token, now time.Time) int64 {
	if token.ExpiresIn > 0 {
		return token.ExpiresIn
	}

	switch raw := token.Extra("expires_in").(type) {
	case float64:
		return int64(raw)
	case string:
		if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return seconds
		}
	}

	if !token.Expiry.IsZero() {
		return int64(token.Expiry.Sub(now).Round(time.Second) / time.Second)
	}

	return 0
}

package session

import (
	"authsession/internal/renewal"
	"authsession/internal/store"
	"context"
)

//go:generate mockgen -source=interfaces.go -destination=../mocks/session.go -package=mocks

// Navigator is the routing capability of the host application.
type Navigator interface {
	CurrentPath() string
	NavigateTo(target string)
}

// PendingNavigator is implemented by navigators that queue targets until the
// client collects them.
type PendingNavigator interface {
	HasPending() bool
}

// RenewalChannel owns the hidden browsing context used for silent renewal.
type RenewalChannel interface {
	Open(ctx context.Context, req renewal.Request) (<-chan renewal.Message, error)
	Close()
}

type Launcher interface {
	AuthURL(state string, challenge string, silent bool) string
}

type Exchanger interface {
	Exchange(ctx context.Context, code string, verifier string) (store.Bundle, error)
	Refresh(ctx context.Context, refreshToken string) (store.Bundle, error)
}

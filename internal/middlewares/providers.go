package middlewares

import (
	"authsession/internal/renewal"
	"authsession/internal/session"
	"context"
)

//go:generate mockgen -source=providers.go -destination=../mocks/providers.go -package=mocks

// SessionController is the part of the session controller the HTTP layer drives.
type SessionController interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	HandleCallback(ctx context.Context, code string) error
	CheckLogin(ctx context.Context, preserveRoute bool) error
	Retry(ctx context.Context) error
	Resume(ctx context.Context) error
	Snapshot() session.Snapshot
}

// RenewalFrame receives callback messages addressed to the hidden renewal frame.
type RenewalFrame interface {
	Post(origin string, msg renewal.Message) bool
}

type NavigationProvider interface {
	CurrentPath() string
	SetPath(path string)
	TakePending() (string, bool)
}

package session

import (
	"authsession/internal/store"
	"context"
	"log/slog"
	"strings"
)

// RedirectPreserver remembers the route to resume after an authentication
// round trip. The stored path is handed out at most once.
type RedirectPreserver struct {
	credentials *store.CredentialStore
	navigator   Navigator
	excluded    []string
	logger      *slog.Logger
}

// NewRedirectPreserver creates a preserver that never returns paths under any
// of the excluded prefixes.
func NewRedirectPreserver(credentials *store.CredentialStore, navigator Navigator, logger *slog.Logger, excluded ...string) *RedirectPreserver {
	return &RedirectPreserver{
		credentials: credentials,
		navigator:   navigator,
		excluded:    excluded,
		logger:      logger,
	}
}

// RecordCurrentPath stores the navigator's current path without its query and
// re-arms consumption.
func (r *RedirectPreserver) RecordCurrentPath(ctx context.Context) error {
	path := pathOnly(r.navigator.CurrentPath())

	if err := r.credentials.Save(ctx, store.KeyLastPath, path); err != nil {
		return err
	}
	return r.credentials.Clear(ctx, store.KeyLastPathConsumed)
}

// ConsumeReturnPath returns the recorded path and clears it. Every later call
// returns fallback until a new path is recorded.
func (r *RedirectPreserver) ConsumeReturnPath(ctx context.Context, fallback string) string {
	if r.credentials.Flag(ctx, store.KeyLastPathConsumed) {
		return fallback
	}

	path, ok := r.credentials.Load(ctx, store.KeyLastPath)

	if err := r.credentials.SetFlag(ctx, store.KeyLastPathConsumed); err != nil {
		r.logger.Error("failed to mark return path consumed", "error", err)
	}
	if err := r.credentials.Clear(ctx, store.KeyLastPath); err != nil {
		r.logger.Error("failed to clear return path", "error", err)
	}

	if !ok || !r.allowed(path) {
		if ok {
			r.logger.Debug("return path replaced with fallback", "path", path, "fallback", fallback)
		}
		return fallback
	}
	return path
}

func (r *RedirectPreserver) allowed(path string) bool {
	// only same-site absolute paths; "//host" would leave the application
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return false
	}

	for _, prefix := range r.excluded {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return false
		}
	}
	return true
}

func pathOnly(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return "/"
	}
	return target
}

package navigation

import (
	"log/slog"
	"strings"
	"sync"
)

// Tracker is the server-side stand-in for the browser location. The session
// controller navigates through it and the HTTP layer hands the pending target
// to the client on its next request.
type Tracker struct {
	mu      sync.Mutex
	current string
	pending string
	logger  *slog.Logger
}

func NewTracker(initial string, logger *slog.Logger) *Tracker {
	if initial == "" {
		initial = "/"
	}
	return &Tracker{
		current: initial,
		logger:  logger,
	}
}

// CurrentPath returns the route the user is on, including its query.
func (t *Tracker) CurrentPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// SetPath records the route reported by the client.
func (t *Tracker) SetPath(path string) {
	if path == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = path
}

// NavigateTo queues target for the client. In-app targets also become the
// current path.
func (t *Tracker) NavigateTo(target string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = target
	if IsLocal(target) {
		t.current = target
	}

	t.logger.Debug("navigation requested", "target", target)
}

// TakePending returns the queued navigation target and clears it.
func (t *Tracker) TakePending() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	target := t.pending
	t.pending = ""
	return target, target != ""
}

// HasPending reports whether a navigation is waiting for the client.
func (t *Tracker) HasPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != ""
}

// IsLocal reports whether target is a path within this application.
func IsLocal(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//")
}

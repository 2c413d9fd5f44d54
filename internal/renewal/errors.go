package renewal

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrClosed     = errors.New("renewal channel closed")
	ErrEmptyURL   = errors.New("renewal request has no URL")
	ErrEmptyState = errors.New("renewal request has no state")
)

// RenewalTimeoutError is delivered when the hidden frame produced no message
// within the configured wait.
type RenewalTimeoutError struct {
	State   string
	Timeout time.Duration
}

func (e *RenewalTimeoutError) Error() string {
	return fmt.Sprintf("silent renewal %s produced no message within %s", e.State, e.Timeout)
}

// InteractionRequiredError is returned by loaders when the authorization
// server answered with a page instead of redirecting back.
type InteractionRequiredError struct {
	StatusCode int
}

func (e *InteractionRequiredError) Error() string {
	return fmt.Sprintf("authorization server requires interaction (status %d)", e.StatusCode)
}

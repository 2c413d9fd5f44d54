package session

import "errors"

var (
	// ErrLoggedOut is returned to callers whose pending work was cancelled by a logout.
	ErrLoggedOut = errors.New("session logged out")
	// ErrAttemptDiscarded is returned when an attempt finished after it stopped being current.
	ErrAttemptDiscarded = errors.New("authentication attempt discarded")
	// ErrNotRunning is returned when the controller loop is not accepting events.
	ErrNotRunning = errors.New("session controller is not running")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("session controller is already running")
	// ErrExchangeInFlight is returned when a different code arrives while one is being exchanged.
	ErrExchangeInFlight = errors.New("another authorization code is being exchanged")
	// ErrMissingVerifier is reported when a code arrives but no PKCE verifier is stored.
	ErrMissingVerifier = errors.New("no pkce verifier stored for this attempt")
)

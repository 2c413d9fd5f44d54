package session

// State is the in-memory session state. It is never persisted.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateNeedsLogin
	StateAuthenticating
	StateAuthenticated
	StateError
	StateLoggedOut
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateChecking:       "checking",
	StateNeedsLogin:     "needs_login",
	StateAuthenticating: "authenticating",
	StateAuthenticated:  "authenticated",
	StateError:          "error",
	StateLoggedOut:      "logged_out",
}

// AllStates lists every state, in order, for resetting the state gauge.
var AllStates = []State{
	StateIdle,
	StateChecking,
	StateNeedsLogin,
	StateAuthenticating,
	StateAuthenticated,
	StateError,
	StateLoggedOut,
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

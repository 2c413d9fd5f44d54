package auth

import (
	"authsession/internal/pkce"
	"strings"

	"golang.org/x/oauth2"
)

// Attempt kinds carried as the prefix of the OAuth state parameter. The
// single callback route dispatches on them.
const (
	StateKindLogin = "login"
	StateKindFrame = "frame"
)

const PromptNone = "none"

// NewState encodes an attempt as "<kind>.<attempt id>".
func NewState(kind, attemptID string) string {
	return kind + "." + attemptID
}

// ParseState splits a state value produced by NewState.
func ParseState(state string) (kind string, attemptID string, ok bool) {
	kind, attemptID, found := strings.Cut(state, ".")
	if !found || attemptID == "" {
		return "", "", false
	}
	if kind != StateKindLogin && kind != StateKindFrame {
		return "", "", false
	}
	return kind, attemptID, true
}

// Launcher builds authorization URLs for interactive and silent attempts.
type Launcher struct {
	config *oauth2.Config
	prompt string
}

func NewLauncher(config *oauth2.Config, prompt string) *Launcher {
	return &Launcher{config: config, prompt: prompt}
}

// AuthURL returns the authorization endpoint URL with response_type, client_id,
// redirect_uri, scope, state and the S256 code challenge. Silent attempts ask
// the server not to show any UI.
func (l *Launcher) AuthURL(state string, challenge string, silent bool) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
	}

	if silent {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", PromptNone))
	} else if l.prompt != "" {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", l.prompt))
	}

	return l.config.AuthCodeURL(state, opts...)
}

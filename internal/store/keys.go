package store

// Key is the logical name of a persisted slot.
type Key string

const (
	KeyAuth             Key = "auth"
	KeyPKCEVerifier     Key = "pkce_verifier"
	KeyLastPath         Key = "lastPath"
	KeyLastPathConsumed Key = "lastPathConsumed"
	KeySessionExpired   Key = "sessionExpired"
	KeyManualLogout     Key = "manualLogout"
	KeyFirstLogin       Key = "firstLogin"
	KeyLastCode         Key = "lastCode"
)

// AllKeys lists every slot owned by the credential store.
var AllKeys = []Key{
	KeyAuth,
	KeyPKCEVerifier,
	KeyLastPath,
	KeyLastPathConsumed,
	KeySessionExpired,
	KeyManualLogout,
	KeyFirstLogin,
	KeyLastCode,
}

const flagTrue = "true"

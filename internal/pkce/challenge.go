package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// verifierBytes is the amount of entropy drawn for each verifier. 64 bytes
	// encode to 86 characters, inside the 43-128 range allowed by RFC 7636.
	verifierBytes = 64

	MinVerifierLength = 43
	MaxVerifierLength = 128

	Method = "S256"
)

// Pair is a PKCE verifier and its S256 challenge.
type Pair struct {
	Verifier  string `json:"verifier"`
	Challenge string `json:"challenge"`
}

// ChallengeGenerationError means the platform could not produce secure random
// bytes. It is fatal and must not be retried.
type ChallengeGenerationError struct {
	Err error
}

func (e *ChallengeGenerationError) Error() string {
	return fmt.Sprintf("pkce challenge generation failed: %v", e.Err)
}

func (e *ChallengeGenerationError) Unwrap() error {
	return e.Err
}

// Generate returns a fresh pair drawn from crypto/rand.
func Generate() (Pair, error) {
	return GenerateWith(rand.Reader)
}

// GenerateWith returns a fresh pair drawn from the given random source.
func GenerateWith(random io.Reader) (Pair, error) {
	b := make([]byte, verifierBytes)
	if _, err := io.ReadFull(random, b); err != nil {
		return Pair{}, &ChallengeGenerationError{Err: err}
	}

	verifier := base64.RawURLEncoding.EncodeToString(b)
	return Pair{
		Verifier:  verifier,
		Challenge: Challenge(verifier),
	}, nil
}

// Challenge computes the base64url (unpadded) SHA-256 digest of verifier.
func Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// Validate checks that verifier has a legal length and only uses the
// unreserved character set.
func Validate(verifier string) error {
	if len(verifier) < MinVerifierLength || len(verifier) > MaxVerifierLength {
		return fmt.Errorf("code verifier length must be between %d and %d characters, got %d", MinVerifierLength, MaxVerifierLength, len(verifier))
	}

	for i := 0; i < len(verifier); i++ {
		if !isUnreserved(verifier[i]) {
			return fmt.Errorf("code verifier contains invalid character %q at position %d", verifier[i], i)
		}
	}

	return nil
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

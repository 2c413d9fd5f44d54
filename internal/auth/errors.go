package auth

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenExchangeError covers every way a token request can fail: transport
// errors, non-2xx responses, malformed bodies and missing access tokens.
type TokenExchangeError struct {
	StatusCode  int
	ErrorCode   string
	Description string
	Body        string
	Err         error
}

func (e *TokenExchangeError) Error() string {
	switch {
	case e.ErrorCode != "" && e.Description != "":
		return fmt.Sprintf("token exchange failed (%d %s): %s", e.StatusCode, e.ErrorCode, e.Description)
	case e.ErrorCode != "":
		return fmt.Sprintf("token exchange failed (%d %s)", e.StatusCode, e.ErrorCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("token exchange failed with status %d", e.StatusCode)
	default:
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

func newTokenExchangeError(err error) *TokenExchangeError {
	exchangeErr := &TokenExchangeError{Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			exchangeErr.StatusCode = retrieveErr.Response.StatusCode
		}
		exchangeErr.ErrorCode = retrieveErr.ErrorCode
		exchangeErr.Description = retrieveErr.ErrorDescription
		exchangeErr.Body = string(retrieveErr.Body)
	}

	return exchangeErr
}

// CallbackWithoutCodeError is returned when the callback carries neither a
// code nor an error parameter.
type CallbackWithoutCodeError struct {
	State string
}

func (e *CallbackWithoutCodeError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("callback for state %q has neither code nor error", e.State)
	}
	return "callback has neither code nor error"
}

// AuthorizationError is an error response delivered to the callback by the
// authorization server.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
	}
	return "authorization failed: " + e.Code
}

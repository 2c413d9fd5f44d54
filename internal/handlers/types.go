package handlers

import (
	"authsession/internal/session"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ActionLogin = "login"
	ActionRetry = "retry"
)

type AuthStatusResponse struct {
	State         string              `json:"state"`
	Authenticated bool                `json:"authenticated"`
	FirstLogin    bool                `json:"first_login"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	Claims        jwt.MapClaims       `json:"claims,omitempty"`
	Frame         session.FrameStatus `json:"frame"`
	NavigateTo    string              `json:"navigate_to,omitempty"`
	Action        string              `json:"action,omitempty"`
	Error         string              `json:"error,omitempty"`
}

type CheckRequest struct {
	Path          string `json:"path"`
	PreserveRoute bool   `json:"preserve_route"`
}

type TokenResponse struct {
	TokenType   string    `json:"token_type"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Subject     string    `json:"subject,omitempty"`
}

package handlers

import (
	"authsession/internal/auth"
	"authsession/internal/middlewares"
	"net/http"
)

// GETTokenHandler returns the current access token. It is mounted behind
// RequireSession.
func GETTokenHandler(ctx *middlewares.AppContext) {
	snapshot := ctx.Session.Snapshot()
	if snapshot.Auth == nil {
		ctx.SetJSONError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	ctx.Response.Header().Set("Cache-Control", "no-store")
	ctx.WriteJSON(http.StatusOK, TokenResponse{
		TokenType:   "Bearer",
		AccessToken: snapshot.Auth.AccessToken,
		ExpiresAt:   snapshot.Auth.ExpiresAt(),
		Subject:     auth.Subject(snapshot.Auth.AccessToken),
	})
}

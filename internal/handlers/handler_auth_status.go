package handlers

import (
	"authsession/internal/auth"
	"authsession/internal/middlewares"
	"authsession/internal/session"
	"net/http"
)

const genericFailure = "authentication failed"

func AuthStatusHandler(ctx *middlewares.AppContext) {
	response := buildStatus(ctx)

	if !response.Authenticated {
		ctx.WriteJSON(http.StatusUnauthorized, response)
		return
	}

	ctx.WriteJSON(http.StatusOK, response)
}

// buildStatus snapshots the session and hands over any pending navigation.
func buildStatus(ctx *middlewares.AppContext) AuthStatusResponse {
	snapshot := ctx.Session.Snapshot()

	response := AuthStatusResponse{
		State:      snapshot.State.String(),
		FirstLogin: snapshot.FirstLogin,
		Frame:      snapshot.Frame,
	}

	if snapshot.Auth != nil {
		expiresAt := snapshot.Auth.ExpiresAt()
		response.ExpiresAt = &expiresAt
		response.Claims = auth.Claims(snapshot.Auth.AccessToken)
		response.Authenticated = snapshot.State == session.StateAuthenticated || snapshot.State == session.StateAuthenticating
	}

	if target, ok := ctx.Navigator.TakePending(); ok {
		response.NavigateTo = target
	}

	switch snapshot.State {
	case session.StateError:
		response.Action = ActionRetry
		response.Error = genericFailure
	case session.StateLoggedOut:
		response.Action = ActionLogin
	}

	return response
}

func writeStatus(ctx *middlewares.AppContext) {
	ctx.WriteJSON(http.StatusOK, buildStatus(ctx))
}

package handlers

import (
	"authsession/internal/auth"
	"authsession/internal/middlewares"
	"authsession/internal/renewal"
	"net/http"
)

const frameDonePage = `<!doctype html><html><head><title>Session renewal</title></head><body></body></html>`

// GETCallbackHandler receives the authorization server redirect. Responses for
// the hidden renewal frame are posted to it, everything else completes an
// interactive login.
func GETCallbackHandler(ctx *middlewares.AppContext) {
	query := ctx.Request.URL.Query()
	state := query.Get("state")
	code := query.Get("code")
	errorParam := query.Get("error")

	if kind, _, ok := auth.ParseState(state); ok && kind == auth.StateKindFrame {
		origin := middlewares.RequestOrigin(ctx.Request)
		msg := renewal.Message{
			State:            state,
			Code:             code,
			Error:            errorParam,
			ErrorDescription: query.Get("error_description"),
		}

		if !ctx.Frame.Post(origin, msg) {
			ctx.Logger.Warn("Ignoring renewal callback", "state", state, "origin", origin)
		}

		ctx.WriteHTML(http.StatusOK, frameDonePage)
		return
	}

	if errorParam != "" {
		ctx.Logger.Warn("Authorization server returned an error",
			"error", errorParam,
			"description", query.Get("error_description"),
			"state", state,
		)
		ctx.Redirect("/", http.StatusFound)
		return
	}

	if code == "" {
		err := &auth.CallbackWithoutCodeError{State: state}
		ctx.Logger.Warn("Returning to start", "error", err)
		ctx.Redirect("/", http.StatusFound)
		return
	}

	if err := ctx.Session.HandleCallback(ctx, code); err != nil {
		ctx.Logger.Error("Failed to complete login", "error", err)
		ctx.Redirect("/", http.StatusFound)
		return
	}

	target, ok := ctx.Navigator.TakePending()
	if !ok {
		target = ctx.Config.Session.DefaultPath
	}

	ctx.Logger.Info("User successfully authenticated", "redirect", target)
	ctx.Redirect(target, http.StatusFound)
}

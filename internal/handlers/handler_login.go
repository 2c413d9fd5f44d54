package handlers

import (
	"authsession/internal/middlewares"
	"net/http"
)

func POSTLoginHandler(ctx *middlewares.AppContext) {
	if err := ctx.Session.Login(ctx); err != nil {
		ctx.Logger.Error("Failed to start login", "error", err)
		ctx.SetJSONError(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	target, ok := ctx.Navigator.TakePending()
	if !ok {
		ctx.Logger.Debug("No navigation required after login request")
		ctx.SetJSONStatus(http.StatusOK, "ok")
		return
	}

	ctx.Logger.Debug("Redirecting to authorization server", "url", target)

	ctx.WriteJSON(http.StatusOK, map[string]string{
		"status":       "redirect_required",
		"redirect_url": target,
	})
}

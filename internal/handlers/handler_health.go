package handlers

import (
	"authsession/internal/middlewares"
	"authsession/internal/version"
	"net/http"
)

func HandlerHealth(ctx *middlewares.AppContext) {
	ctx.WriteJSON(http.StatusOK, map[string]string{
		"status":  "OK",
		"session": ctx.Session.Snapshot().State.String(),
		"version": version.Get().Version,
	})
}

package handlers

import (
	"authsession/internal/middlewares"
	"net/http"
)

func POSTLogoutHandler(ctx *middlewares.AppContext) {
	if err := ctx.Session.Logout(ctx); err != nil {
		ctx.Logger.Error("Failed to logout user", "error", err)
		ctx.SetJSONError(http.StatusInternalServerError, "Failed to logout")
		return
	}

	ctx.Logger.Info("User logged out")

	ctx.WriteJSON(http.StatusOK, map[string]string{
		"status": "OK",
		"action": ActionLogin,
	})
}

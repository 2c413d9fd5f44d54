package handlers

import (
	"authsession/internal/middlewares"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxCheckBodyBytes = 4096

// POSTCheckHandler records the route reported by the client and re-evaluates the session.
func POSTCheckHandler(ctx *middlewares.AppContext) {
	var request CheckRequest

	body := http.MaxBytesReader(ctx.Response, ctx.Request.Body, maxCheckBodyBytes)
	if err := json.NewDecoder(body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.Logger.Debug("Invalid check request", "error", err)
		ctx.SetJSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	if request.Path != "" {
		ctx.Navigator.SetPath(request.Path)
	}

	if err := ctx.Session.CheckLogin(ctx, request.PreserveRoute); err != nil {
		ctx.Logger.Error("Session check failed", "error", err)
		ctx.SetJSONError(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeStatus(ctx)
}

// POSTRetryHandler clears every persisted session value and starts over.
func POSTRetryHandler(ctx *middlewares.AppContext) {
	if err := ctx.Session.Retry(ctx); err != nil {
		ctx.Logger.Error("Failed to retry login", "error", err)
		ctx.SetJSONError(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeStatus(ctx)
}

// GETResumeHandler sends an authenticated user back to the route they were on
// before logging in.
func GETResumeHandler(ctx *middlewares.AppContext) {
	if err := ctx.Session.Resume(ctx); err != nil {
		ctx.Logger.Error("Failed to resume session", "error", err)
		ctx.SetJSONError(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeStatus(ctx)
}

package middlewares

import (
	"authsession/internal/session"
	"net/http"
	"time"
)

// RequireSession rejects requests unless the session holds unexpired
// credentials. A silent renewal in progress keeps the current token usable.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		appCtx := GetAppContext(r)
		if appCtx == nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		snapshot := appCtx.Session.Snapshot()
		usable := snapshot.State == session.StateAuthenticated || snapshot.State == session.StateAuthenticating
		if !usable || snapshot.Auth == nil || snapshot.Auth.Expired(time.Now()) {
			appCtx.WriteJSON(http.StatusUnauthorized, map[string]string{
				"error": http.StatusText(http.StatusUnauthorized),
				"state": snapshot.State.String(),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

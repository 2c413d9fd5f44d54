package renewal_test

import (
	"authsession/internal/renewal"
	"authsession/internal/testutil"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAuthorizationServer answers /authorize with a redirect through /session,
// which only redirects back to the client when the session cookie is present.
func newAuthorizationServer(t *testing.T, redirectURI string, loggedIn bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		if loggedIn {
			http.SetCookie(w, &http.Cookie{Name: "idp_session", Value: "s1", Path: "/"})
		}
		http.Redirect(w, r, "/session?"+r.URL.RawQuery, http.StatusFound)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("idp_session"); err != nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>login form</html>"))
			return
		}
		target := redirectURI + "?" + url.Values{
			"code":  {"code-from-idp"},
			"state": {r.URL.Query().Get("state")},
		}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPLoader_FollowsRedirectChain(t *testing.T) {
	redirectURI := testOrigin + "/callback"
	server := newAuthorizationServer(t, redirectURI, true)

	frame := renewal.NewFrame(testOrigin, 5*time.Second, slog.New(testutil.NewTestLogHandler()))
	loader, err := renewal.NewHTTPLoader(server.Client(), redirectURI, frame)
	require.NoError(t, err)
	frame.UseLoader(loader)

	ch, err := frame.Open(context.Background(), renewal.Request{
		URL:   server.URL + "/authorize?state=frame.7&prompt=none",
		State: "frame.7",
	})
	require.NoError(t, err)

	msg, ok := receive(t, ch)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "code-from-idp", msg.Code)
	assert.Equal(t, "frame.7", msg.State)
}

func TestHTTPLoader_PostsNormalisedOrigin(t *testing.T) {
	redirectURI := "https://App.Example.com:443/callback"
	server := newAuthorizationServer(t, redirectURI, true)

	frame := renewal.NewFrame(testOrigin, 5*time.Second, slog.New(testutil.NewTestLogHandler()))
	loader, err := renewal.NewHTTPLoader(server.Client(), redirectURI, frame)
	require.NoError(t, err)
	frame.UseLoader(loader)

	ch, err := frame.Open(context.Background(), renewal.Request{
		URL:   server.URL + "/authorize?state=frame.9",
		State: "frame.9",
	})
	require.NoError(t, err)

	msg, ok := receive(t, ch)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "code-from-idp", msg.Code)
}

func TestHTTPLoader_InteractionRequired(t *testing.T) {
	redirectURI := testOrigin + "/callback"
	server := newAuthorizationServer(t, redirectURI, false)

	frame := renewal.NewFrame(testOrigin, 5*time.Second, slog.New(testutil.NewTestLogHandler()))
	loader, err := renewal.NewHTTPLoader(server.Client(), redirectURI, frame)
	require.NoError(t, err)
	frame.UseLoader(loader)

	ch, err := frame.Open(context.Background(), renewal.Request{
		URL:   server.URL + "/authorize?state=frame.8",
		State: "frame.8",
	})
	require.NoError(t, err)

	msg, ok := receive(t, ch)
	require.True(t, ok)

	var interactionErr *renewal.InteractionRequiredError
	require.ErrorAs(t, msg.Err, &interactionErr)
	assert.Equal(t, http.StatusOK, interactionErr.StatusCode)
}

func TestNewHTTPLoader_InvalidRedirect(t *testing.T) {
	_, err := renewal.NewHTTPLoader(nil, "://bad", nil)
	assert.Error(t, err)
}

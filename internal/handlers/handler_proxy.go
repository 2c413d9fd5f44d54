package handlers

import (
	"authsession/internal/apiclient"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// NewUpstreamProxy forwards requests to target through transport, which adds
// the session's bearer token.
func NewUpstreamProxy(target *url.URL, transport http.RoundTripper, logger *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
			r.Out.Header.Del("Cookie")
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, apiclient.ErrNoCredentials) {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			logger.Error("Upstream request failed", "path", r.URL.Path, "error", err)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}
}

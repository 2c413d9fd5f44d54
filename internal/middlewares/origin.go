package middlewares

import (
	"authsession/internal/config"
	"net/http"
	"strings"
)

// RequestOrigin returns the scheme://host the client used to reach the agent,
// honouring X-Forwarded-Proto and X-Forwarded-Host set by a reverse proxy. It is
// normalised like config.Origin.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(r, "X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	host := r.Host
	if forwarded := firstHeaderValue(r, "X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}
	if host == "" {
		return ""
	}

	return config.JoinOrigin(scheme, host)
}

func firstHeaderValue(r *http.Request, name string) string {
	value := r.Header.Get(name)
	if value == "" {
		return ""
	}

	values := strings.Split(value, ",")
	return strings.ToLower(strings.TrimSpace(values[0]))
}

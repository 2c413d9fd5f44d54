package renewal

import (
	"authsession/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// UILoader leaves loading to the embedding UI, which mounts the hidden frame
// while the session status reports it as visible.
type UILoader struct{}

func (UILoader) Load(context.Context, string) error {
	return nil
}

// Poster receives the message read off the final redirect.
type Poster interface {
	Post(origin string, msg Message) bool
}

// HTTPLoader follows the authorization redirect chain with a cookie-carrying
// client and stops at the redirect URI, for hosts without a browser.
type HTTPLoader struct {
	client      *http.Client
	redirectURI *url.URL
	poster      Poster
}

func NewHTTPLoader(client *http.Client, redirectURI string, poster Poster) (*HTTPLoader, error) {
	target, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect uri: %w", err)
	}

	var base http.Client
	if client != nil {
		base = *client
	}
	if base.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		base.Jar = jar
	}

	loader := &HTTPLoader{
		redirectURI: target,
		poster:      poster,
	}

	base.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if loader.isRedirectURI(req.URL) {
			return http.ErrUseLastResponse
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	loader.client = &base

	return loader, nil
}

func (l *HTTPLoader) Load(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build renewal request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("renewal request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	location, err := resp.Location()
	if err != nil || !l.isRedirectURI(location) {
		return &InteractionRequiredError{StatusCode: resp.StatusCode}
	}

	query := location.Query()
	msg := Message{
		State:            query.Get("state"),
		Code:             query.Get("code"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	origin := config.Origin(l.redirectURI.String())
	if !l.poster.Post(origin, msg) {
		return fmt.Errorf("renewal answer for state %q was not accepted", msg.State)
	}
	return nil
}

func (l *HTTPLoader) isRedirectURI(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, l.redirectURI.Scheme) &&
		strings.EqualFold(u.Host, l.redirectURI.Host) &&
		u.Path == l.redirectURI.Path
}

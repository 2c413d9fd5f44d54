package auth

import (
	"authsession/internal/config"
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DiscoverEndpoint reads the authorization and token endpoints from the
// issuer's OpenID configuration document.
func DiscoverEndpoint(ctx context.Context, issuerURL string) (oauth2.Endpoint, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return provider.Endpoint(), nil
}

// NewOAuth2Config builds the client configuration. Explicit auth_url and
// token_url take precedence over discovery. Client credentials are always sent
// in the form body, never as basic auth.
func NewOAuth2Config(ctx context.Context, cfg config.OAuth2Config, client *http.Client) (*oauth2.Config, error) {
	endpoint := oauth2.Endpoint{
		AuthURL:  cfg.AuthURL,
		TokenURL: cfg.TokenURL,
	}

	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		if client != nil {
			ctx = oidc.ClientContext(ctx, client)
		}

		discovered, err := DiscoverEndpoint(ctx, cfg.IssuerURL)
		if err != nil {
			return nil, err
		}

		if endpoint.AuthURL == "" {
			endpoint.AuthURL = discovered.AuthURL
		}
		if endpoint.TokenURL == "" {
			endpoint.TokenURL = discovered.TokenURL
		}
	}

	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       cfg.Scopes,
		RedirectURL:  cfg.RedirectURI,
	}, nil
}

package sessionkit

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuerURL = "https://accounts.google.com"

// GoogleProvider implements OAuth2Provider via Google OIDC. The profile
// comes from the verified ID token rather than a userinfo round-trip.
type GoogleProvider struct {
	conf     oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogleProvider creates a Google OIDC provider. Discovery runs at
// construction, so a failure here is a startup failure.
func NewGoogleProvider(ctx context.Context, clientID, clientSecret string) (*GoogleProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, googleIssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	return &GoogleProvider{
		conf: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *GoogleProvider) Name() ProviderType {
	return ProviderGoogle
}

// AuthCodeURL builds the Google authorization URL.
func (p *GoogleProvider) AuthCodeURL(state, redirectURI string) string {
	conf := p.conf
	conf.RedirectURL = redirectURI
	return conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for Google credentials.
func (p *GoogleProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	conf := p.conf
	conf.RedirectURL = redirectURI

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google code exchange failed: %v", ErrExternalProvider, err)
	}
	return token, nil
}

// FetchProfile verifies the ID token returned alongside the access token
// and normalizes its claims.
func (p *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*FederatedProfile, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: google did not return id_token", ErrExternalProvider)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: google id_token verification failed: %v", ErrExternalProvider, err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: google id_token claims parse failed: %v", ErrExternalProvider, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: google id_token missing subject", ErrExternalProvider)
	}

	return &FederatedProfile{
		ExternalID: claims.Subject,
		Provider:   ProviderGoogle,
		Email:      claims.Email,
		Name:       claims.Name,
		Picture:    claims.Picture,
	}, nil
}

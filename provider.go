package sessionkit

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuth2Provider is the contract every external identity provider
// implements. Implementations exchange an authorization code for a
// provider token, fetch the federated profile, and normalize it; they
// make no auth decisions and never touch local identities.
type OAuth2Provider interface {
	// Name returns the provider identifier used for registry lookup and
	// redirect URI construction.
	Name() ProviderType

	// AuthCodeURL returns the provider's authorization URL for the given
	// state and redirect URI.
	AuthCodeURL(state, redirectURI string) string

	// Exchange trades the single-use authorization code for a provider
	// access token. Failures surface as ErrExternalProvider and are
	// never retried: the code cannot be presented twice.
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)

	// FetchProfile loads the federated profile behind the provider token
	// and normalizes it. Same failure policy as Exchange.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*FederatedProfile, error)
}

// ProviderRegistry holds the configured OAuth2 providers keyed by
// provider type. It performs no auth logic itself.
type ProviderRegistry struct {
	providers map[ProviderType]OAuth2Provider
}

// NewProviderRegistry registers the given providers. Provider names must
// be unique.
func NewProviderRegistry(list ...OAuth2Provider) *ProviderRegistry {
	m := make(map[ProviderType]OAuth2Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &ProviderRegistry{providers: m}
}

// Get returns the provider by type or an error if not registered.
func (r *ProviderRegistry) Get(name ProviderType) (OAuth2Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	return p, nil
}

package sessionkit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FederatedFlow runs the federated login end to end: code exchange,
// profile fetch, reconciliation into a local identity, and credential
// issuance through the session service.
type FederatedFlow struct {
	registry       *ProviderRegistry
	sessions       *Session
	identities     IdentityRepository
	redirectOrigin string
	log            *zap.Logger
	now            func() time.Time
}

// NewFederatedFlow wires a federated login flow. The config's
// RedirectOrigin is the fallback when a caller supplies no origin.
func NewFederatedFlow(config Config, registry *ProviderRegistry, sessions *Session, identities IdentityRepository) (*FederatedFlow, error) {
	if registry == nil {
		return nil, fmt.Errorf("provider registry cannot be nil")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service cannot be nil")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity repository cannot be nil")
	}

	return &FederatedFlow{
		registry:       registry,
		sessions:       sessions,
		identities:     identities,
		redirectOrigin: config.RedirectOrigin,
		log:            config.logger(),
		now:            config.clock(),
	}, nil
}

// LoginURL returns the provider's authorization URL for the given state
// and caller origin.
func (f *FederatedFlow) LoginURL(provider ProviderType, state, redirectOrigin string) (string, error) {
	p, err := f.registry.Get(provider)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state, f.resolveRedirectURI(redirectOrigin, p.Name())), nil
}

// Login exchanges the authorization code, reconciles the federated
// profile into a local identity, and issues a credential pair. A failed
// exchange is reported, not retried: the code is single-use.
func (f *FederatedFlow) Login(ctx context.Context, provider ProviderType, code, redirectOrigin string) (*TokenPair, error) {
	p, err := f.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	redirectURI := f.resolveRedirectURI(redirectOrigin, p.Name())

	token, err := p.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	profile, err := p.FetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	identity, err := f.reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}

	f.log.Debug("federated login",
		zap.String("provider", string(provider)),
		zap.Int64("identity_id", identity.ID),
	)

	return f.sessions.Login(ctx, identity)
}

// reconcile maps a federated profile to its local identity. A known
// (external id, provider) pair gets its mutable display fields updated
// in place; an unknown one becomes a new identity, with a single
// time-derived suffix when the display name is already taken.
func (f *FederatedFlow) reconcile(ctx context.Context, profile *FederatedProfile) (*LocalIdentity, error) {
	existing, err := f.identities.FindByExternal(ctx, profile.ExternalID, profile.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if existing != nil {
		existing.Name = profile.Name
		existing.Picture = profile.Picture
		if err := f.identities.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update identity: %w", err)
		}
		return existing, nil
	}

	identity := &LocalIdentity{
		Email:      profile.Email,
		Name:       profile.Name,
		Picture:    profile.Picture,
		Provider:   profile.Provider,
		ExternalID: profile.ExternalID,
	}

	collision, err := f.identities.FindByName(ctx, identity.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check display name: %w", err)
	}
	if collision != nil {
		// Checked once; the suffixed name is not re-verified.
		identity.Name = fmt.Sprintf("%s_%d", identity.Name, f.now().UnixMilli())
	}

	if err := f.identities.Save(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	return identity, nil
}

func (f *FederatedFlow) resolveRedirectURI(origin string, name ProviderType) string {
	if origin == "" {
		origin = f.redirectOrigin
	}
	return fmt.Sprintf("%s/oauth/callback/%s", origin, name)
}

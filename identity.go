package sessionkit

import "context"

// ProviderType identifies an external OAuth2 identity provider.
type ProviderType string

const (
	ProviderKakao  ProviderType = "kakao"
	ProviderGoogle ProviderType = "google"
)

// LocalIdentity is the canonical local user record. The repository that
// owns it lives outside this core; the core enforces that one
// (ExternalID, Provider) pair maps to at most one LocalIdentity.
type LocalIdentity struct {
	ID         int64        `json:"id"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	Picture    string       `json:"picture"`
	Admin      bool         `json:"admin"`
	Provider   ProviderType `json:"provider"`
	ExternalID string       `json:"external_id"`
}

// FederatedProfile is the normalized, ephemeral shape of a profile
// fetched from an external provider. It is produced per login and never
// persisted directly.
type FederatedProfile struct {
	ExternalID string
	Provider   ProviderType
	Email      string
	Name       string
	Picture    string
}

// IdentityRepository is the externally owned store of local identities.
// Find methods return (nil, nil) when no record matches. Save persists
// the identity, assigning ID on first save.
type IdentityRepository interface {
	FindByID(ctx context.Context, id int64) (*LocalIdentity, error)
	FindByExternal(ctx context.Context, externalID string, provider ProviderType) (*LocalIdentity, error)
	FindByName(ctx context.Context, name string) (*LocalIdentity, error)
	Save(ctx context.Context, identity *LocalIdentity) error
}

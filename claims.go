package sessionkit

import (
	"time"

	"github.com/google/uuid"
)

// CredentialKind discriminates access from refresh credentials. The kind
// is stamped into the signed claims so one kind can never pass
// verification as the other.
type CredentialKind string

const (
	KindAccess  CredentialKind = "access"
	KindRefresh CredentialKind = "refresh"
)

// AccessClaims are the verified claims of an access credential.
type AccessClaims struct {
	ID         uuid.UUID      `json:"jti"`
	IdentityID int64          `json:"sub"`
	Name       string         `json:"nam"`
	Email      string         `json:"eml"`
	Admin      bool           `json:"adm"`
	IssuedAt   time.Time      `json:"iat"`
	ExpiresAt  time.Time      `json:"exp"`
	Kind       CredentialKind `json:"typ"`
}

// RefreshClaims are the verified claims of a refresh credential. Refresh
// credentials carry the identity id only.
type RefreshClaims struct {
	ID         uuid.UUID      `json:"jti"`
	IdentityID int64          `json:"sub"`
	IssuedAt   time.Time      `json:"iat"`
	ExpiresAt  time.Time      `json:"exp"`
	Kind       CredentialKind `json:"typ"`
}

// AccessCredential is the response after issuing an access credential.
type AccessCredential struct {
	Token      string    `json:"token"`
	IdentityID int64     `json:"identity_id"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RefreshCredential is the response after issuing a refresh credential.
type RefreshCredential struct {
	Token      string    `json:"token"`
	IdentityID int64     `json:"identity_id"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// TokenPair bundles the two credentials returned by a login.
type TokenPair struct {
	Access  *AccessCredential  `json:"access"`
	Refresh *RefreshCredential `json:"refresh"`
}

package sessionkit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RevocationStore is the denylist of credentials that are
// cryptographically still valid but must be treated as invalid. Entries
// live no longer than the credential they revoke; an entry whose expiry
// has passed reads as absent whether or not it was physically purged.
//
// Implementations are shared, multi-writer structures: a Revoke from one
// request must be visible to IsRevoked from any later request.
type RevocationStore interface {
	// Revoke inserts the credential with expiry = now + ttl. A ttl <= 0
	// is a no-op: a naturally expired credential needs no revocation.
	Revoke(ctx context.Context, token string, ttl time.Duration) error

	// IsRevoked reports whether a live revocation entry exists.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RefreshStore keeps at most one valid refresh credential per identity.
// A later Put overwrites an earlier one.
type RefreshStore interface {
	// Put stores the credential for the identity with expiry = now + ttl,
	// replacing any existing slot.
	Put(ctx context.Context, identityID int64, token string, ttl time.Duration) error

	// Get returns the stored credential if its expiry is still in the
	// future; ok is false otherwise. Stale slots are never returned.
	Get(ctx context.Context, identityID int64) (token string, ok bool, err error)

	// Delete removes the slot. Deleting an absent slot is not an error.
	Delete(ctx context.Context, identityID int64) error
}

// hashToken returns the SHA-256 hex digest of a credential string.
// Revocation backends store digests so the denylist never holds raw
// signed credentials.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

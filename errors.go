package sessionkit

import "errors"

// Error taxonomy of the core. Every failure maps to one of these
// sentinels (or a construction-time config error) so the HTTP layer can
// translate uniformly with errors.Is. Nothing is swallowed and nothing
// is retried internally.
var (
	// ErrInvalidCredential covers malformed tokens, bad signatures and
	// natural expiry. The client must re-authenticate.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrUnauthorized covers well-formed credentials that may not be
	// used: revoked, or a refresh credential that is not the one
	// currently on record. Possible replay; callers should not leak
	// which condition triggered it.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExternalProvider covers failed exchanges with a federated
	// identity provider. The authorization code is single-use, so the
	// failure surfaces immediately and is never retried.
	ErrExternalProvider = errors.New("external provider error")
)

// Package sessionkit is a session and identity core for web APIs: it issues
// and verifies signed access/refresh credentials, revokes live credentials
// before their natural expiry, keeps a single valid refresh credential per
// identity, and reconciles federated OAuth2 profiles into local identities.
//
// Features:
// - Creation and verification of HMAC-signed access and refresh credentials
// - Distinct signing keys per credential kind, enforced at construction
// - TTL-backed revocation denylist (in-memory, Redis, GORM backends)
// - Single-slot refresh credential store with exact-match reissue
// - OAuth2 provider registry with Kakao and Google implementations
// - Request-scoped identity carriage with lazy, memoized resolution
//
// The package is transport-agnostic; the bundled net/http and gin filters
// are thin adapters over the same verification path.
package sessionkit

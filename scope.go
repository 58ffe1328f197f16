package sessionkit

import (
	"context"
	"sync"
)

type scopeContextKey struct{}

// Scope is the per-request identity slot. It holds one of three states:
// empty, id-only (set by the inbound filter from a verified credential),
// or resolved (after a reader asked for the full identity). The upgrade
// from id-only to resolved happens lazily and at most once per request.
//
// A Scope travels inside the request's context.Context and belongs to
// exactly that request. Clear is mandatory at request end, on every exit
// path, so a reused execution context can never leak an identity into
// the next request.
type Scope struct {
	mu       sync.Mutex
	id       int64
	hasID    bool
	identity *LocalIdentity
	resolved bool
}

// NewScope returns an empty request scope.
func NewScope() *Scope {
	return &Scope{}
}

// ContextWithScope attaches the scope to the context.
func ContextWithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext returns the request scope, if any.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return scope, ok
}

// SetIdentityID moves the scope to the id-only state.
func (s *Scope) SetIdentityID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = id
	s.hasID = true
	s.identity = nil
	s.resolved = false
}

// IdentityID returns the verified identity id, if the scope holds one.
func (s *Scope) IdentityID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.id, s.hasID
}

// Identity returns the full local identity, resolving it through the
// repository on first use and caching the result for the remainder of
// the request. An empty scope yields (nil, nil).
func (s *Scope) Identity(ctx context.Context, identities IdentityRepository) (*LocalIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasID {
		return nil, nil
	}
	if s.resolved {
		return s.identity, nil
	}

	identity, err := identities.FindByID(ctx, s.id)
	if err != nil {
		return nil, err
	}

	s.identity = identity
	s.resolved = true
	return identity, nil
}

// Clear resets the scope to empty. Filters must call it on every exit
// path, including panics and early returns.
func (s *Scope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = 0
	s.hasID = false
	s.identity = nil
	s.resolved = false
}

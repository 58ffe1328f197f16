package sessionkit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Session orchestrates login, access reissue and logout over the codec,
// the revocation store, the refresh store and the identity repository.
// It is the top-level contract the HTTP layer calls.
type Session struct {
	codec       *Codec
	revocations RevocationStore
	refresh     RefreshStore
	identities  IdentityRepository
	log         *zap.Logger
	now         func() time.Time
}

// NewSession wires a session service. All collaborators are required.
func NewSession(config Config, codec *Codec, revocations RevocationStore, refresh RefreshStore, identities IdentityRepository) (*Session, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec cannot be nil")
	}
	if revocations == nil {
		return nil, fmt.Errorf("revocation store cannot be nil")
	}
	if refresh == nil {
		return nil, fmt.Errorf("refresh store cannot be nil")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity repository cannot be nil")
	}

	return &Session{
		codec:       codec,
		revocations: revocations,
		refresh:     refresh,
		identities:  identities,
		log:         config.logger(),
		now:         config.clock(),
	}, nil
}

// Login issues a fresh access/refresh pair for the identity and records
// the refresh credential as the identity's single valid slot. No prior
// state is required.
func (s *Session) Login(ctx context.Context, identity *LocalIdentity) (*TokenPair, error) {
	access, err := s.codec.IssueAccess(identity)
	if err != nil {
		return nil, err
	}

	refresh, err := s.codec.IssueRefresh(identity.ID)
	if err != nil {
		return nil, err
	}

	ttl := refresh.ExpiresAt.Sub(s.now())
	if err := s.refresh.Put(ctx, identity.ID, refresh.Token, ttl); err != nil {
		return nil, fmt.Errorf("failed to store refresh credential: %w", err)
	}

	s.log.Debug("session login",
		zap.Int64("identity_id", identity.ID),
		zap.Time("access_expires_at", access.ExpiresAt),
		zap.Time("refresh_expires_at", refresh.ExpiresAt),
	)

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// ReissueAccess exchanges a presented refresh credential for a new
// access credential. The presented string must verify, must not be
// revoked, and must exactly equal the slot last written for the
// identity; any other validly-signed refresh credential for the same
// identity is rejected. The refresh credential itself is not rotated.
func (s *Session) ReissueAccess(ctx context.Context, presented string) (*AccessCredential, error) {
	claims, err := s.codec.ParseRefresh(presented)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, presented)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: refresh credential revoked", ErrUnauthorized)
	}

	stored, ok, err := s.refresh.Get(ctx, claims.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh slot: %w", err)
	}
	if !ok || stored != presented {
		return nil, fmt.Errorf("%w: refresh credential not on record", ErrUnauthorized)
	}

	identity, err := s.identities.FindByID(ctx, claims.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if identity == nil {
		return nil, fmt.Errorf("%w: unknown identity", ErrUnauthorized)
	}

	access, err := s.codec.IssueAccess(identity)
	if err != nil {
		return nil, err
	}

	s.log.Debug("access credential reissued", zap.Int64("identity_id", identity.ID))

	return access, nil
}

// Logout ends the identity's session: the refresh slot is deleted and
// both credentials, if still alive, are revoked for exactly their
// remaining lifetimes. Logout is idempotent and succeeds even when the
// access credential has already expired, as long as its signature
// verifies.
func (s *Session) Logout(ctx context.Context, presentedAccess string) error {
	claims, err := s.codec.parseAccessExpired(presentedAccess)
	if err != nil {
		return err
	}

	storedRefresh, hadRefresh, err := s.refresh.Get(ctx, claims.IdentityID)
	if err != nil {
		return fmt.Errorf("failed to load refresh slot: %w", err)
	}
	if err := s.refresh.Delete(ctx, claims.IdentityID); err != nil {
		return fmt.Errorf("failed to delete refresh slot: %w", err)
	}

	// Revoke covers the rest of each credential's natural lifetime and
	// no longer; the store no-ops on non-positive remainders.
	if err := s.revocations.Revoke(ctx, presentedAccess, claims.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("failed to revoke access credential: %w", err)
	}

	if hadRefresh {
		refreshClaims, err := s.codec.parseRefreshExpired(storedRefresh)
		if err != nil {
			// A slot entry this service did not sign; nothing to revoke.
			s.log.Warn("stored refresh credential failed verification", zap.Error(err))
		} else {
			if err := s.revocations.Revoke(ctx, storedRefresh, refreshClaims.ExpiresAt.Sub(s.now())); err != nil {
				return fmt.Errorf("failed to revoke refresh credential: %w", err)
			}
		}
	}

	s.log.Debug("session logout", zap.Int64("identity_id", claims.IdentityID))

	return nil
}

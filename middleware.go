package sessionkit

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// BearerFilter is the inbound request filter. It extracts the
// Authorization bearer credential, verifies signature and expiry through
// the codec, consults the revocation store, and populates the request
// scope with the identity id. An absent or invalid credential leaves the
// scope empty; authorization decisions belong to a separate guard layer.
type BearerFilter struct {
	codec       *Codec
	revocations RevocationStore
	log         *zap.Logger
}

// NewBearerFilter wires an inbound credential filter.
func NewBearerFilter(config Config, codec *Codec, revocations RevocationStore) (*BearerFilter, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec cannot be nil")
	}
	if revocations == nil {
		return nil, fmt.Errorf("revocation store cannot be nil")
	}

	return &BearerFilter{
		codec:       codec,
		revocations: revocations,
		log:         config.logger(),
	}, nil
}

// Handler wraps next with scope setup, credential verification and
// guaranteed scope teardown.
func (f *BearerFilter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := NewScope()
		defer scope.Clear()

		if id, ok := f.verify(r); ok {
			scope.SetIdentityID(id)
		}

		next.ServeHTTP(w, r.WithContext(ContextWithScope(r.Context(), scope)))
	})
}

// verify checks the bearer credential on the request and returns the
// identity id it vouches for.
func (f *BearerFilter) verify(r *http.Request) (int64, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || token == "" {
		return 0, false
	}

	claims, err := f.codec.ParseAccess(token)
	if err != nil {
		f.log.Debug("bearer credential rejected", zap.Error(err))
		return 0, false
	}

	revoked, err := f.revocations.IsRevoked(r.Context(), token)
	if err != nil {
		f.log.Warn("revocation check failed", zap.Error(err))
		return 0, false
	}
	if revoked {
		f.log.Debug("bearer credential revoked", zap.Int64("identity_id", claims.IdentityID))
		return 0, false
	}

	return claims.IdentityID, true
}

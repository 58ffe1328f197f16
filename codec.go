package sessionkit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Codec encodes and decodes signed credentials. A credential is
// self-contained: its signature and expiry are verifiable without
// consulting any store. Access and refresh credentials are signed with
// distinct keys.
type Codec struct {
	signingMethod jwt.SigningMethod
	accessKey     []byte
	refreshKey    []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewCodec creates a credential codec from the given configuration.
// Configuration violations (short keys, identical keys, unsupported
// algorithm) fail here, at startup.
func NewCodec(config Config) (*Codec, error) {
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	codec := &Codec{
		accessKey:  []byte(config.AccessKey),
		refreshKey: []byte(config.RefreshKey),
		accessTTL:  config.AccessTTL,
		refreshTTL: config.RefreshTTL,
		issuer:     config.Issuer,
		now:        config.clock(),
	}

	switch config.Algorithm {
	case "HS256":
		codec.signingMethod = jwt.SigningMethodHS256
	case "HS384":
		codec.signingMethod = jwt.SigningMethodHS384
	case "HS512":
		codec.signingMethod = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", config.Algorithm)
	}

	return codec, nil
}

// IssueAccess creates a new access credential carrying the identity's
// display claims and admin flag.
func (c *Codec) IssueAccess(identity *LocalIdentity) (*AccessCredential, error) {
	if identity == nil {
		return nil, fmt.Errorf("identity cannot be nil")
	}

	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate credential ID: %w", err)
	}

	now := c.now()
	claims := AccessClaims{
		ID:         tokenID,
		IdentityID: identity.ID,
		Name:       identity.Name,
		Email:      identity.Email,
		Admin:      identity.Admin,
		IssuedAt:   now,
		ExpiresAt:  now.Add(c.accessTTL),
		Kind:       KindAccess,
	}

	token := jwt.NewWithClaims(c.signingMethod, c.toMapClaims(claims))

	signed, err := token.SignedString(c.accessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access credential: %w", err)
	}

	return &AccessCredential{
		Token:      signed,
		IdentityID: claims.IdentityID,
		IssuedAt:   claims.IssuedAt,
		ExpiresAt:  claims.ExpiresAt,
	}, nil
}

// IssueRefresh creates a new refresh credential for the identity. Refresh
// claims carry the identity id only.
func (c *Codec) IssueRefresh(identityID int64) (*RefreshCredential, error) {
	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate credential ID: %w", err)
	}

	now := c.now()
	claims := RefreshClaims{
		ID:         tokenID,
		IdentityID: identityID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(c.refreshTTL),
		Kind:       KindRefresh,
	}

	token := jwt.NewWithClaims(c.signingMethod, c.toMapClaims(claims))

	signed, err := token.SignedString(c.refreshKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh credential: %w", err)
	}

	return &RefreshCredential{
		Token:      signed,
		IdentityID: claims.IdentityID,
		IssuedAt:   claims.IssuedAt,
		ExpiresAt:  claims.ExpiresAt,
	}, nil
}

// ParseAccess verifies an access credential's signature and expiry and
// returns its claims. Failures come back as ErrInvalidCredential; this
// layer knows nothing about HTTP.
func (c *Codec) ParseAccess(tokenString string) (*AccessClaims, error) {
	claims, err := c.parse(tokenString, c.accessKey, false)
	if err != nil {
		return nil, err
	}
	return c.mapToAccessClaims(claims)
}

// ParseRefresh verifies a refresh credential's signature and expiry and
// returns its claims.
func (c *Codec) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims, err := c.parse(tokenString, c.refreshKey, false)
	if err != nil {
		return nil, err
	}
	return c.mapToRefreshClaims(claims)
}

// parseAccessExpired verifies the signature of an access credential but
// tolerates natural expiry. Logout needs the claims of an already-expired
// credential to compute its (non-positive) remaining lifetime.
func (c *Codec) parseAccessExpired(tokenString string) (*AccessClaims, error) {
	claims, err := c.parse(tokenString, c.accessKey, true)
	if err != nil {
		return nil, err
	}
	return c.mapToAccessClaims(claims)
}

// parseRefreshExpired is the refresh counterpart of parseAccessExpired.
func (c *Codec) parseRefreshExpired(tokenString string) (*RefreshClaims, error) {
	claims, err := c.parse(tokenString, c.refreshKey, true)
	if err != nil {
		return nil, err
	}
	return c.mapToRefreshClaims(claims)
}

func (c *Codec) parse(tokenString string, key []byte, allowExpired bool) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(c.now),
		jwt.WithValidMethods([]string{c.signingMethod.Alg()}),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.NewParser(opts...).Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != c.signingMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: malformed claims", ErrInvalidCredential)
	}

	return claims, nil
}

// toMapClaims converts claims to jwt.MapClaims.
func (c *Codec) toMapClaims(claims interface{}) jwt.MapClaims {
	switch v := claims.(type) {
	case AccessClaims:
		return jwt.MapClaims{
			"jti": v.ID.String(),
			"sub": v.IdentityID,
			"nam": v.Name,
			"eml": v.Email,
			"adm": v.Admin,
			"iat": v.IssuedAt.Unix(),
			"exp": v.ExpiresAt.Unix(),
			"typ": string(v.Kind),
			"iss": c.issuer,
		}
	case RefreshClaims:
		return jwt.MapClaims{
			"jti": v.ID.String(),
			"sub": v.IdentityID,
			"iat": v.IssuedAt.Unix(),
			"exp": v.ExpiresAt.Unix(),
			"typ": string(v.Kind),
			"iss": c.issuer,
		}
	default:
		return nil
	}
}

// mapToAccessClaims converts verified JWT claims to AccessClaims.
func (c *Codec) mapToAccessClaims(claims jwt.MapClaims) (*AccessClaims, error) {
	if err := validateKind(claims, KindAccess); err != nil {
		return nil, err
	}

	base, err := decodeBaseClaims(claims)
	if err != nil {
		return nil, err
	}

	name, ok := claims["nam"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: invalid name claim", ErrInvalidCredential)
	}
	email, ok := claims["eml"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: invalid email claim", ErrInvalidCredential)
	}
	admin, ok := claims["adm"].(bool)
	if !ok {
		return nil, fmt.Errorf("%w: invalid admin claim", ErrInvalidCredential)
	}

	return &AccessClaims{
		ID:         base.id,
		IdentityID: base.identityID,
		Name:       name,
		Email:      email,
		Admin:      admin,
		IssuedAt:   base.issuedAt,
		ExpiresAt:  base.expiresAt,
		Kind:       KindAccess,
	}, nil
}

// mapToRefreshClaims converts verified JWT claims to RefreshClaims.
func (c *Codec) mapToRefreshClaims(claims jwt.MapClaims) (*RefreshClaims, error) {
	if err := validateKind(claims, KindRefresh); err != nil {
		return nil, err
	}

	base, err := decodeBaseClaims(claims)
	if err != nil {
		return nil, err
	}

	return &RefreshClaims{
		ID:         base.id,
		IdentityID: base.identityID,
		IssuedAt:   base.issuedAt,
		ExpiresAt:  base.expiresAt,
		Kind:       KindRefresh,
	}, nil
}

type baseClaims struct {
	id         uuid.UUID
	identityID int64
	issuedAt   time.Time
	expiresAt  time.Time
}

func decodeBaseClaims(claims jwt.MapClaims) (*baseClaims, error) {
	jti, ok := claims["jti"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing credential ID", ErrInvalidCredential)
	}
	tokenID, err := uuid.Parse(jti)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credential ID", ErrInvalidCredential)
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid identity ID claim", ErrInvalidCredential)
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid iat claim", ErrInvalidCredential)
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid exp claim", ErrInvalidCredential)
	}

	return &baseClaims{
		id:         tokenID,
		identityID: int64(sub),
		issuedAt:   time.Unix(int64(iat), 0),
		expiresAt:  time.Unix(int64(exp), 0),
	}, nil
}

func validateKind(claims jwt.MapClaims, expected CredentialKind) error {
	kind, ok := claims["typ"].(string)
	if !ok || CredentialKind(kind) != expected {
		return fmt.Errorf("%w: invalid credential kind: expected %s", ErrInvalidCredential, expected)
	}
	return nil
}

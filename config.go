package sessionkit

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config holds the configuration for credential issuance and verification.
//
// Fields:
//   - Algorithm: HMAC signing algorithm ("HS256", "HS384", "HS512")
//   - AccessKey: Secret key for signing access credentials (min 32 bytes)
//   - RefreshKey: Secret key for signing refresh credentials (min 32 bytes)
//   - AccessTTL: Access credential validity from issuance
//   - RefreshTTL: Refresh credential validity from issuance
//   - Issuer: Issuer claim stamped into every credential
//   - RedirectOrigin: Fallback origin for OAuth redirect URIs when the
//     caller supplies none (e.g. "https://app.example.com")
//   - Clock: Time source, defaults to time.Now
//   - Logger: Structured logger, defaults to zap.NewNop()
//
// AccessKey and RefreshKey must differ: compromise of one kind of
// credential must not compromise the other.
type Config struct {
	Algorithm  string
	AccessKey  string
	RefreshKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string

	RedirectOrigin string

	Clock  func() time.Time
	Logger *zap.Logger
}

// DefaultConfig returns a Config with HS256 signing and conventional
// lifetimes: short-lived access credentials, day-scale refresh credentials.
func DefaultConfig(accessKey, refreshKey string) Config {
	return Config{
		Algorithm:  "HS256",
		AccessKey:  accessKey,
		RefreshKey: refreshKey,
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 14 * 24 * time.Hour,
		Issuer:     "sessionkit",
	}
}

// validateConfig validates the configuration. Violations are programmer or
// deployment errors and are fatal at construction, never per-request.
func validateConfig(config *Config) error {
	switch config.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported signing algorithm: %s", config.Algorithm)
	}
	if len(config.AccessKey) < 32 {
		return fmt.Errorf("access key must be at least 32 bytes")
	}
	if len(config.RefreshKey) < 32 {
		return fmt.Errorf("refresh key must be at least 32 bytes")
	}
	if config.AccessKey == config.RefreshKey {
		return fmt.Errorf("access and refresh keys must differ")
	}
	if config.AccessTTL <= 0 {
		return fmt.Errorf("access ttl must be positive")
	}
	if config.RefreshTTL <= 0 {
		return fmt.Errorf("refresh ttl must be positive")
	}
	return nil
}

func (c *Config) clock() func() time.Time {
	if c.Clock != nil {
		return c.Clock
	}
	return time.Now
}

func (c *Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

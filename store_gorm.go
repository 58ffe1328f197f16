package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevokedCredential is the persisted shape of a revocation entry.
type RevokedCredential struct {
	TokenHash string    `gorm:"primaryKey;type:varchar(64)"`
	ExpiresAt time.Time `gorm:"index:idx_revoked_expires_at;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for RevokedCredential.
func (RevokedCredential) TableName() string {
	return "revoked_credentials"
}

// RefreshSlotRecord is the persisted shape of a refresh slot: one row
// per identity.
type RefreshSlotRecord struct {
	IdentityID int64     `gorm:"primaryKey"`
	Token      string    `gorm:"type:text;not null"`
	ExpiresAt  time.Time `gorm:"index:idx_refresh_expires_at;not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name for RefreshSlotRecord.
func (RefreshSlotRecord) TableName() string {
	return "refresh_slots"
}

// GormStore is a relational implementation of RevocationStore and
// RefreshStore. Expiry is a column; every read is expiry-aware, and
// CleanupExpired exists for a caller-scheduled reaper.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a GORM-backed store, verifies the connection and
// migrates the two tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := db.AutoMigrate(&RevokedCredential{}, &RefreshSlotRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &GormStore{db: db, now: time.Now}, nil
}

// Revoke upserts the credential's hash with its absolute expiry. A
// non-positive ttl is a no-op.
func (g *GormStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}

	now := g.now()
	record := RevokedCredential{
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether a live revocation row exists for the
// credential. Expired rows read as absent regardless of cleanup.
func (g *GormStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	var record RevokedCredential
	err := g.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hashToken(token), g.now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query revocation: %w", err)
	}
	return true, nil
}

// Put upserts the identity's refresh slot.
func (g *GormStore) Put(ctx context.Context, identityID int64, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	now := g.now()
	record := RefreshSlotRecord{
		IdentityID: identityID,
		Token:      token,
		ExpiresAt:  now.Add(ttl),
		UpdatedAt:  now,
	}

	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to store refresh slot: %w", err)
	}
	return nil
}

// Get returns the identity's refresh credential if its row is still live.
func (g *GormStore) Get(ctx context.Context, identityID int64) (string, bool, error) {
	var record RefreshSlotRecord
	err := g.db.WithContext(ctx).
		Where("identity_id = ? AND expires_at > ?", identityID, g.now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query refresh slot: %w", err)
	}
	return record.Token, true, nil
}

// Delete removes the identity's refresh slot.
func (g *GormStore) Delete(ctx context.Context, identityID int64) error {
	err := g.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Delete(&RefreshSlotRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete refresh slot: %w", err)
	}
	return nil
}

// CleanupExpired removes expired rows from both tables. Intended to be
// run periodically by the host application.
func (g *GormStore) CleanupExpired(ctx context.Context) error {
	now := g.now()

	if err := g.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&RevokedCredential{}).Error; err != nil {
		return fmt.Errorf("failed to clean up revocations: %w", err)
	}

	if err := g.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&RefreshSlotRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clean up refresh slots: %w", err)
	}
	return nil
}

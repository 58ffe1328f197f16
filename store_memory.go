package sessionkit

import (
	"context"
	"sync"
	"time"
)

// revocationEntry is a stored revocation with its absolute expiry.
type revocationEntry struct {
	expiresAt time.Time
}

// refreshSlot is the single stored refresh credential for an identity.
type refreshSlot struct {
	token     string
	expiresAt time.Time
}

// MemoryStore is an in-process implementation of RevocationStore and
// RefreshStore. Suitable for development, testing, or single-instance
// deployments. Expiry is checked on every read; a background reaper
// keeps dead entries from accumulating unbounded.
type MemoryStore struct {
	mu              sync.RWMutex
	revoked         map[string]revocationEntry
	refresh         map[int64]refreshSlot
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
	now             func() time.Time
}

// NewMemoryStore creates a new in-memory store. cleanupInterval
// determines how often expired entries are removed (default: 5 minutes).
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	store := &MemoryStore{
		revoked:         make(map[string]revocationEntry),
		refresh:         make(map[int64]refreshSlot),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	go store.periodicCleanup()

	return store
}

// Revoke records the credential's hash until its remaining lifetime
// elapses. A non-positive ttl is a no-op.
func (m *MemoryStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}

	entry := revocationEntry{expiresAt: m.now().Add(ttl)}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.revoked[hashToken(token)] = entry
	return nil
}

// IsRevoked reports whether the credential has a live revocation entry.
// Entries past their expiry read as absent.
func (m *MemoryStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.revoked[hashToken(token)]
	if !exists {
		return false, nil
	}
	if !m.now().Before(entry.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Put overwrites the identity's refresh slot.
func (m *MemoryStore) Put(ctx context.Context, identityID int64, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refresh[identityID] = refreshSlot{
		token:     token,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Get returns the identity's refresh credential if the slot is live.
func (m *MemoryStore) Get(ctx context.Context, identityID int64) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slot, exists := m.refresh[identityID]
	if !exists || !m.now().Before(slot.expiresAt) {
		return "", false, nil
	}
	return slot.token, true, nil
}

// Delete removes the identity's refresh slot unconditionally.
func (m *MemoryStore) Delete(ctx context.Context, identityID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.refresh, identityID)
	return nil
}

// CleanupExpired removes expired revocations and refresh slots.
func (m *MemoryStore) CleanupExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for hash, entry := range m.revoked {
		if !now.Before(entry.expiresAt) {
			delete(m.revoked, hash)
		}
	}
	for id, slot := range m.refresh {
		if !now.Before(slot.expiresAt) {
			delete(m.refresh, id)
		}
	}
	return nil
}

// periodicCleanup runs background cleanup of expired entries.
func (m *MemoryStore) periodicCleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCleanup:
			return
		case <-ticker.C:
			_ = m.CleanupExpired(context.Background())
		}
	}
}

// Close stops the background cleanup goroutine. Call this when shutting
// down the application.
func (m *MemoryStore) Close() error {
	m.cleanupOnce.Do(func() {
		close(m.stopCleanup)
	})
	return nil
}

// Stats returns entry counts, useful for monitoring and debugging.
func (m *MemoryStore) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int{
		"revoked_credentials": len(m.revoked),
		"refresh_slots":       len(m.refresh),
	}
}

package sessionkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, clock *fakeClock) (*Session, *Codec, *MemoryStore, *memoryIdentityRepo) {
	t.Helper()

	codec := newTestCodec(t, clock)
	store := newTestMemoryStore(t, clock)
	repo := newMemoryIdentityRepo()

	session, err := NewSession(testConfig(clock), codec, store, store, repo)
	require.NoError(t, err)
	return session, codec, store, repo
}

func TestSessionLogin(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	session, codec, store, repo := newTestSession(t, clock)

	identity := testIdentity(1)
	require.NoError(t, repo.Save(ctx, identity))

	pair, err := session.Login(ctx, identity)
	require.NoError(t, err)
	require.NotNil(t, pair.Access)
	require.NotNil(t, pair.Refresh)

	claims, err := codec.ParseAccess(pair.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, claims.IdentityID)

	stored, ok, err := store.Get(ctx, identity.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pair.Refresh.Token, stored)
}

func TestSessionLifecycle(t *testing.T) {
	// login at T0, reissue shortly after, logout, then verify the
	// denylist holds both credentials for exactly their remaining
	// lifetimes.
	ctx := context.Background()
	clock := newFakeClock()
	session, _, store, repo := newTestSession(t, clock)

	identity := testIdentity(1)
	require.NoError(t, repo.Save(ctx, identity))

	pair, err := session.Login(ctx, identity)
	require.NoError(t, err)

	clock.Advance(10 * time.Millisecond)

	reissued, err := session.ReissueAccess(ctx, pair.Refresh.Token)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access.Token, reissued.Token)

	clock.Advance(10 * time.Millisecond)

	require.NoError(t, session.Logout(ctx, reissued.Token))

	revoked, err := store.IsRevoked(ctx, reissued.Token)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, pair.Refresh.Token)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = session.ReissueAccess(ctx, pair.Refresh.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Revocation outlives nothing: once the access credential's own
	// expiry passes, the entry reads as absent.
	clock.Advance(2 * time.Hour)

	revoked, err = store.IsRevoked(ctx, reissued.Token)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestReissueAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("Malformed Refresh Credential", func(t *testing.T) {
		session, _, _, _ := newTestSession(t, newFakeClock())

		_, err := session.ReissueAccess(ctx, "not-a-token")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("Expired Refresh Credential", func(t *testing.T) {
		clock := newFakeClock()
		session, _, _, repo := newTestSession(t, clock)
		identity := testIdentity(1)
		require.NoError(t, repo.Save(ctx, identity))

		pair, err := session.Login(ctx, identity)
		require.NoError(t, err)

		clock.Advance(21 * time.Minute)

		_, err = session.ReissueAccess(ctx, pair.Refresh.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("Stale Refresh From Previous Login", func(t *testing.T) {
		clock := newFakeClock()
		session, _, _, repo := newTestSession(t, clock)
		identity := testIdentity(1)
		require.NoError(t, repo.Save(ctx, identity))

		first, err := session.Login(ctx, identity)
		require.NoError(t, err)

		clock.Advance(time.Second)

		second, err := session.Login(ctx, identity)
		require.NoError(t, err)
		require.NotEqual(t, first.Refresh.Token, second.Refresh.Token)

		// The first refresh credential is still validly signed but no
		// longer the one on record.
		_, err = session.ReissueAccess(ctx, first.Refresh.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = session.ReissueAccess(ctx, second.Refresh.Token)
		require.NoError(t, err)
	})

	t.Run("Revoked Refresh Credential", func(t *testing.T) {
		clock := newFakeClock()
		session, _, store, repo := newTestSession(t, clock)
		identity := testIdentity(1)
		require.NoError(t, repo.Save(ctx, identity))

		pair, err := session.Login(ctx, identity)
		require.NoError(t, err)

		require.NoError(t, store.Revoke(ctx, pair.Refresh.Token, time.Hour))

		_, err = session.ReissueAccess(ctx, pair.Refresh.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Unknown Identity", func(t *testing.T) {
		clock := newFakeClock()
		session, codec, store, _ := newTestSession(t, clock)

		// Slot exists but the identity record is gone.
		refresh, err := codec.IssueRefresh(404)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, 404, refresh.Token, time.Hour))

		_, err = session.ReissueAccess(ctx, refresh.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Refresh Credential Is Not Rotated", func(t *testing.T) {
		clock := newFakeClock()
		session, _, store, repo := newTestSession(t, clock)
		identity := testIdentity(1)
		require.NoError(t, repo.Save(ctx, identity))

		pair, err := session.Login(ctx, identity)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			clock.Advance(time.Second)
			_, err = session.ReissueAccess(ctx, pair.Refresh.Token)
			require.NoError(t, err)
		}

		stored, ok, err := store.Get(ctx, identity.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, pair.Refresh.Token, stored)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("Deletes Refresh Slot", func(t *testing.T) {
		clock := newFakeClock()
		session, _, store, repo := newTestSession(t, clock)
		identity := testIdentity(1)
		require.NoError(t, repo.Save(ctx, identity))

		pair, err := session.Login(ctx, identity)
		require.NoError(t, err)

		require.NoError(t, session.Logout(ctx, pair.Access.Token))

		_, ok, err := store.Get(ctx, identity.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Idempotent", func(t *testing.T) {
		clock := newFakeClock()
		session, _, _, repo := newTestSession(t, clock)
		identity := testIdentity(1)
		require.NoError(t, repo.Save(ctx, identity))

		pair, err := session.Login(ctx, identity)
		require.NoError(t, err)

		require.NoError(t, session.Logout(ctx, pair.Access.Token))
		require.NoError(t, session.Logout(ctx, pair.Access.Token))
	})

	t.Run("Expired Access Credential", func(t *testing.T) {
		clock := newFakeClock()
		session, _, store, repo := newTestSession(t, clock)
		identity := testIdentity(1)
		require.NoError(t, repo.Save(ctx, identity))

		pair, err := session.Login(ctx, identity)
		require.NoError(t, err)

		clock.Advance(2 * time.Hour)

		// Signature still verifies, expiry has passed: logout succeeds
		// and the revocation is a no-op.
		require.NoError(t, session.Logout(ctx, pair.Access.Token))

		revoked, err := store.IsRevoked(ctx, pair.Access.Token)
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("Bad Signature Rejected", func(t *testing.T) {
		session, _, _, _ := newTestSession(t, newFakeClock())

		err := session.Logout(ctx, "forged-token")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("Reissue After Logout Fails", func(t *testing.T) {
		clock := newFakeClock()
		session, _, _, repo := newTestSession(t, clock)
		identity := testIdentity(1)
		require.NoError(t, repo.Save(ctx, identity))

		pair, err := session.Login(ctx, identity)
		require.NoError(t, err)

		require.NoError(t, session.Logout(ctx, pair.Access.Token))

		_, err = session.ReissueAccess(ctx, pair.Refresh.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestNewSessionNilCollaborators(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)
	store := newTestMemoryStore(t, clock)
	repo := newMemoryIdentityRepo()
	config := testConfig(clock)

	_, err := NewSession(config, nil, store, store, repo)
	require.Error(t, err)
	_, err = NewSession(config, codec, nil, store, repo)
	require.Error(t, err)
	_, err = NewSession(config, codec, store, nil, repo)
	require.Error(t, err)
	_, err = NewSession(config, codec, store, store, nil)
	require.Error(t, err)
}

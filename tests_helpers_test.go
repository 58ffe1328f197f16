package sessionkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey  = "test-access-signing-key-0123456789abcdef"
	testRefreshKey = "test-refresh-signing-key-0123456789abcdef"
)

// fakeClock is a manually advanced time source shared by the codec and
// the stores under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testConfig(clock *fakeClock) Config {
	config := DefaultConfig(testAccessKey, testRefreshKey)
	config.AccessTTL = time.Hour
	config.RefreshTTL = 20 * time.Minute
	config.RedirectOrigin = "https://app.example.com"
	if clock != nil {
		config.Clock = clock.Now
	}
	return config
}

func newTestCodec(t *testing.T, clock *fakeClock) *Codec {
	t.Helper()

	codec, err := NewCodec(testConfig(clock))
	require.NoError(t, err)
	return codec
}

func newTestMemoryStore(t *testing.T, clock *fakeClock) *MemoryStore {
	t.Helper()

	store := NewMemoryStore(time.Minute)
	if clock != nil {
		store.now = clock.Now
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// memoryIdentityRepo is an in-memory identity repository fake standing
// in for the externally owned collaborator.
type memoryIdentityRepo struct {
	mu         sync.Mutex
	seq        int64
	identities map[int64]*LocalIdentity
	findCalls  int
}

func newMemoryIdentityRepo() *memoryIdentityRepo {
	return &memoryIdentityRepo{identities: make(map[int64]*LocalIdentity)}
}

func (r *memoryIdentityRepo) FindByID(ctx context.Context, id int64) (*LocalIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.findCalls++
	identity, ok := r.identities[id]
	if !ok {
		return nil, nil
	}
	copied := *identity
	return &copied, nil
}

func (r *memoryIdentityRepo) FindByExternal(ctx context.Context, externalID string, provider ProviderType) (*LocalIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, identity := range r.identities {
		if identity.ExternalID == externalID && identity.Provider == provider {
			copied := *identity
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryIdentityRepo) FindByName(ctx context.Context, name string) (*LocalIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, identity := range r.identities {
		if identity.Name == name {
			copied := *identity
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryIdentityRepo) Save(ctx context.Context, identity *LocalIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if identity.ID == 0 {
		r.seq++
		identity.ID = r.seq
	}
	copied := *identity
	r.identities[identity.ID] = &copied
	return nil
}

func (r *memoryIdentityRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.identities)
}

func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		t.Skip("Redis not available, skipping test")
	}
	return client
}

func testIdentity(id int64) *LocalIdentity {
	return &LocalIdentity{
		ID:         id,
		Email:      "mellowyellow@kakao.com",
		Name:       "mellow",
		Picture:    "https://img.example.com/mellow.png",
		Admin:      false,
		Provider:   ProviderKakao,
		ExternalID: "ext-1001",
	}
}

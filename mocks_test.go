package social_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/adspark/go-social"
)

const (
	sqliteCreateProfiles = `CREATE TABLE profiles (
    id TEXT NOT NULL PRIMARY KEY,
    username TEXT NOT NULL,
    display_name TEXT NOT NULL,
    email TEXT,
    user_role TEXT NOT NULL DEFAULT 'creator',
    avatar_ref TEXT,
    bio TEXT,
    location TEXT,
    focus TEXT,
    stats TEXT,
    content_items TEXT,
    pinned_content_ids TEXT,
    warnings TEXT,
    account_ban TEXT,
    last_mutation_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NULL,
    deleted_at TIMESTAMP NULL
);`
	sqliteCreateProfilesIdx = "CREATE UNIQUE INDEX idx_profiles_username ON profiles (lower(username));"

	sqliteCreateFollowEdges = `CREATE TABLE follow_edges (
    id TEXT NOT NULL PRIMARY KEY,
    follower_id TEXT NOT NULL,
    followee_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
	sqliteCreateFollowEdgesIdx = "CREATE UNIQUE INDEX idx_follow_edges_pair ON follow_edges (follower_id, followee_id);"

	sqliteCreateCacheEntries = `CREATE TABLE cache_entries (
    key TEXT NOT NULL PRIMARY KEY,
    value BLOB,
    updated_at TIMESTAMP NULL
);`
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, stmt := range []string{
		sqliteCreateProfiles,
		sqliteCreateProfilesIdx,
		sqliteCreateFollowEdges,
		sqliteCreateFollowEdgesIdx,
		sqliteCreateCacheEntries,
	} {
		_, err = bunDB.Exec(stmt)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return bunDB
}

func setupRepoManager(t *testing.T) social.RepositoryManager {
	t.Helper()
	repo := social.NewRepositoryManager(setupTestDB(t))
	require.NoError(t, repo.Validate())
	return repo
}

// MockIdentityProvider implements social.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock

	mu          sync.Mutex
	subscribers []social.SessionChangedFunc
}

func (m *MockIdentityProvider) Authenticate(ctx context.Context, email, password string) (*social.VerifiedIdentity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(*social.VerifiedIdentity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) Register(ctx context.Context, email, password string, meta social.RegistrationMetadata) (*social.VerifiedIdentity, error) {
	args := m.Called(ctx, email, password, meta)
	identity, _ := args.Get(0).(*social.VerifiedIdentity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) AuthenticateFederated(ctx context.Context, providerName string) (*social.VerifiedIdentity, error) {
	args := m.Called(ctx, providerName)
	identity, _ := args.Get(0).(*social.VerifiedIdentity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityProvider) OnSessionChanged(fn social.SessionChangedFunc) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
	return func() {}
}

// Emit pushes a session-changed event to subscribers, simulating an async
// provider callback.
func (m *MockIdentityProvider) Emit(identity *social.VerifiedIdentity) {
	m.mu.Lock()
	subscribers := append([]social.SessionChangedFunc(nil), m.subscribers...)
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(identity)
	}
}

// fakeRemote is a configurable in-memory social.RemoteDirectory.
type fakeRemote struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*social.Profile
	edges    map[[2]uuid.UUID]bool

	failUpsert     error
	failDelete     error
	failInsertEdge error
	failDeleteEdge error
	failList       error
	failListEdges  error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		profiles: map[uuid.UUID]*social.Profile{},
		edges:    map[[2]uuid.UUID]bool{},
	}
}

func (f *fakeRemote) UpsertProfile(ctx context.Context, profile *social.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert != nil {
		return f.failUpsert
	}
	f.profiles[profile.ID] = profile
	return nil
}

func (f *fakeRemote) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.profiles, id)
	return nil
}

func (f *fakeRemote) ListProfiles(ctx context.Context) ([]*social.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]*social.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRemote) InsertFollowEdge(ctx context.Context, follower, followee uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertEdge != nil {
		return f.failInsertEdge
	}
	f.edges[[2]uuid.UUID{follower, followee}] = true
	return nil
}

func (f *fakeRemote) DeleteFollowEdge(ctx context.Context, follower, followee uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteEdge != nil {
		return f.failDeleteEdge
	}
	delete(f.edges, [2]uuid.UUID{follower, followee})
	return nil
}

func (f *fakeRemote) ListFollowEdges(ctx context.Context) ([]social.FollowEdgeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failListEdges != nil {
		return nil, f.failListEdges
	}
	out := make([]social.FollowEdgeRecord, 0, len(f.edges))
	for pair := range f.edges {
		out = append(out, social.FollowEdgeRecord{FollowerID: pair[0], FolloweeID: pair[1]})
	}
	return out, nil
}

// capturingSink records activity events for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []social.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt social.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) byType(eventType social.ActivityEventType) []social.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []social.ActivityEvent
	for _, evt := range c.events {
		if evt.EventType == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// MockSessionRevoker implements social.SessionRevoker
type MockSessionRevoker struct {
	mock.Mock
}

func (m *MockSessionRevoker) RevokeProfile(ctx context.Context, profileID uuid.UUID) error {
	args := m.Called(ctx, profileID)
	return args.Error(0)
}

package farmAuth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const testSecret = "test-secret-that-is-at-least-32-bytes!!"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.Secret = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 10
	cfg.Metrics.Enabled = true
	return cfg
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeUserStore is a map-backed UserStore with error injection.
type fakeUserStore struct {
	mu        sync.Mutex
	users     map[string]UserRecord
	nextID    int
	lookupErr error
	createErr error
	updates   atomic.Int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]UserRecord{}}
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return UserRecord{}, s.lookupErr
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (s *fakeUserStore) GetUserByID(_ context.Context, id string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return UserRecord{}, s.lookupErr
	}
	u, ok := s.users[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return UserRecord{}, s.createErr
	}
	for _, u := range s.users {
		if u.Email == in.Email {
			return UserRecord{}, ErrConflict
		}
	}
	s.nextID++
	rec := UserRecord{
		ID:           "user-" + strconv.Itoa(s.nextID),
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		Location:     in.Location,
		Role:         in.Role,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now(),
	}
	s.users[rec.ID] = rec
	return rec, nil
}

func (s *fakeUserStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	s.updates.Add(1)
	return nil
}

func (s *fakeUserStore) put(rec UserRecord) {
	s.mu.Lock()
	s.users[rec.ID] = rec
	s.mu.Unlock()
}

func (s *fakeUserStore) get(id string) UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

// countingVerifier records how often the engine consults it.
type countingVerifier struct {
	inner CredentialVerifier
	calls atomic.Int64
}

func (v *countingVerifier) Verify(ctx context.Context, email, pass string) (VerifiedIdentity, error) {
	v.calls.Add(1)
	return v.inner.Verify(ctx, email, pass)
}

type errVerifier struct{ err error }

func (v errVerifier) Verify(context.Context, string, string) (VerifiedIdentity, error) {
	return VerifiedIdentity{}, v.err
}

var errBackendDown = errors.New("backend down")

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newNullLogger() (logrus.FieldLogger, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	return logger, hook
}

// seedUser hashes pass with the engine's hasher and stores the record.
func seedUser(t *testing.T, e *Engine, store *fakeUserStore, id, email, pass string, role Role) UserRecord {
	t.Helper()

	hash, err := e.hasher.Hash(pass)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	rec := UserRecord{ID: id, Email: email, Role: role, PasswordHash: hash, Name: "Test User"}
	store.put(rec)
	return rec
}

func buildTestEngine(t *testing.T, cfg Config, store UserStore, opts ...func(*Builder)) *Engine {
	t.Helper()

	logger, _ := newNullLogger()
	b := New().WithConfig(cfg).WithLogger(logger)
	if store != nil {
		b.WithUserStore(store)
	}
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

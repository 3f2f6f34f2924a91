package userstore

import (
	"context"
	"strings"
	"sync"
	"time"

	farmAuth "github.com/MrEthical07/farmAuth"
	"github.com/google/uuid"
)

// Memory is a mutex-guarded map of user records keyed by id, with an email
// index. It implements farmAuth.UserStore and farmAuth.PasswordHashUpdater.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]farmAuth.UserRecord
	byEmail map[string]string
	now     func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]farmAuth.UserRecord),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (farmAuth.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[normalize(email)]
	if !ok {
		return farmAuth.UserRecord{}, farmAuth.ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (farmAuth.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return farmAuth.UserRecord{}, farmAuth.ErrUserNotFound
	}
	return rec, nil
}

// CreateUser stores a new record with a random UUID. The email must not be
// taken.
func (m *Memory) CreateUser(_ context.Context, input farmAuth.CreateUserInput) (farmAuth.UserRecord, error) {
	email := normalize(input.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return farmAuth.UserRecord{}, farmAuth.ErrConflict
	}

	rec := farmAuth.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         input.Name,
		Phone:        input.Phone,
		Location:     input.Location,
		Role:         input.Role,
		PasswordHash: input.PasswordHash,
		CreatedAt:    m.now().UTC(),
	}
	m.byID[rec.ID] = rec
	m.byEmail[email] = rec.ID
	return rec, nil
}

func (m *Memory) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return farmAuth.ErrUserNotFound
	}
	rec.PasswordHash = hash
	m.byID[id] = rec
	return nil
}

// Seed inserts rec as is, replacing any record with the same id or email. It is
// meant for fixtures; an empty ID gets a fresh UUID.
func (m *Memory) Seed(rec farmAuth.UserRecord) farmAuth.UserRecord {
	rec.Email = normalize(rec.Email)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if oldID, ok := m.byEmail[rec.Email]; ok {
		delete(m.byID, oldID)
	}
	if old, ok := m.byID[rec.ID]; ok {
		delete(m.byEmail, old.Email)
	}
	m.byID[rec.ID] = rec
	m.byEmail[rec.Email] = rec.ID
	return rec
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

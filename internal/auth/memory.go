package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store used in tests and local development.
// All methods are safe for concurrent use; MarkUsed holds the same
// at-most-one-winner guarantee as the Postgres store.
type MemStore struct {
	mu sync.Mutex

	users       map[uuid.UUID]*User
	passwords   map[uuid.UUID]string
	sessions    map[uuid.UUID]*Session
	sessionKeys map[string]uuid.UUID // token hash -> session id
	loginTokens map[uuid.UUID]*LoginToken
	linkKeys    map[string]uuid.UUID // token hash -> login token id
	roles       map[roleKey][]Role
}

type roleKey struct {
	userID       uuid.UUID
	tournamentID uuid.UUID
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:       make(map[uuid.UUID]*User),
		passwords:   make(map[uuid.UUID]string),
		sessions:    make(map[uuid.UUID]*Session),
		sessionKeys: make(map[string]uuid.UUID),
		loginTokens: make(map[uuid.UUID]*LoginToken),
		linkKeys:    make(map[string]uuid.UUID),
		roles:       make(map[roleKey][]Role),
	}
}

func (m *MemStore) Users(context.Context) UserStore             { return (*memUserStore)(m) }
func (m *MemStore) Sessions(context.Context) SessionStore       { return (*memSessionStore)(m) }
func (m *MemStore) LoginTokens(context.Context) LoginTokenStore { return (*memLoginTokenStore)(m) }
func (m *MemStore) Roles(context.Context) RoleStore             { return (*memRoleStore)(m) }

type memUserStore MemStore

func (m *memUserStore) Create(_ context.Context, u *User, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return ErrConflict
	}
	for _, existing := range m.users {
		if existing.Handle == u.Handle {
			return ErrConflict
		}
	}
	clone := *u
	m.users[u.ID] = &clone
	m.passwords[u.ID] = passwordHash
	return nil
}

func (m *memUserStore) Find(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memUserStore) FindByHandle(_ context.Context, handle string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Handle == handle {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUserStore) PasswordHashByHandle(_ context.Context, handle string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Handle == handle {
			return m.passwords[id], nil
		}
	}
	return "", ErrNotFound
}

func (m *memUserStore) List(_ context.Context) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		clone := *u
		users = append(users, &clone)
	}
	return users, nil
}

func (m *memUserStore) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *memUserStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	m.passwords[id] = passwordHash
	return nil
}

func (m *memUserStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	delete(m.passwords, id)
	return nil
}

type memSessionStore MemStore

func (m *memSessionStore) Create(_ context.Context, s *Session, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessionKeys[tokenHash]; ok {
		return ErrConflict
	}
	clone := *s
	m.sessions[s.ID] = &clone
	m.sessionKeys[tokenHash] = s.ID
	return nil
}

func (m *memSessionStore) Find(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memSessionStore) FindByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.sessionKeys[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *m.sessions[id]
	return &clone, nil
}

func (m *memSessionStore) List(_ context.Context) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		clone := *s
		sessions = append(sessions, &clone)
	}
	return sessions, nil
}

func (m *memSessionStore) Prolong(_ context.Context, id uuid.UUID, expiry, lastAccess time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Expiry = expiry
	la := lastAccess
	s.LastAccess = &la
	return nil
}

func (m *memSessionStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, sid := range m.sessionKeys {
		if sid == id {
			delete(m.sessionKeys, hash)
		}
	}
	delete(m.sessions, id)
	return nil
}

func (m *memSessionStore) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID != userID {
			continue
		}
		for hash, sid := range m.sessionKeys {
			if sid == id {
				delete(m.sessionKeys, hash)
			}
		}
		delete(m.sessions, id)
	}
	return nil
}

type memLoginTokenStore MemStore

func (m *memLoginTokenStore) Create(_ context.Context, t *LoginToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.linkKeys[t.TokenHash]; ok {
		return ErrConflict
	}
	clone := *t
	m.loginTokens[t.ID] = &clone
	m.linkKeys[t.TokenHash] = t.ID
	return nil
}

func (m *memLoginTokenStore) FindByTokenHash(_ context.Context, tokenHash string) (*LoginToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.linkKeys[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *m.loginTokens[id]
	return &clone, nil
}

func (m *memLoginTokenStore) MarkUsed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.loginTokens[id]
	if !ok {
		return ErrNotFound
	}
	if t.Used {
		return ErrTokenAlreadyUsed
	}
	t.Used = true
	return nil
}

type memRoleStore MemStore

func (m *memRoleStore) ListByUserAndTournament(_ context.Context, userID, tournamentID uuid.UUID) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := m.roles[roleKey{userID: userID, tournamentID: tournamentID}]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out, nil
}

func (m *memRoleStore) Set(_ context.Context, userID, tournamentID uuid.UUID, roles []Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := make([]Role, len(roles))
	copy(clone, roles)
	m.roles[roleKey{userID: userID, tournamentID: tournamentID}] = clone
	return nil
}

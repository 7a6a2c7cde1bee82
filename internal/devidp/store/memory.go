package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devidp/domain"
)

// Memory is a Store held entirely in process memory. Everything is lost on
// restart.
type Memory struct {
	mu sync.RWMutex

	users         map[string]domain.User
	usersByName   map[string]string
	clients       map[string]domain.Client
	sessions      map[string]domain.LoginSession
	sessionByHash map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]domain.User),
		usersByName:   make(map[string]string),
		clients:       make(map[string]domain.Client),
		sessions:      make(map[string]domain.LoginSession),
		sessionByHash: make(map[string]string),
	}
}

func (m *Memory) Users() Users       { return memUsers{m} }
func (m *Memory) Clients() Clients   { return memClients{m} }
func (m *Memory) Sessions() Sessions { return memSessions{m} }

var _ Store = (*Memory)(nil)

type memUsers struct{ m *Memory }

func (r memUsers) GetUserByID(_ context.Context, id string) (domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (r memUsers) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	id, ok := r.m.usersByName[strings.ToLower(username)]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return r.m.users[id], nil
}

func (r memUsers) CreateUser(_ context.Context, u domain.User) error {
	key := strings.ToLower(u.Username)

	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[u.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := r.m.usersByName[key]; ok {
		return ErrAlreadyExists
	}
	r.m.users[u.ID] = u
	r.m.usersByName[key] = u.ID
	return nil
}

type memClients struct{ m *Memory }

func (r memClients) GetClientByID(_ context.Context, id string) (domain.Client, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.clients[id]
	if !ok {
		return domain.Client{}, ErrNotFound
	}
	return c, nil
}

func (r memClients) CreateClient(_ context.Context, c domain.Client) error {
	c.RedirectURIs = slices.Clone(c.RedirectURIs)
	c.Audiences = slices.Clone(c.Audiences)
	c.Scopes = slices.Clone(c.Scopes)

	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.clients[c.ID]; ok {
		return ErrAlreadyExists
	}
	r.m.clients[c.ID] = c
	return nil
}

type memSessions struct{ m *Memory }

func (r memSessions) CreateSession(_ context.Context, s domain.LoginSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.sessions[s.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := r.m.sessionByHash[s.TokenHash]; ok {
		return ErrAlreadyExists
	}
	r.m.sessions[s.ID] = s
	r.m.sessionByHash[s.TokenHash] = s.ID
	return nil
}

func (r memSessions) GetSessionByTokenHash(_ context.Context, hash string, now time.Time) (domain.LoginSession, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	id, ok := r.m.sessionByHash[hash]
	if !ok {
		return domain.LoginSession{}, ErrNotFound
	}
	s := r.m.sessions[id]
	if s.Expired(now) {
		return domain.LoginSession{}, ErrNotFound
	}
	return s, nil
}

func (r memSessions) DeleteSession(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.m.sessions, id)
	delete(r.m.sessionByHash, s.TokenHash)
	return nil
}

func (r memSessions) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for id, s := range r.m.sessions {
		if s.Expired(now) {
			delete(r.m.sessions, id)
			delete(r.m.sessionByHash, s.TokenHash)
			n++
		}
	}
	return n, nil
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devidp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. It exposes one sub-repository per
// entity.
type Store interface {
	Users() Users
	Clients() Clients
	Sessions() Sessions
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	CreateUser(ctx context.Context, u domain.User) error
}

type Clients interface {
	GetClientByID(ctx context.Context, id string) (domain.Client, error)
	CreateClient(ctx context.Context, c domain.Client) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.LoginSession) error

	// GetSessionByTokenHash returns ErrNotFound for unknown and expired
	// sessions alike.
	GetSessionByTokenHash(ctx context.Context, hash string, now time.Time) (domain.LoginSession, error)

	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions removes sessions expired at now and reports how
	// many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

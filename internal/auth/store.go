package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store describes persistence operations required by the auth core.
// The resource layer owns everything else about these tables.
type Store interface {
	Users(ctx context.Context) UserStore
	Sessions(ctx context.Context) SessionStore
	LoginTokens(ctx context.Context) LoginTokenStore
	Roles(ctx context.Context) RoleStore
}

// UserStore manages identity rows. Password hashes never leave the
// store except through PasswordHashByHandle.
type UserStore interface {
	Create(ctx context.Context, u *User, passwordHash string) error
	Find(ctx context.Context, id uuid.UUID) (*User, error)
	FindByHandle(ctx context.Context, handle string) (*User, error)
	PasswordHashByHandle(ctx context.Context, handle string) (string, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionStore manages session rows. The token column is write-only:
// it holds the hash of the bearer token and is never read back out.
type SessionStore interface {
	Create(ctx context.Context, s *Session, tokenHash string) error
	Find(ctx context.Context, id uuid.UUID) (*Session, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Prolong(ctx context.Context, id uuid.UUID, expiry, lastAccess time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// LoginTokenStore manages single-use login tokens. MarkUsed must be
// atomic with respect to concurrent redeemers of the same token: at
// most one caller wins, the rest observe ErrTokenAlreadyUsed.
type LoginTokenStore interface {
	Create(ctx context.Context, t *LoginToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*LoginToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
}

// RoleStore resolves role assignments scoped to (user, tournament).
type RoleStore interface {
	ListByUserAndTournament(ctx context.Context, userID, tournamentID uuid.UUID) ([]Role, error)
	Set(ctx context.Context, userID, tournamentID uuid.UUID, roles []Role) error
}

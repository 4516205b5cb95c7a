package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated identity: who the caller is, independent of
// any tournament.
type User struct {
	ID             uuid.UUID `json:"id"`
	Handle         string    `json:"handle"`
	ProfilePicture *PhotoURL `json:"profile_picture,omitempty"`
}

// Session is a server-side login session. Only the hash of the bearer
// token is ever stored; the raw token exists outside the client exactly
// once, when the session is created.
type Session struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Issued     time.Time  `json:"issued"`
	Expiry     time.Time  `json:"expiry"`
	LastAccess *time.Time `json:"last_access,omitempty"`
}

// Expired reports whether the session expiry lies before now.
func (s *Session) Expired(now time.Time) bool {
	return s.Expiry.Before(now)
}

// LoginToken is a single-use magic-link credential. Once Used is set the
// token can never authenticate again, even before its expiry.
type LoginToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"-"`
	Expiry    time.Time `json:"expiry"`
	Used      bool      `json:"used"`
}

// Expired reports whether the token expiry lies before now.
func (t *LoginToken) Expired(now time.Time) bool {
	return t.Expiry.Before(now)
}

// TournamentUser is a user viewed through the lens of one tournament:
// the identity plus the roles it holds there. Roles are resolved once,
// at authentication time.
type TournamentUser struct {
	User  User   `json:"user"`
	Roles []Role `json:"roles"`
}

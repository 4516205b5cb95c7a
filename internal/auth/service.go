package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// Sessions slide: every successful use pushes expiry a full week out.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// Login links are short-lived invites.
	DefaultLoginLinkTTL = 24 * time.Hour
)

// Service implements credential verification, the session and
// login-link lifecycle, and tournament-scoped identity resolution. It
// is stateless per call; all state lives in the Store.
type Service struct {
	store Store
	now   func() time.Time

	sessionTTL   time.Duration
	loginLinkTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithSessionTTL configures the sliding session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
		return nil
	}
}

// WithLoginLinkTTL configures the single-use login token lifetime.
func WithLoginLinkTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.loginLinkTTL = ttl
		}
		return nil
	}
}

// NewService constructs a Service with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth store is required")
	}
	svc := &Service{
		store:        store,
		now:          time.Now,
		sessionTTL:   DefaultSessionTTL,
		loginLinkTTL: DefaultLoginLinkTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// SessionTTL exposes the configured session lifetime so the hosting
// layer can keep the cookie max-age in lockstep.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Authenticate resolves inbound credential material into a verified
// user. header is the raw Authorization value, cookie the raw session
// cookie value; either may be empty. A present header always takes
// precedence over the cookie.
//
// The returned session token is non-empty only when authentication went
// through a session; the caller must then re-set the session cookie so
// the client-visible expiry extends together with the server-side one.
func (s *Service) Authenticate(ctx context.Context, header, cookie string) (*User, string, error) {
	if header != "" && !isASCII(header) {
		return nil, "", ErrNonASCIIHeader
	}
	if header == "" && cookie == "" {
		return nil, "", ErrNoCredentials
	}
	if header != "" {
		cred, err := parseAuthorizationHeader(header)
		if err != nil {
			return nil, "", err
		}
		switch cred.kind {
		case credentialBasic:
			user, err := s.AuthenticateCredentials(ctx, cred.login, cred.password)
			return user, "", err
		case credentialBearer:
			user, err := s.AuthenticateSession(ctx, cred.token)
			if err != nil {
				return nil, "", err
			}
			return user, cred.token, nil
		}
	}
	user, err := s.AuthenticateSession(ctx, cookie)
	if err != nil {
		return nil, "", err
	}
	return user, cookie, nil
}

// AuthenticateTournament authenticates and resolves the user's roles
// for one tournament in a single step. The infrastructure admin is
// granted the Admin role everywhere without touching role rows.
func (s *Service) AuthenticateTournament(ctx context.Context, tournamentID uuid.UUID, header, cookie string) (TournamentUser, string, error) {
	user, token, err := s.Authenticate(ctx, header, cookie)
	if err != nil {
		return TournamentUser{}, "", err
	}
	if user.IsInfrastructureAdmin() {
		return TournamentUser{User: *user, Roles: []Role{RoleAdmin}}, token, nil
	}
	roles, err := s.store.Roles(ctx).ListByUserAndTournament(ctx, user.ID, tournamentID)
	if err != nil {
		return TournamentUser{}, "", fmt.Errorf("resolve tournament roles: %w", err)
	}
	return TournamentUser{User: *user, Roles: roles}, token, nil
}

// AuthenticateCredentials verifies a login/password pair. Unknown
// handle and wrong password fail identically with ErrInvalidCredentials
// so callers cannot probe for account existence. A malformed stored
// hash is logged upstream but presented the same way.
func (s *Service) AuthenticateCredentials(ctx context.Context, login, password string) (*User, error) {
	users := s.store.Users(ctx)
	hash, err := users.PasswordHashByHandle(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up password hash: %w", err)
	}
	ok, err := VerifyPassword(password, hash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return users.FindByHandle(ctx, login)
}

// AuthenticateSession validates a raw session token: hash it, look the
// session up by hash, reject expired ones, then prolong expiry and
// stamp last_access in a single update. Expired sessions are rejected
// but not deleted here; cleanup is a separate maintenance concern.
func (s *Service) AuthenticateSession(ctx context.Context, token string) (*User, error) {
	sessions := s.store.Sessions(ctx)
	session, err := sessions.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up session: %w", err)
	}
	now := s.now()
	if session.Expired(now) {
		return nil, ErrSessionExpired
	}
	if err := sessions.Prolong(ctx, session.ID, now.Add(s.sessionTTL), now); err != nil {
		return nil, fmt.Errorf("prolong session: %w", err)
	}
	return s.store.Users(ctx).Find(ctx, session.UserID)
}

// CreateSession mints a session for the user and returns the raw bearer
// token. This is the only moment the raw token exists server-side; the
// store only ever sees its hash.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID) (*Session, string, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	session := &Session{
		ID:     id,
		UserID: userID,
		Issued: now,
		Expiry: now.Add(s.sessionTTL),
	}
	if err := s.store.Sessions(ctx).Create(ctx, session, HashToken(token)); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}
	return session, token, nil
}

// Login exchanges a login/password pair for a fresh session.
func (s *Service) Login(ctx context.Context, login, password string) (*User, *Session, string, error) {
	user, err := s.AuthenticateCredentials(ctx, login, password)
	if err != nil {
		return nil, nil, "", err
	}
	session, token, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, "", err
	}
	return user, session, token, nil
}

// DestroySessionByToken irreversibly deletes the session named by the
// raw token. Used for explicit logout.
func (s *Service) DestroySessionByToken(ctx context.Context, token string) error {
	sessions := s.store.Sessions(ctx)
	session, err := sessions.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("look up session: %w", err)
	}
	return sessions.Delete(ctx, session.ID)
}

// ListSessions enumerates every session. Authorization (infrastructure
// admin only) is enforced by the caller.
func (s *Service) ListSessions(ctx context.Context) ([]*Session, error) {
	return s.store.Sessions(ctx).List(ctx)
}

// IssueLoginLink mints a single-use login token for the user and
// returns the stored record together with the raw token, to be
// embedded in a magic link. Only the hash is stored; the record's
// expiry is the authoritative one.
func (s *Service) IssueLoginLink(ctx context.Context, userID uuid.UUID) (*LoginToken, string, error) {
	if _, err := s.store.Users(ctx).Find(ctx, userID); err != nil {
		return nil, "", err
	}
	token, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", err
	}
	record := &LoginToken{
		ID:        id,
		UserID:    userID,
		TokenHash: HashToken(token),
		Expiry:    s.now().Add(s.loginLinkTTL),
	}
	if err := s.store.LoginTokens(ctx).Create(ctx, record); err != nil {
		return nil, "", fmt.Errorf("store login token: %w", err)
	}
	return record, token, nil
}

// RedeemLoginLink consumes a single-use login token and exchanges it
// for a session. The token is marked used before the session is handed
// back; when two redeemers race, the store's row-level update semantics
// guarantee at most one winner and the loser sees ErrTokenAlreadyUsed.
func (s *Service) RedeemLoginLink(ctx context.Context, token string) (*User, *Session, string, error) {
	record, err := s.store.LoginTokens(ctx).FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, "", ErrInvalidToken
		}
		return nil, nil, "", fmt.Errorf("look up login token: %w", err)
	}
	if record.Expired(s.now()) {
		return nil, nil, "", ErrTokenExpired
	}
	if record.Used {
		return nil, nil, "", ErrTokenAlreadyUsed
	}
	if err := s.store.LoginTokens(ctx).MarkUsed(ctx, record.ID); err != nil {
		return nil, nil, "", err
	}
	user, err := s.store.Users(ctx).Find(ctx, record.UserID)
	if err != nil {
		return nil, nil, "", err
	}
	session, raw, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, "", err
	}
	return user, session, raw, nil
}

// CreateUser provisions an identity with a hashed password.
func (s *Service) CreateUser(ctx context.Context, user *User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.Users(ctx).Create(ctx, user, hash)
}

// FindUser resolves an identity by id.
func (s *Service) FindUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.store.Users(ctx).Find(ctx, userID)
}

// ListUsers enumerates every identity, ordered by handle.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users(ctx).List(ctx)
}

// UpdateUser replaces the identity's handle and profile picture.
// Password changes go through ChangePassword.
func (s *Service) UpdateUser(ctx context.Context, user *User) error {
	if user.Handle == "" {
		return fmt.Errorf("%w: handle is required", ErrInvalidInput)
	}
	return s.store.Users(ctx).Update(ctx, user)
}

// ChangePassword replaces the user's password hash.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.Users(ctx).UpdatePassword(ctx, userID, hash)
}

// DeleteUser removes an identity. All of the user's sessions are
// destroyed first so a deleted user is logged out everywhere at once.
// The infrastructure admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if userID == InfrastructureAdminID {
		return fmt.Errorf("%w: the infrastructure admin cannot be deleted", ErrInvalidInput)
	}
	if err := s.store.Sessions(ctx).DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("invalidate sessions: %w", err)
	}
	return s.store.Users(ctx).Delete(ctx, userID)
}

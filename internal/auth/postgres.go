package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// OpenPG opens a pooled connection and wraps it in a PGStore.
func OpenPG(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) DB() *sql.DB { return s.db }

func (s *PGStore) Users(context.Context) UserStore             { return &pgUserStore{db: s.db} }
func (s *PGStore) Sessions(context.Context) SessionStore       { return &pgSessionStore{db: s.db} }
func (s *PGStore) LoginTokens(context.Context) LoginTokenStore { return &pgLoginTokenStore{db: s.db} }
func (s *PGStore) Roles(context.Context) RoleStore             { return &pgRoleStore{db: s.db} }

// User store ---------------------------------------------------------------

type pgUserStore struct{ db *sql.DB }

func (s *pgUserStore) Create(ctx context.Context, u *User, passwordHash string) error {
	var picture *string
	if u.ProfilePicture != nil {
		link := u.ProfilePicture.String()
		picture = &link
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, handle, picture_link, password_hash) values($1,$2,$3,$4)`,
		u.ID, u.Handle, picture, passwordHash,
	)
	return err
}

func (s *pgUserStore) Find(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, handle, picture_link from users where id=$1`, id)
	return scanUser(row)
}

func (s *pgUserStore) FindByHandle(ctx context.Context, handle string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, handle, picture_link from users where handle=$1`, handle)
	return scanUser(row)
}

func (s *pgUserStore) PasswordHashByHandle(ctx context.Context, handle string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`select password_hash from users where handle=$1`, handle).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *pgUserStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, handle, picture_link from users order by handle`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *pgUserStore) Update(ctx context.Context, u *User) error {
	var picture *string
	if u.ProfilePicture != nil {
		link := u.ProfilePicture.String()
		picture = &link
	}
	_, err := s.db.ExecContext(ctx,
		`update users set handle=$2, picture_link=$3 where id=$1`,
		u.ID, u.Handle, picture,
	)
	return err
}

func (s *pgUserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2 where id=$1`, id, passwordHash)
	return err
}

func (s *pgUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u       User
		picture *string
	)
	if err := row.Scan(&u.ID, &u.Handle, &picture); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if picture != nil {
		url, err := NewPhotoURL(*picture)
		if err != nil {
			return nil, fmt.Errorf("stored picture link for %s: %w", u.Handle, err)
		}
		u.ProfilePicture = url
	}
	return &u, nil
}

// Session store ------------------------------------------------------------

type pgSessionStore struct{ db *sql.DB }

func (s *pgSessionStore) Create(ctx context.Context, sess *Session, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, user_id, token, issued, expiry) values($1,$2,$3,$4,$5)`,
		sess.ID, sess.UserID, tokenHash, sess.Issued, sess.Expiry,
	)
	return err
}

func (s *pgSessionStore) Find(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, issued, expiry, last_access from sessions where id=$1`, id)
	return scanSession(row)
}

func (s *pgSessionStore) FindByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, issued, expiry, last_access from sessions where token=$1`, tokenHash)
	return scanSession(row)
}

func (s *pgSessionStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, user_id, issued, expiry, last_access from sessions order by issued`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *pgSessionStore) Prolong(ctx context.Context, id uuid.UUID, expiry, lastAccess time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set expiry=$2, last_access=$3 where id=$1`,
		id, expiry, lastAccess,
	)
	return err
}

func (s *pgSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where id=$1`, id)
	return err
}

func (s *pgSessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where user_id=$1`, userID)
	return err
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess       Session
		lastAccess sql.NullTime
	)
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Issued, &sess.Expiry, &lastAccess); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastAccess.Valid {
		sess.LastAccess = &lastAccess.Time
	}
	return &sess, nil
}

// Login token store --------------------------------------------------------

type pgLoginTokenStore struct{ db *sql.DB }

func (s *pgLoginTokenStore) Create(ctx context.Context, t *LoginToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into login_tokens(id, user_id, token_hash, expiry, used) values($1,$2,$3,$4,$5)`,
		t.ID, t.UserID, t.TokenHash, t.Expiry, t.Used,
	)
	return err
}

func (s *pgLoginTokenStore) FindByTokenHash(ctx context.Context, tokenHash string) (*LoginToken, error) {
	var t LoginToken
	err := s.db.QueryRowContext(ctx,
		`select id, user_id, token_hash, expiry, used from login_tokens where token_hash=$1`,
		tokenHash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Expiry, &t.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkUsed flips used to true. The guard on the current value makes the
// flip race-safe: of two concurrent redeemers only one update matches a
// row, and the loser gets ErrTokenAlreadyUsed.
func (s *pgLoginTokenStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`update login_tokens set used=true where id=$1 and used=false`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTokenAlreadyUsed
	}
	return nil
}

// Role store ---------------------------------------------------------------

type pgRoleStore struct{ db *sql.DB }

func (s *pgRoleStore) ListByUserAndTournament(ctx context.Context, userID, tournamentID uuid.UUID) ([]Role, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`select roles from roles where user_id=$1 and tournament_id=$2`,
		userID, tournamentID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decode role list: %w", err)
	}
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *pgRoleStore) Set(ctx context.Context, userID, tournamentID uuid.UUID, roles []Role) error {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into roles(user_id, tournament_id, roles) values($1,$2,$3)
		 on conflict (user_id, tournament_id) do update set roles=excluded.roles`,
		userID, tournamentID, raw,
	)
	return err
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// InfrastructureAdminID is the reserved identity of the built-in
// administrator. It bypasses the whole role/permission model and cannot
// be deleted.
var InfrastructureAdminID = uuid.Max

// IsInfrastructureAdmin reports whether this user is the built-in
// administrator. Callers should resolve this once at authentication
// time rather than re-checking at every call site.
func (u *User) IsInfrastructureAdmin() bool {
	return u.ID == InfrastructureAdminID
}

// NewInfrastructureAdmin returns the built-in administrator identity.
func NewInfrastructureAdmin() User {
	return User{ID: InfrastructureAdminID, Handle: "admin"}
}

// GuaranteeInfrastructureAdmin makes sure the built-in administrator row
// exists, creating it with the default password on first boot. The
// service refuses to start without it.
func (s *Service) GuaranteeInfrastructureAdmin(ctx context.Context) error {
	users := s.store.Users(ctx)
	_, err := users.Find(ctx, InfrastructureAdminID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("look up infrastructure admin: %w", err)
	}
	admin := NewInfrastructureAdmin()
	hash, err := HashPassword("admin")
	if err != nil {
		return err
	}
	if err := users.Create(ctx, &admin, hash); err != nil {
		return fmt.Errorf("create infrastructure admin: %w", err)
	}
	return nil
}

package auth

import "fmt"

// Permission is an atomic authorizable capability. The set is closed;
// permissions are only ever derived from roles, never assigned to users
// directly.
type Permission string

const (
	PermCreateUsersManually Permission = "user.create.manual"
	PermCreateUsersWithLink Permission = "user.create.link"
	PermDeleteUsers         Permission = "user.delete"
	PermModifyUserRoles     Permission = "user.roles.modify"

	PermReadAttendees   Permission = "attendee.read"
	PermWriteAttendees  Permission = "attendee.write"
	PermReadDebates     Permission = "debate.read"
	PermWriteDebates    Permission = "debate.write"
	PermReadTeams       Permission = "team.read"
	PermWriteTeams      Permission = "team.write"
	PermReadTournament  Permission = "tournament.read"
	PermWriteTournament Permission = "tournament.write"

	// SubmitVerdict covers submitting verdicts on behalf of others;
	// SubmitOwnVerdictVote only covers the caller's own vote.
	PermSubmitVerdict        Permission = "verdict.submit"
	PermSubmitOwnVerdictVote Permission = "verdict.vote.own"
)

// AllPermissions lists every capability, in declaration order.
var AllPermissions = []Permission{
	PermCreateUsersManually,
	PermCreateUsersWithLink,
	PermDeleteUsers,
	PermModifyUserRoles,
	PermReadAttendees,
	PermWriteAttendees,
	PermReadDebates,
	PermWriteDebates,
	PermReadTeams,
	PermWriteTeams,
	PermReadTournament,
	PermWriteTournament,
	PermSubmitVerdict,
	PermSubmitOwnVerdictVote,
}

// Role is a named bundle of permissions, assignable to a user within
// one tournament. The enumeration is closed.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleOrganizer Role = "Organizer"
	RoleJudge     Role = "Judge"
	RoleMarshall  Role = "Marshall"
)

// ParseRole validates a stored role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleOrganizer, RoleJudge, RoleMarshall:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Permissions returns the fixed capability set of the role. The mapping
// is a compile-time domain fact, hence hard-coded rather than
// configuration-driven.
func (r Role) Permissions() []Permission {
	switch r {
	case RoleAdmin, RoleOrganizer:
		return AllPermissions
	case RoleJudge:
		return []Permission{
			PermReadAttendees,
			PermReadDebates,
			PermReadTeams,
			PermReadTournament,
			PermSubmitOwnVerdictVote,
		}
	case RoleMarshall:
		return []Permission{
			PermReadAttendees,
			PermReadDebates,
			PermReadTeams,
			PermReadTournament,
			PermSubmitVerdict,
		}
	}
	return nil
}

// HasPermission answers whether this user may exercise the permission
// within the tournament the roles were resolved for. The infrastructure
// admin short-circuits to true; everyone else is denied unless some
// held role grants the permission. Zero roles means zero permissions,
// including read.
func (t *TournamentUser) HasPermission(permission Permission) bool {
	if t.User.IsInfrastructureAdmin() {
		return true
	}
	for _, role := range t.Roles {
		for _, p := range role.Permissions() {
			if p == permission {
				return true
			}
		}
	}
	return false
}

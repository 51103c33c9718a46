package models

import "strings"

// Role is a project-scoped role with an integer weight. All hierarchy
// decisions compare weights, never role names.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// Weight returns the role's position in the hierarchy. Unknown roles
// weigh 0 and therefore lose every comparison.
func (r Role) Weight() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Weight() > 0
}

// ParseRole normalizes a stored role string, tolerating case and
// surrounding whitespace. Unknown values come back as-is so callers
// can report them; they carry zero weight.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleManager, RoleMember:
		return r
	default:
		return Role(s)
	}
}

// Capability names a state-changing operation gated by role checks.
type Capability string

const (
	CapCreateTasks   Capability = "create_tasks"
	CapAssignTasks   Capability = "assign_tasks"
	CapEditProject   Capability = "edit_project"
	CapDeleteProject Capability = "delete_project"
	CapInviteMember  Capability = "invite_member"
	CapRemoveMember  Capability = "remove_member"
	CapChangeRole    Capability = "change_role"
	CapCreateRooms   Capability = "create_rooms"
	CapManageRooms   Capability = "manage_rooms"
)

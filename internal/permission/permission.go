// Package permission implements the role-hierarchy engine. Every check
// is a pure function over role weights and returns a Decision value;
// expected denials are data, not errors.
package permission

import (
	"fmt"

	"github.com/harborstudio/teamsync/internal/models"
)

// Decision is the tagged outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(format string, v ...interface{}) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, v...)}
}

// minWeight is the capability floor: the lowest role weight allowed to
// exercise each capability. Pairwise hierarchy rules (assign, change
// role, remove) apply on top of this floor.
var minWeight = map[models.Capability]int{
	models.CapCreateTasks:   models.RoleMember.Weight(),
	models.CapAssignTasks:   models.RoleMember.Weight(),
	models.CapEditProject:   models.RoleAdmin.Weight(),
	models.CapDeleteProject: models.RoleAdmin.Weight(),
	models.CapInviteMember:  models.RoleManager.Weight(),
	models.CapRemoveMember:  models.RoleManager.Weight(),
	models.CapChangeRole:    models.RoleManager.Weight(),
	models.CapCreateRooms:   models.RoleMember.Weight(),
	models.CapManageRooms:   models.RoleManager.Weight(),
}

// Check is the generalized capability gate used before every mutation.
// Inactive members hold no capabilities.
func Check(member *models.Member, cap models.Capability) Decision {
	if member == nil {
		return Deny("not a member of this project")
	}
	if !member.IsActive {
		return Deny("membership is inactive")
	}
	floor, ok := minWeight[cap]
	if !ok {
		return Deny("unknown capability %q", cap)
	}
	if member.Role.Weight() < floor {
		return Deny("role %s cannot %s", member.Role, cap)
	}
	return Allow()
}

// CanAssignTask allows delegation downward or laterally, never upward:
// the assigner's weight must be at least the assignee's.
func CanAssignTask(assigner, assignee models.Role) Decision {
	if assigner.Weight() >= assignee.Weight() {
		return Allow()
	}
	return Deny("role %s cannot assign tasks to %s", assigner, assignee)
}

// CanChangeRole requires the changer to outrank both the target's
// current role and the granted role, strictly. A changer can neither
// touch a peer nor promote anyone to its own level.
func CanChangeRole(changer, current, next models.Role) Decision {
	if changer.Weight() <= current.Weight() {
		return Deny("role %s cannot change the role of a %s", changer, current)
	}
	if changer.Weight() <= next.Weight() {
		return Deny("role %s cannot grant role %s", changer, next)
	}
	return Allow()
}

// CanRemoveMember requires the remover to strictly outrank the target.
func CanRemoveMember(remover, target models.Role) Decision {
	if remover.Weight() > target.Weight() {
		return Allow()
	}
	return Deny("role %s cannot remove a %s", remover, target)
}

// CanInvite requires manager or above.
func CanInvite(role models.Role) Decision {
	if role.Weight() >= models.RoleManager.Weight() {
		return Allow()
	}
	return Deny("role %s cannot invite members", role)
}

// CanEditProject is admin-only.
func CanEditProject(role models.Role) Decision {
	if role == models.RoleAdmin {
		return Allow()
	}
	return Deny("role %s cannot edit the project", role)
}

// CanDeleteProject is admin-only.
func CanDeleteProject(role models.Role) Decision {
	if role == models.RoleAdmin {
		return Allow()
	}
	return Deny("role %s cannot delete the project", role)
}

// CanRemoveWithoutBreakingInvariant rejects removals that would leave
// a project with active members but no active admin, regardless of the
// remover's own role.
func CanRemoveWithoutBreakingInvariant(members []models.Member, targetUserID string) Decision {
	admins := 0
	targetIsAdmin := false
	for i := range members {
		m := &members[i]
		if !m.IsActive {
			continue
		}
		if m.Role == models.RoleAdmin {
			admins++
			if m.UserID == targetUserID {
				targetIsAdmin = true
			}
		}
	}
	if targetIsAdmin && admins <= 1 {
		return Deny("cannot remove the last admin of the project")
	}
	return Allow()
}

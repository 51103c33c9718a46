package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harborstudio/teamsync/internal/cache"
	"github.com/harborstudio/teamsync/internal/models"
	"github.com/harborstudio/teamsync/internal/permission"
	"github.com/harborstudio/teamsync/internal/syncer"
)

// MemberRepository manages project memberships: invitations, role
// changes and removals, all under the role-hierarchy rules and the
// last-admin invariant.
type MemberRepository struct {
	base
}

func NewMemberRepository(localCache cache.Store, queue syncer.Queue) *MemberRepository {
	return &MemberRepository{base: base{cache: localCache, queue: queue}}
}

// Invite adds a user to a project. Requires manager or above, and the
// granted role may not outrank the inviter's own.
func (r *MemberRepository) Invite(projectID, userID string, role models.Role, actorID string) (*models.Member, error) {
	actor, err := r.membership(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if d := permission.Check(actor, models.CapInviteMember); !d.Allowed {
		return nil, &PermissionError{Reason: d.Reason}
	}
	if !role.Valid() {
		return nil, &ValidationError{Reason: "unknown role " + string(role)}
	}
	if role.Weight() > actor.Role.Weight() {
		return nil, &PermissionError{Reason: "cannot grant a role above your own"}
	}

	var existing []models.Member
	if err := r.cache.Find(&existing, "project_id = ? AND user_id = ?", projectID, userID); err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		prior := &existing[0]
		if prior.IsActive {
			return nil, &ValidationError{Reason: "user is already a member of this project"}
		}
		// A removed member keeps their deactivated row; inviting them
		// back reactivates it instead of inserting a second one.
		now := time.Now()
		prior.Role = role
		prior.IsActive = true
		prior.JoinedAt = now
		prior.UpdatedAt = now
		prior.MarkDirty()
		if err := r.cache.Put(prior); err != nil {
			return nil, err
		}
		r.enqueuePush(models.KindMember, syncer.OpUpdate, prior.ID)
		return prior, nil
	}

	now := time.Now()
	member := &models.Member{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		IsActive:  true,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	member.MarkDirty()

	if err := r.cache.Put(member); err != nil {
		return nil, err
	}

	r.enqueuePush(models.KindMember, syncer.OpCreate, member.ID)
	return member, nil
}

// ChangeRole moves a member to a new role. The changer must strictly
// outrank both the member's current role and the granted role, and a
// sole admin cannot be demoted.
func (r *MemberRepository) ChangeRole(projectID, targetUserID string, newRole models.Role, actorID string) error {
	actor, err := r.membership(projectID, actorID)
	if err != nil {
		return err
	}
	if d := permission.Check(actor, models.CapChangeRole); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}
	if !newRole.Valid() {
		return &ValidationError{Reason: "unknown role " + string(newRole)}
	}

	target, err := r.membership(projectID, targetUserID)
	if err != nil {
		if err == ErrNotAMember {
			return ErrNotFound
		}
		return err
	}

	if d := permission.CanChangeRole(actor.Role, target.Role, newRole); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}

	if target.Role == models.RoleAdmin && newRole != models.RoleAdmin {
		members, err := r.activeMembers(projectID)
		if err != nil {
			return err
		}
		if d := permission.CanRemoveWithoutBreakingInvariant(members, targetUserID); !d.Allowed {
			return &ValidationError{Reason: d.Reason}
		}
	}

	target.Role = newRole
	target.UpdatedAt = time.Now()
	target.MarkDirty()

	if err := r.cache.Put(target); err != nil {
		return err
	}

	r.enqueuePush(models.KindMember, syncer.OpUpdate, target.ID)
	return nil
}

// Remove deactivates a membership. The remover must strictly outrank
// the target, except that any member may remove themselves (leave the
// project). Either way the project's last active admin cannot go.
func (r *MemberRepository) Remove(projectID, targetUserID, actorID string) error {
	actor, err := r.membership(projectID, actorID)
	if err != nil {
		return err
	}

	target := actor
	if targetUserID != actorID {
		if d := permission.Check(actor, models.CapRemoveMember); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}

		target, err = r.membership(projectID, targetUserID)
		if err != nil {
			if err == ErrNotAMember {
				return ErrNotFound
			}
			return err
		}

		if d := permission.CanRemoveMember(actor.Role, target.Role); !d.Allowed {
			return &PermissionError{Reason: d.Reason}
		}
	}

	members, err := r.activeMembers(projectID)
	if err != nil {
		return err
	}
	if d := permission.CanRemoveWithoutBreakingInvariant(members, targetUserID); !d.Allowed {
		return &ValidationError{Reason: d.Reason}
	}

	target.IsActive = false
	target.UpdatedAt = time.Now()
	target.MarkDirty()

	if err := r.cache.Put(target); err != nil {
		return err
	}

	r.enqueuePush(models.KindMember, syncer.OpUpdate, target.ID)
	return nil
}

// TouchActivity bumps the member's last-activity timestamp.
func (r *MemberRepository) TouchActivity(projectID, userID string) error {
	member, err := r.membership(projectID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	member.LastActiveAt = &now
	member.UpdatedAt = now
	member.MarkDirty()

	if err := r.cache.Put(member); err != nil {
		return err
	}

	r.enqueuePush(models.KindMember, syncer.OpUpdate, member.ID)
	return nil
}

// Get returns the active membership of a user in a project.
func (r *MemberRepository) Get(projectID, userID string) (*models.Member, error) {
	member, err := r.membership(projectID, userID)
	if err != nil {
		if err == ErrNotAMember {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return member, nil
}

// List returns a project's active members from the local cache.
func (r *MemberRepository) List(projectID string) ([]models.Member, error) {
	return r.activeMembers(projectID)
}

// Watch emits the project's active member list now and after every
// membership write in the cache.
func (r *MemberRepository) Watch(ctx context.Context, projectID string) <-chan []models.Member {
	return cache.Observe(ctx, r.cache, func() ([]models.Member, error) {
		return r.activeMembers(projectID)
	}, models.KindMember)
}

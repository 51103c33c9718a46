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

// ProjectRepository manages projects and the creator's founding
// membership.
type ProjectRepository struct {
	base
}

func NewProjectRepository(localCache cache.Store, queue syncer.Queue) *ProjectRepository {
	return &ProjectRepository{base: base{cache: localCache, queue: queue}}
}

// Create commits a new project to the local cache and returns; the
// creator becomes its owner and first admin member. Remote propagation
// happens in the background, project before membership so the remote
// foreign key can land in order (and the retry policy absorbs the
// races when it does not).
func (r *ProjectRepository) Create(project *models.Project, actorID string) (*models.Project, error) {
	if project.Name == "" {
		return nil, &ValidationError{Reason: "project name is required"}
	}

	now := time.Now()
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.OwnerID = actorID
	if project.Status == "" {
		project.Status = models.ProjectActive
	}
	project.CreatedAt = now
	project.UpdatedAt = now
	project.MarkDirty()

	if err := r.cache.Put(project); err != nil {
		return nil, err
	}

	founder := &models.Member{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		UserID:    actorID,
		Role:      models.RoleAdmin,
		IsActive:  true,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	founder.MarkDirty()
	if err := r.cache.Put(founder); err != nil {
		return nil, err
	}

	r.enqueuePush(models.KindProject, syncer.OpCreate, project.ID)
	r.enqueuePush(models.KindMember, syncer.OpCreate, founder.ID)
	return project, nil
}

// Update replaces the project's mutable fields. Admin only.
func (r *ProjectRepository) Update(project *models.Project, actorID string) (*models.Project, error) {
	member, err := r.membership(project.ID, actorID)
	if err != nil {
		return nil, err
	}
	if d := permission.Check(member, models.CapEditProject); !d.Allowed {
		return nil, &PermissionError{Reason: d.Reason}
	}

	var existing models.Project
	if err := r.get(&existing, project.ID); err != nil {
		return nil, err
	}

	existing.Name = project.Name
	existing.Description = project.Description
	if project.Status != "" {
		existing.Status = project.Status
	}
	existing.UpdatedAt = time.Now()
	existing.MarkDirty()

	if err := r.cache.Put(&existing); err != nil {
		return nil, err
	}

	r.enqueuePush(models.KindProject, syncer.OpUpdate, existing.ID)
	return &existing, nil
}

// UpdateStatus archives or reactivates a project. Admin only.
func (r *ProjectRepository) UpdateStatus(id string, status models.ProjectStatus, actorID string) error {
	member, err := r.membership(id, actorID)
	if err != nil {
		return err
	}
	if d := permission.Check(member, models.CapEditProject); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}

	var existing models.Project
	if err := r.get(&existing, id); err != nil {
		return err
	}

	existing.Status = status
	existing.UpdatedAt = time.Now()
	existing.MarkDirty()

	if err := r.cache.Put(&existing); err != nil {
		return err
	}

	r.enqueuePush(models.KindProject, syncer.OpUpdate, id)
	return nil
}

// Delete removes the project and its dependent rows from the local
// cache synchronously, then issues the remote delete in the
// background. Admin only.
func (r *ProjectRepository) Delete(id string, actorID string) error {
	member, err := r.membership(id, actorID)
	if err != nil {
		return err
	}
	if d := permission.Check(member, models.CapDeleteProject); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}

	var existing models.Project
	if err := r.get(&existing, id); err != nil {
		return err
	}

	// Dependent rows go first so the cache never holds orphans. The
	// remote store cascades on its own foreign keys.
	for _, kind := range []models.Kind{models.KindTask, models.KindChatRoom, models.KindMember} {
		ids, err := r.dependentIDs(kind, id)
		if err != nil {
			return err
		}
		for _, depID := range ids {
			if err := r.cache.Delete(kind, depID); err != nil {
				return err
			}
		}
	}
	if err := r.cache.Delete(models.KindProject, id); err != nil {
		return err
	}

	r.enqueuePush(models.KindProject, syncer.OpDelete, id)
	return nil
}

func (r *ProjectRepository) dependentIDs(kind models.Kind, projectID string) ([]string, error) {
	var ids []string
	switch kind {
	case models.KindTask:
		var rows []models.Task
		if err := r.cache.Find(&rows, "project_id = ?", projectID); err != nil {
			return nil, err
		}
		for i := range rows {
			ids = append(ids, rows[i].ID)
		}
	case models.KindChatRoom:
		var rows []models.ChatRoom
		if err := r.cache.Find(&rows, "project_id = ?", projectID); err != nil {
			return nil, err
		}
		for i := range rows {
			ids = append(ids, rows[i].ID)
		}
	case models.KindMember:
		var rows []models.Member
		if err := r.cache.Find(&rows, "project_id = ?", projectID); err != nil {
			return nil, err
		}
		for i := range rows {
			ids = append(ids, rows[i].ID)
		}
	}
	return ids, nil
}

// Get reads a project from the local cache; it never touches the
// network. Callers needing guaranteed freshness run a project sync
// first.
func (r *ProjectRepository) Get(id string) (*models.Project, error) {
	var project models.Project
	if err := r.get(&project, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListForUser returns the projects the user actively belongs to, from
// the local cache.
func (r *ProjectRepository) ListForUser(userID string) ([]models.Project, error) {
	var memberships []models.Member
	if err := r.cache.Find(&memberships, "user_id = ? AND is_active = ?", userID, true); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for i := range memberships {
		ids = append(ids, memberships[i].ProjectID)
	}

	var projects []models.Project
	if err := r.cache.GetMany(&projects, ids); err != nil {
		return nil, err
	}
	return projects, nil
}

// Watch emits the user's project list now and after every project or
// membership write in the cache; the list depends on both.
func (r *ProjectRepository) Watch(ctx context.Context, userID string) <-chan []models.Project {
	return cache.Observe(ctx, r.cache, func() ([]models.Project, error) {
		return r.ListForUser(userID)
	}, models.KindProject, models.KindMember)
}

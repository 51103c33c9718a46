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

// TaskRepository manages tasks, including assignment under the role
// hierarchy with role snapshots captured at assignment time.
type TaskRepository struct {
	base
}

func NewTaskRepository(localCache cache.Store, queue syncer.Queue) *TaskRepository {
	return &TaskRepository{base: base{cache: localCache, queue: queue}}
}

// Create commits a new task locally and returns immediately; the
// creator's role is snapshotted onto the task. An initial assignee, if
// set, is validated like Assign.
func (r *TaskRepository) Create(task *models.Task, actorID string) (*models.Task, error) {
	if task.ProjectID == "" {
		return nil, &ValidationError{Reason: "task must belong to a project"}
	}
	if task.Title == "" {
		return nil, &ValidationError{Reason: "task title is required"}
	}

	actor, err := r.membership(task.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	if d := permission.Check(actor, models.CapCreateTasks); !d.Allowed {
		return nil, &PermissionError{Reason: d.Reason}
	}

	now := time.Now()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = models.TaskTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	task.CreatorID = actorID
	task.CreatorRole = actor.Role
	task.CreatedAt = now
	task.UpdatedAt = now

	if task.AssigneeID != nil {
		assignee, err := r.membership(task.ProjectID, *task.AssigneeID)
		if err != nil {
			if err == ErrNotAMember {
				return nil, &ValidationError{Reason: "assignee is not an active member of the project"}
			}
			return nil, err
		}
		if d := permission.CanAssignTask(actor.Role, assignee.Role); !d.Allowed {
			return nil, &PermissionError{Reason: d.Reason}
		}
		role := assignee.Role
		task.AssigneeRole = &role
	}

	task.MarkDirty()
	if err := r.cache.Put(task); err != nil {
		return nil, err
	}

	r.enqueuePush(models.KindTask, syncer.OpCreate, task.ID)
	return task, nil
}

// Update replaces the task's editable fields. Creator identity and
// both role snapshots are preserved from the stored row; they are
// historical facts, not editable state.
func (r *TaskRepository) Update(task *models.Task, actorID string) (*models.Task, error) {
	var existing models.Task
	if err := r.get(&existing, task.ID); err != nil {
		return nil, err
	}

	actor, err := r.membership(existing.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	if d := permission.Check(actor, models.CapCreateTasks); !d.Allowed {
		return nil, &PermissionError{Reason: d.Reason}
	}

	existing.Title = task.Title
	existing.Description = task.Description
	if task.Status != "" {
		existing.Status = task.Status
	}
	if task.Priority != "" {
		existing.Priority = task.Priority
	}
	existing.ChatRoomID = task.ChatRoomID
	existing.DueAt = task.DueAt
	existing.UpdatedAt = time.Now()
	existing.MarkDirty()

	if err := r.cache.Put(&existing); err != nil {
		return nil, err
	}

	r.enqueuePush(models.KindTask, syncer.OpUpdate, existing.ID)
	return &existing, nil
}

// UpdateStatus moves a task through its workflow.
func (r *TaskRepository) UpdateStatus(id string, status models.TaskStatus, actorID string) error {
	var existing models.Task
	if err := r.get(&existing, id); err != nil {
		return err
	}

	actor, err := r.membership(existing.ProjectID, actorID)
	if err != nil {
		return err
	}
	if d := permission.Check(actor, models.CapCreateTasks); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}

	existing.Status = status
	existing.UpdatedAt = time.Now()
	existing.MarkDirty()

	if err := r.cache.Put(&existing); err != nil {
		return err
	}

	r.enqueuePush(models.KindTask, syncer.OpUpdate, id)
	return nil
}

// Assign delegates a task. The hierarchy check uses the current roles
// of both actor and assignee; the assignee's role is then snapshotted
// onto the task, so a later role change does not rewrite history.
func (r *TaskRepository) Assign(id, assigneeID, actorID string) error {
	var existing models.Task
	if err := r.get(&existing, id); err != nil {
		return err
	}

	actor, err := r.membership(existing.ProjectID, actorID)
	if err != nil {
		return err
	}
	if d := permission.Check(actor, models.CapAssignTasks); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}

	assignee, err := r.membership(existing.ProjectID, assigneeID)
	if err != nil {
		if err == ErrNotAMember {
			return &ValidationError{Reason: "assignee is not an active member of the project"}
		}
		return err
	}

	if d := permission.CanAssignTask(actor.Role, assignee.Role); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}

	role := assignee.Role
	existing.AssigneeID = &assigneeID
	existing.AssigneeRole = &role
	existing.UpdatedAt = time.Now()
	existing.MarkDirty()

	if err := r.cache.Put(&existing); err != nil {
		return err
	}

	r.enqueuePush(models.KindTask, syncer.OpUpdate, id)
	return nil
}

// Delete removes a task. Creators may delete their own tasks; deleting
// someone else's requires manager or above.
func (r *TaskRepository) Delete(id string, actorID string) error {
	var existing models.Task
	if err := r.get(&existing, id); err != nil {
		return err
	}

	actor, err := r.membership(existing.ProjectID, actorID)
	if err != nil {
		return err
	}
	if existing.CreatorID != actorID && actor.Role.Weight() < models.RoleManager.Weight() {
		return &PermissionError{Reason: "only the creator or a manager can delete this task"}
	}

	if err := r.cache.Delete(models.KindTask, id); err != nil {
		return err
	}

	r.enqueuePush(models.KindTask, syncer.OpDelete, id)
	return nil
}

// Get reads a task from the local cache; it never touches the network.
func (r *TaskRepository) Get(id string) (*models.Task, error) {
	var task models.Task
	if err := r.get(&task, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns a project's tasks from the local cache.
func (r *TaskRepository) List(projectID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.cache.Find(&tasks, "project_id = ?", projectID); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Watch emits the project's task list now and after every task write
// in the cache.
func (r *TaskRepository) Watch(ctx context.Context, projectID string) <-chan []models.Task {
	return cache.Observe(ctx, r.cache, func() ([]models.Task, error) {
		return r.List(projectID)
	}, models.KindTask)
}

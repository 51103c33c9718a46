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

// ChatRoomRepository manages a project's discussion threads.
type ChatRoomRepository struct {
	base
}

func NewChatRoomRepository(localCache cache.Store, queue syncer.Queue) *ChatRoomRepository {
	return &ChatRoomRepository{base: base{cache: localCache, queue: queue}}
}

// Create commits a new chat room locally and returns immediately. Any
// active member may open a room.
func (r *ChatRoomRepository) Create(room *models.ChatRoom, actorID string) (*models.ChatRoom, error) {
	if room.ProjectID == "" {
		return nil, &ValidationError{Reason: "chat room must belong to a project"}
	}
	if room.Name == "" {
		return nil, &ValidationError{Reason: "chat room name is required"}
	}

	actor, err := r.membership(room.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	if d := permission.Check(actor, models.CapCreateRooms); !d.Allowed {
		return nil, &PermissionError{Reason: d.Reason}
	}

	now := time.Now()
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.CreatedBy = actorID
	room.CreatedAt = now
	room.UpdatedAt = now
	room.MarkDirty()

	if err := r.cache.Put(room); err != nil {
		return nil, err
	}

	r.enqueuePush(models.KindChatRoom, syncer.OpCreate, room.ID)
	return room, nil
}

// Rename changes a room's name. Manager or above.
func (r *ChatRoomRepository) Rename(id, name, actorID string) error {
	if name == "" {
		return &ValidationError{Reason: "chat room name is required"}
	}

	var existing models.ChatRoom
	if err := r.get(&existing, id); err != nil {
		return err
	}

	actor, err := r.membership(existing.ProjectID, actorID)
	if err != nil {
		return err
	}
	if d := permission.Check(actor, models.CapManageRooms); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}

	existing.Name = name
	existing.UpdatedAt = time.Now()
	existing.MarkDirty()

	if err := r.cache.Put(&existing); err != nil {
		return err
	}

	r.enqueuePush(models.KindChatRoom, syncer.OpUpdate, id)
	return nil
}

// Delete removes a room. Manager or above. Tasks keep their room
// reference locally; the pull reconciliation clears stale links the
// next time the remote resolves them.
func (r *ChatRoomRepository) Delete(id string, actorID string) error {
	var existing models.ChatRoom
	if err := r.get(&existing, id); err != nil {
		return err
	}

	actor, err := r.membership(existing.ProjectID, actorID)
	if err != nil {
		return err
	}
	if d := permission.Check(actor, models.CapManageRooms); !d.Allowed {
		return &PermissionError{Reason: d.Reason}
	}

	if err := r.cache.Delete(models.KindChatRoom, id); err != nil {
		return err
	}

	r.enqueuePush(models.KindChatRoom, syncer.OpDelete, id)
	return nil
}

// Get reads a room from the local cache.
func (r *ChatRoomRepository) Get(id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.get(&room, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// List returns a project's rooms from the local cache.
func (r *ChatRoomRepository) List(projectID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := r.cache.Find(&rooms, "project_id = ?", projectID); err != nil {
		return nil, err
	}
	return rooms, nil
}

// Watch emits the project's room list now and after every room write
// in the cache.
func (r *ChatRoomRepository) Watch(ctx context.Context, projectID string) <-chan []models.ChatRoom {
	return cache.Observe(ctx, r.cache, func() ([]models.ChatRoom, error) {
		return r.List(projectID)
	}, models.KindChatRoom)
}

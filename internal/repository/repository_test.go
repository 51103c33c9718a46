package repository

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/harborstudio/teamsync/internal/cache"
	"github.com/harborstudio/teamsync/internal/models"
	"github.com/harborstudio/teamsync/internal/syncer"
)

// captureQueue records push tasks without executing them, standing in
// for a network that never answers.
type captureQueue struct {
	mu    sync.Mutex
	tasks []*syncer.PushTask
}

func (q *captureQueue) Enqueue(task *syncer.PushTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *captureQueue) IsAsync() bool { return false }

func (q *captureQueue) Close() error { return nil }

func (q *captureQueue) all() []*syncer.PushTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*syncer.PushTask(nil), q.tasks...)
}

func (q *captureQueue) ops(kind models.Kind) []syncer.PushOp {
	var ops []syncer.PushOp
	for _, task := range q.all() {
		if task.Kind == kind {
			ops = append(ops, task.Op)
		}
	}
	return ops
}

func newEnv(t *testing.T) (*cache.DB, *captureQueue) {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, &captureQueue{}
}

// seedProject plants an already-synced project row, as a pull would.
func seedProject(t *testing.T, db *cache.DB, id, ownerID string) {
	t.Helper()
	now := time.Now()
	project := &models.Project{ID: id, OwnerID: ownerID, Name: "seeded", Status: models.ProjectActive, CreatedAt: now, UpdatedAt: now}
	project.LastSyncedAt = &now
	if err := db.Put(project); err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
}

// seedMember plants an already-synced active membership row.
func seedMember(t *testing.T, db *cache.DB, projectID, userID string, role models.Role) {
	t.Helper()
	now := time.Now()
	member := &models.Member{
		ID:        projectID + ":" + userID,
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		IsActive:  true,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	member.LastSyncedAt = &now
	if err := db.Put(member); err != nil {
		t.Fatalf("seed member %s/%s: %v", projectID, userID, err)
	}
}

package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/harborstudio/teamsync/internal/models"
	"github.com/harborstudio/teamsync/internal/remote"
	"github.com/harborstudio/teamsync/internal/retry"
)

func fkViolation() error {
	return &pgconn.PgError{
		Code:   "23503",
		Detail: `Key (project_id)=(p1) is not present in table "projects".`,
	}
}

func TestPusher_CreateConfirmsRow(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	pusher := NewPusher(local, rem, retry.WithInitialDelay(time.Millisecond))

	task := &models.Task{ID: "t1", ProjectID: "p1", Title: "ship it", CreatorID: "u1", CreatorRole: models.RoleAdmin}
	task.MarkDirty()
	if err := local.Put(task); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := pusher.Process(context.Background(), &PushTask{Kind: models.KindTask, Op: OpCreate, ID: "t1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	var got models.Task
	if err := local.Get(&got, "t1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Dirty {
		t.Error("confirmed row should not be dirty")
	}
	if got.LastSyncedAt == nil {
		t.Error("confirmed row should carry a sync timestamp")
	}
	if got.SyncError != "" {
		t.Errorf("sync error = %q, want empty", got.SyncError)
	}
	if n := rem.count("insert"); n != 1 {
		t.Errorf("remote inserts = %d, want 1", n)
	}
}

func TestPusher_DependencyNotReady_RetriesThenSucceeds(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	pusher := NewPusher(local, rem, retry.WithInitialDelay(time.Millisecond))

	member := &models.Member{ID: "m1", ProjectID: "p1", UserID: "u2", Role: models.RoleMember, IsActive: true}
	member.MarkDirty()
	if err := local.Put(member); err != nil {
		t.Fatalf("put: %v", err)
	}

	// The parent project's push lands between attempts.
	rem.failTimes(models.KindMember, fkViolation(), 2)

	err := pusher.Process(context.Background(), &PushTask{Kind: models.KindMember, Op: OpCreate, ID: "m1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if n := rem.count("insert"); n != 3 {
		t.Errorf("remote inserts = %d, want 3", n)
	}
	var got models.Member
	if err := local.Get(&got, "m1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Dirty {
		t.Error("row should be confirmed after the retry succeeds")
	}
}

func TestPusher_DependencyNotReady_ExhaustedKeepsRowDirty(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	pusher := NewPusher(local, rem, retry.WithInitialDelay(time.Millisecond))

	member := &models.Member{ID: "m1", ProjectID: "p1", UserID: "u2", Role: models.RoleMember, IsActive: true}
	member.MarkDirty()
	if err := local.Put(member); err != nil {
		t.Fatalf("put: %v", err)
	}
	rem.failAlways(models.KindMember, fkViolation())

	err := pusher.Process(context.Background(), &PushTask{Kind: models.KindMember, Op: OpCreate, ID: "m1"})
	if err != nil {
		t.Errorf("push failures are absorbed, got %v", err)
	}

	if n := rem.count("insert"); n != retry.DefaultMaxAttempts {
		t.Errorf("remote inserts = %d, want %d", n, retry.DefaultMaxAttempts)
	}
	var got models.Member
	if err := local.Get(&got, "m1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Dirty {
		t.Error("unconfirmed row must stay dirty")
	}
	if got.SyncError != string(remote.ClassDependencyNotReady) {
		t.Errorf("sync error = %q, want %q", got.SyncError, remote.ClassDependencyNotReady)
	}
}

func TestPusher_PermissionDenied_SingleAttempt(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	pusher := NewPusher(local, rem, retry.WithInitialDelay(time.Millisecond))

	task := &models.Task{ID: "t1", ProjectID: "p1", Title: "ship it", CreatorID: "u1", CreatorRole: models.RoleAdmin}
	task.MarkDirty()
	if err := local.Put(task); err != nil {
		t.Fatalf("put: %v", err)
	}
	rem.failAlways(models.KindTask, &pgconn.PgError{Code: "42501"})

	err := pusher.Process(context.Background(), &PushTask{Kind: models.KindTask, Op: OpCreate, ID: "t1"})
	if err != nil {
		t.Errorf("push failures are absorbed, got %v", err)
	}

	if n := rem.count("insert"); n != 1 {
		t.Errorf("remote inserts = %d, want 1", n)
	}
	var got models.Task
	if err := local.Get(&got, "t1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Dirty {
		t.Error("denied row must stay dirty")
	}
	if got.SyncError != string(remote.ClassPermissionDenied) {
		t.Errorf("sync error = %q, want %q", got.SyncError, remote.ClassPermissionDenied)
	}
}

// gatedRemote holds every insert until released, so a test can write
// to the cache while a push is in flight.
type gatedRemote struct {
	*fakeRemote
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRemote) Insert(ctx context.Context, entity models.Entity) error {
	g.entered <- struct{}{}
	<-g.release
	return g.fakeRemote.Insert(ctx, entity)
}

func TestPusher_EditDuringPushStaysDirty(t *testing.T) {
	local := openTestCache(t)
	rem := &gatedRemote{
		fakeRemote: newFakeRemote(t),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	pusher := NewPusher(local, rem)

	now := time.Now()
	task := &models.Task{
		ID: "t1", ProjectID: "p1", Title: "first draft",
		CreatorID: "u1", CreatorRole: models.RoleAdmin,
		UpdatedAt: now,
	}
	task.MarkDirty()
	if err := local.Put(task); err != nil {
		t.Fatalf("put: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- pusher.Process(context.Background(), &PushTask{Kind: models.KindTask, Op: OpCreate, ID: "t1"})
	}()

	// While the push holds the first draft, a newer edit lands.
	<-rem.entered
	edit := &models.Task{
		ID: "t1", ProjectID: "p1", Title: "second draft",
		CreatorID: "u1", CreatorRole: models.RoleAdmin,
		UpdatedAt: now.Add(time.Minute),
	}
	edit.MarkDirty()
	if err := local.Put(edit); err != nil {
		t.Fatalf("put edit: %v", err)
	}
	close(rem.release)

	if err := <-done; err != nil {
		t.Fatalf("process: %v", err)
	}

	var got models.Task
	if err := local.Get(&got, "t1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "second draft" {
		t.Errorf("title = %q, want the newer edit kept", got.Title)
	}
	if !got.Dirty {
		t.Error("edited row must stay dirty until its own push lands")
	}
}

func TestPusher_RepushedCreateLandsAsUpdate(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	pusher := NewPusher(local, rem, retry.WithInitialDelay(time.Millisecond))

	// The first attempt reached the server but its acknowledgment was
	// lost, so the row is still dirty and never-synced locally.
	rem.seed(t, &models.Task{ID: "t1", ProjectID: "p1", Title: "first draft", CreatorID: "u1", CreatorRole: models.RoleAdmin})

	task := &models.Task{ID: "t1", ProjectID: "p1", Title: "second draft", CreatorID: "u1", CreatorRole: models.RoleAdmin}
	task.MarkDirty()
	if err := local.Put(task); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := pusher.Process(context.Background(), &PushTask{Kind: models.KindTask, Op: OpCreate, ID: "t1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	var onRemote models.Task
	if err := rem.db.First(&onRemote, "id = ?", "t1").Error; err != nil {
		t.Fatalf("remote row: %v", err)
	}
	if onRemote.Title != "second draft" {
		t.Errorf("remote title = %q, want the replayed state", onRemote.Title)
	}
	var got models.Task
	if err := local.Get(&got, "t1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Dirty {
		t.Error("replayed create should confirm the row")
	}
}

func TestPusher_RowDeletedBeforePush(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	pusher := NewPusher(local, rem)

	err := pusher.Process(context.Background(), &PushTask{Kind: models.KindTask, Op: OpUpdate, ID: "gone"})
	if err != nil {
		t.Errorf("missing row should be a no-op, got %v", err)
	}
	if n := rem.count("update"); n != 0 {
		t.Errorf("remote updates = %d, want 0", n)
	}
}

func TestPusher_CleanRowSkipped(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	pusher := NewPusher(local, rem)

	task := &models.Task{ID: "t1", ProjectID: "p1", Title: "ship it", CreatorID: "u1", CreatorRole: models.RoleAdmin}
	now := time.Now()
	task.LastSyncedAt = &now
	if err := local.Put(task); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := pusher.Process(context.Background(), &PushTask{Kind: models.KindTask, Op: OpUpdate, ID: "t1"})
	if err != nil {
		t.Errorf("clean row should be a no-op, got %v", err)
	}
	if n := rem.count("update"); n != 0 {
		t.Errorf("remote updates = %d, want 0", n)
	}
}

func TestPusher_Delete(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	rem.seed(t, &models.ChatRoom{ID: "r1", ProjectID: "p1", Name: "general"})
	pusher := NewPusher(local, rem)

	err := pusher.Process(context.Background(), &PushTask{Kind: models.KindChatRoom, Op: OpDelete, ID: "r1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	var rooms []models.ChatRoom
	if err := rem.db.Find(&rooms, "id = ?", "r1").Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rooms) != 0 {
		t.Error("remote row should be deleted")
	}
}

func TestLocalQueue_RunsProcessor(t *testing.T) {
	queue := NewLocalQueue()

	var mu sync.Mutex
	var seen []*PushTask
	done := make(chan struct{}, 1)
	queue.SetProcessor(func(ctx context.Context, task *PushTask) error {
		mu.Lock()
		seen = append(seen, task)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	if queue.IsAsync() {
		t.Error("local queue should not report async")
	}
	if err := queue.Enqueue(&PushTask{Kind: models.KindTask, Op: OpCreate, ID: "t1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor was not invoked")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0].ID != "t1" {
		t.Errorf("seen = %+v, want one task t1", seen)
	}
}

func TestLocalQueue_NoProcessorDropsTask(t *testing.T) {
	queue := NewLocalQueue()
	if err := queue.Enqueue(&PushTask{Kind: models.KindTask, Op: OpCreate, ID: "t1"}); err != nil {
		t.Errorf("enqueue without processor should not error, got %v", err)
	}
}

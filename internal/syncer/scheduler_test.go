package syncer

import (
	"testing"

	"github.com/harborstudio/teamsync/internal/models"
)

func TestScheduler_RunOnceFlushesThenPulls(t *testing.T) {
	local := openTestCache(t)
	rem := newFakeRemote(t)
	queue := &recordQueue{}
	seedWorkspace(t, rem)

	draft := &models.Task{ID: "t-draft", ProjectID: "p1", Title: "draft", CreatorID: "u1", CreatorRole: models.RoleAdmin}
	draft.MarkDirty()
	if err := local.Put(draft); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	s := NewScheduler(NewOrchestrator(local, rem, queue), "u1", "*/5 * * * *")
	s.runOnce()

	tasks := queue.all()
	if len(tasks) != 1 || tasks[0].ID != "t-draft" || tasks[0].Op != OpCreate {
		t.Errorf("flushed pushes = %+v, want one create for t-draft", tasks)
	}

	var pulled models.Task
	if err := local.Get(&pulled, "t1"); err != nil {
		t.Errorf("pull did not land: %v", err)
	}
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(NewOrchestrator(openTestCache(t), newFakeRemote(t), nil), "u1", "not a cron spec")
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("invalid cron spec should be rejected")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(NewOrchestrator(openTestCache(t), newFakeRemote(t), nil), "u1", "@every 1h")
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
}

package repository

import (
	"errors"
	"testing"

	"github.com/harborstudio/teamsync/internal/models"
	"github.com/harborstudio/teamsync/internal/syncer"
)

func TestChatRoomCreate(t *testing.T) {
	db, queue := newEnv(t)
	repo := NewChatRoomRepository(db, queue)
	seedProject(t, db, "p1", "u1")
	seedMember(t, db, "p1", "u1", models.RoleMember)

	created, err := repo.Create(&models.ChatRoom{ProjectID: "p1", Name: "general"}, "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CreatedBy != "u1" {
		t.Errorf("created by = %q, want u1", created.CreatedBy)
	}
	if !created.Dirty {
		t.Error("fresh room should be pending sync")
	}

	ops := queue.ops(models.KindChatRoom)
	if len(ops) != 1 || ops[0] != syncer.OpCreate {
		t.Errorf("room pushes = %v, want one create", ops)
	}
}

func TestChatRoomCreate_RequiresName(t *testing.T) {
	db, queue := newEnv(t)
	repo := NewChatRoomRepository(db, queue)

	_, err := repo.Create(&models.ChatRoom{ProjectID: "p1"}, "u1")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("want *ValidationError, got %v", err)
	}
}

func TestChatRoomRename_MemberDenied(t *testing.T) {
	db, queue := newEnv(t)
	repo := NewChatRoomRepository(db, queue)
	seedProject(t, db, "p1", "u1")
	seedMember(t, db, "p1", "u1", models.RoleManager)
	seedMember(t, db, "p1", "u2", models.RoleMember)

	created, err := repo.Create(&models.ChatRoom{ProjectID: "p1", Name: "general"}, "u2")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = repo.Rename(created.ID, "renamed", "u2")
	var pErr *PermissionError
	if !errors.As(err, &pErr) {
		t.Fatalf("member rename: want *PermissionError, got %v", err)
	}

	if err := repo.Rename(created.ID, "renamed", "u1"); err != nil {
		t.Fatalf("manager rename: %v", err)
	}
	got, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("name = %q, want renamed", got.Name)
	}
}

func TestChatRoomDelete(t *testing.T) {
	db, queue := newEnv(t)
	repo := NewChatRoomRepository(db, queue)
	seedProject(t, db, "p1", "u1")
	seedMember(t, db, "p1", "u1", models.RoleManager)

	created, err := repo.Create(&models.ChatRoom{ProjectID: "p1", Name: "general"}, "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(created.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}

	ops := queue.ops(models.KindChatRoom)
	if len(ops) != 2 || ops[1] != syncer.OpDelete {
		t.Errorf("room pushes = %v, want create then delete", ops)
	}
}

func TestChatRoomList(t *testing.T) {
	db, queue := newEnv(t)
	repo := NewChatRoomRepository(db, queue)
	seedProject(t, db, "p1", "u1")
	seedProject(t, db, "p2", "u1")
	seedMember(t, db, "p1", "u1", models.RoleMember)
	seedMember(t, db, "p2", "u1", models.RoleMember)

	if _, err := repo.Create(&models.ChatRoom{ProjectID: "p1", Name: "a"}, "u1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(&models.ChatRoom{ProjectID: "p1", Name: "b"}, "u1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(&models.ChatRoom{ProjectID: "p2", Name: "c"}, "u1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rooms, err := repo.List("p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("rooms = %d, want 2", len(rooms))
	}
}

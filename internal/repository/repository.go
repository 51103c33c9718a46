// Package repository implements the hybrid write path: every mutation
// is permission-checked, committed to the local cache synchronously,
// and propagated to the remote store in the background. By the time
// any mutating method returns, a read on the same repository sees the
// new state, whatever the network is doing.
package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/harborstudio/teamsync/internal/cache"
	"github.com/harborstudio/teamsync/internal/models"
	"github.com/harborstudio/teamsync/internal/syncer"
	"github.com/harborstudio/teamsync/pkg/logger"
)

// base carries the pieces every entity repository shares.
type base struct {
	cache cache.Store
	queue syncer.Queue
}

// membership loads the actor's active membership in a project from the
// local cache. Absence maps to ErrNotAMember.
func (b *base) membership(projectID, userID string) (*models.Member, error) {
	var members []models.Member
	err := b.cache.Find(&members, "project_id = ? AND user_id = ? AND is_active = ?", projectID, userID, true)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrNotAMember
	}
	return &members[0], nil
}

// activeMembers loads every active membership row of a project.
func (b *base) activeMembers(projectID string) ([]models.Member, error) {
	var members []models.Member
	err := b.cache.Find(&members, "project_id = ? AND is_active = ?", projectID, true)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// enqueuePush schedules the background remote propagation of a local
// write. Enqueue failures are logged, never surfaced: the row is dirty
// in the cache and a later flush will pick it up.
func (b *base) enqueuePush(kind models.Kind, op syncer.PushOp, id string) {
	if b.queue == nil {
		return
	}
	if err := b.queue.Enqueue(&syncer.PushTask{Kind: kind, Op: op, ID: id}); err != nil {
		logger.Warnf("[Repository] failed to enqueue %s push for %s %s: %v", op, kind, id, err)
	}
}

// get loads one row from the cache, mapping absence to ErrNotFound.
func (b *base) get(dest any, id string) error {
	if err := b.cache.Get(dest, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Package syncer propagates local mutations to the remote store
// (push) and reconciles remote state into the local cache (pull).
// Pulls run per entity kind, in parallel, with partial-success
// semantics: one kind's failure never cancels another's pull.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/harborstudio/teamsync/internal/cache"
	"github.com/harborstudio/teamsync/internal/models"
	"github.com/harborstudio/teamsync/internal/remote"
	"github.com/harborstudio/teamsync/pkg/logger"
)

// Orchestrator coordinates bulk synchronization across entity kinds.
// Different kinds own disjoint tables, so concurrent pulls never write
// the same cache row.
type Orchestrator struct {
	cache  cache.Store
	remote remote.Store
	queue  Queue
}

func NewOrchestrator(localCache cache.Store, remoteStore remote.Store, queue Queue) *Orchestrator {
	return &Orchestrator{
		cache:  localCache,
		remote: remoteStore,
		queue:  queue,
	}
}

// SyncAll pulls authoritative state for every project the user belongs
// to: projects (with membership rows), chat rooms and tasks, each kind
// on its own goroutine. The run always finishes; per-kind failures are
// reported in the returned progress record.
func (o *Orchestrator) SyncAll(ctx context.Context, userID string) *Progress {
	progress := newProgress()
	progress.State = StateRunning

	projectIDs := o.projectIDs(ctx, userID)

	var wg sync.WaitGroup
	var mu sync.Mutex

	run := func(pull func() error, assign func(*Progress, KindResult)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pull()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assign(progress, failed(err))
			} else {
				assign(progress, succeeded())
			}
		}()
	}

	run(func() error { return o.pullProjects(ctx, projectIDs) },
		func(p *Progress, r KindResult) { p.Projects = r })
	run(func() error { return o.pullChatRooms(ctx, projectIDs) },
		func(p *Progress, r KindResult) { p.ChatRooms = r })
	run(func() error { return o.pullTasks(ctx, projectIDs) },
		func(p *Progress, r KindResult) { p.Tasks = r })

	wg.Wait()
	progress.finish()

	logger.Info().
		Str("user_id", userID).
		Str("state", string(progress.State)).
		Int("succeeded", progress.SuccessCount()).
		Int("failed", progress.ErrorCount()).
		Msg("full sync finished")
	return progress
}

// SyncProject pulls one project's members, chat rooms and tasks in
// parallel, with the same partial-success contract as SyncAll.
func (o *Orchestrator) SyncProject(ctx context.Context, projectID string) *Progress {
	progress := newProgress()
	progress.State = StateRunning

	// Refresh the project row itself before fanning out; a failure
	// here is not fatal, the per-kind pulls still run.
	var project models.Project
	if err := o.remote.SelectByID(ctx, &project, projectID); err == nil {
		if err := o.merge(&project); err != nil {
			logger.Warnf("[Syncer] failed to cache project %s: %v", projectID, err)
		}
	}

	ids := []string{projectID}

	var wg sync.WaitGroup
	var mu sync.Mutex

	run := func(pull func() error, assign func(*Progress, KindResult)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pull()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assign(progress, failed(err))
			} else {
				assign(progress, succeeded())
			}
		}()
	}

	run(func() error { return o.pullMembers(ctx, ids) },
		func(p *Progress, r KindResult) { p.Members = r })
	run(func() error { return o.pullChatRooms(ctx, ids) },
		func(p *Progress, r KindResult) { p.ChatRooms = r })
	run(func() error { return o.pullTasks(ctx, ids) },
		func(p *Progress, r KindResult) { p.Tasks = r })

	wg.Wait()
	progress.finish()

	logger.Info().
		Str("project_id", projectID).
		Str("state", string(progress.State)).
		Msg("project sync finished")
	return progress
}

// FlushPending re-enqueues a push for every dirty row. This is the
// externally-triggered "next sync attempt" for rows whose push failed
// with NetworkUnavailable or exhausted its retries.
func (o *Orchestrator) FlushPending(ctx context.Context) error {
	if o.queue == nil {
		return nil
	}

	flushed := 0
	for _, kind := range models.AllKinds() {
		ids, ops, err := o.pendingRows(kind)
		if err != nil {
			return err
		}
		for i, id := range ids {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := o.queue.Enqueue(&PushTask{Kind: kind, Op: ops[i], ID: id}); err != nil {
				logger.Warnf("[Syncer] failed to enqueue pending %s %s: %v", kind, id, err)
				continue
			}
			flushed++
		}
	}

	if flushed > 0 {
		logger.Infof("[Syncer] re-enqueued %d pending pushes", flushed)
	}
	return nil
}

// projectIDs resolves the projects the user actively belongs to,
// preferring the remote membership rows and falling back to the local
// cache when the remote store is unreachable.
func (o *Orchestrator) projectIDs(ctx context.Context, userID string) []string {
	var memberships []models.Member
	err := o.remote.SelectByFilter(ctx, &memberships, "user_id = ? AND is_active = ?", userID, true)
	if err != nil {
		logger.Warnf("[Syncer] membership lookup failed, using cached memberships: %v", err)
		memberships = nil
		if cacheErr := o.cache.Find(&memberships, "user_id = ? AND is_active = ?", userID, true); cacheErr != nil {
			logger.Errorf("[Syncer] cached membership lookup failed: %v", cacheErr)
			return nil
		}
	} else {
		for i := range memberships {
			if mergeErr := o.merge(&memberships[i]); mergeErr != nil {
				logger.Warnf("[Syncer] failed to cache membership %s: %v", memberships[i].ID, mergeErr)
			}
		}
	}

	ids := make([]string, 0, len(memberships))
	seen := make(map[string]struct{}, len(memberships))
	for i := range memberships {
		id := memberships[i].ProjectID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// pullProjects pulls the project rows and the full membership rows of
// those projects. Memberships travel with the projects kind because
// every permission check reads them.
func (o *Orchestrator) pullProjects(ctx context.Context, projectIDs []string) error {
	if len(projectIDs) == 0 {
		return nil
	}

	var projects []models.Project
	if err := o.remote.SelectByFilter(ctx, &projects, "id IN ?", projectIDs); err != nil {
		return err
	}
	kept := make(map[string]struct{}, len(projects))
	for i := range projects {
		if err := o.merge(&projects[i]); err != nil {
			return err
		}
		kept[projects[i].ID] = struct{}{}
	}
	if err := o.reconcile(models.KindProject, kept, "id IN ?", projectIDs); err != nil {
		return err
	}

	return o.pullMembers(ctx, projectIDs)
}

func (o *Orchestrator) pullMembers(ctx context.Context, projectIDs []string) error {
	if len(projectIDs) == 0 {
		return nil
	}

	var members []models.Member
	if err := o.remote.SelectByFilter(ctx, &members, "project_id IN ?", projectIDs); err != nil {
		return err
	}
	kept := make(map[string]struct{}, len(members))
	for i := range members {
		if err := o.merge(&members[i]); err != nil {
			return err
		}
		kept[members[i].ID] = struct{}{}
	}
	return o.reconcile(models.KindMember, kept, "project_id IN ?", projectIDs)
}

func (o *Orchestrator) pullChatRooms(ctx context.Context, projectIDs []string) error {
	if len(projectIDs) == 0 {
		return nil
	}

	var rooms []models.ChatRoom
	if err := o.remote.SelectByFilter(ctx, &rooms, "project_id IN ?", projectIDs); err != nil {
		return err
	}
	kept := make(map[string]struct{}, len(rooms))
	for i := range rooms {
		if err := o.merge(&rooms[i]); err != nil {
			return err
		}
		kept[rooms[i].ID] = struct{}{}
	}
	return o.reconcile(models.KindChatRoom, kept, "project_id IN ?", projectIDs)
}

func (o *Orchestrator) pullTasks(ctx context.Context, projectIDs []string) error {
	if len(projectIDs) == 0 {
		return nil
	}

	var tasks []models.Task
	if err := o.remote.SelectByFilter(ctx, &tasks, "project_id IN ?", projectIDs); err != nil {
		return err
	}
	kept := make(map[string]struct{}, len(tasks))
	for i := range tasks {
		if err := o.merge(&tasks[i]); err != nil {
			return err
		}
		kept[tasks[i].ID] = struct{}{}
	}
	return o.reconcile(models.KindTask, kept, "project_id IN ?", projectIDs)
}

// merge writes a pulled row into the cache under last-writer-wins: a
// dirty local row with an equal or newer update timestamp is kept (its
// own push will carry it up); anything else is overwritten and marked
// synced.
func (o *Orchestrator) merge(pulled models.Entity) error {
	existing, ok := pulled.Kind().New().(models.Entity)
	if ok {
		if err := o.cache.Get(existing, pulled.EntityID()); err == nil {
			if existing.Meta().Dirty && !existing.Modified().Before(pulled.Modified()) {
				return nil
			}
		}
	}

	pulled.Meta().MarkSynced(time.Now())
	return o.cache.Put(pulled)
}

// reconcile deletes local rows of the kind, within the pulled scope,
// that the remote store no longer has. Dirty rows are exempt: they are
// local creations still waiting to push.
func (o *Orchestrator) reconcile(kind models.Kind, kept map[string]struct{}, scope string, args ...any) error {
	type row struct {
		ID    string
		Dirty bool `gorm:"column:pending_sync"`
	}

	var local []row
	conds := append([]any{scope}, args...)
	switch kind {
	case models.KindProject:
		var rows []models.Project
		if err := o.cache.Find(&rows, conds...); err != nil {
			return err
		}
		for i := range rows {
			local = append(local, row{ID: rows[i].ID, Dirty: rows[i].Dirty})
		}
	case models.KindMember:
		var rows []models.Member
		if err := o.cache.Find(&rows, conds...); err != nil {
			return err
		}
		for i := range rows {
			local = append(local, row{ID: rows[i].ID, Dirty: rows[i].Dirty})
		}
	case models.KindChatRoom:
		var rows []models.ChatRoom
		if err := o.cache.Find(&rows, conds...); err != nil {
			return err
		}
		for i := range rows {
			local = append(local, row{ID: rows[i].ID, Dirty: rows[i].Dirty})
		}
	case models.KindTask:
		var rows []models.Task
		if err := o.cache.Find(&rows, conds...); err != nil {
			return err
		}
		for i := range rows {
			local = append(local, row{ID: rows[i].ID, Dirty: rows[i].Dirty})
		}
	}

	for _, r := range local {
		if r.Dirty {
			continue
		}
		if _, ok := kept[r.ID]; ok {
			continue
		}
		if err := o.cache.Delete(kind, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// pendingRows lists the dirty rows of a kind with the push op each
// needs: rows never acknowledged push as creates, the rest as updates.
func (o *Orchestrator) pendingRows(kind models.Kind) ([]string, []PushOp, error) {
	var ids []string
	var ops []PushOp

	appendRow := func(id string, lastSynced *time.Time) {
		ids = append(ids, id)
		if lastSynced == nil {
			ops = append(ops, OpCreate)
		} else {
			ops = append(ops, OpUpdate)
		}
	}

	switch kind {
	case models.KindProject:
		var rows []models.Project
		if err := o.cache.Find(&rows, "pending_sync = ?", true); err != nil {
			return nil, nil, err
		}
		for i := range rows {
			appendRow(rows[i].ID, rows[i].LastSyncedAt)
		}
	case models.KindMember:
		var rows []models.Member
		if err := o.cache.Find(&rows, "pending_sync = ?", true); err != nil {
			return nil, nil, err
		}
		for i := range rows {
			appendRow(rows[i].ID, rows[i].LastSyncedAt)
		}
	case models.KindChatRoom:
		var rows []models.ChatRoom
		if err := o.cache.Find(&rows, "pending_sync = ?", true); err != nil {
			return nil, nil, err
		}
		for i := range rows {
			appendRow(rows[i].ID, rows[i].LastSyncedAt)
		}
	case models.KindTask:
		var rows []models.Task
		if err := o.cache.Find(&rows, "pending_sync = ?", true); err != nil {
			return nil, nil, err
		}
		for i := range rows {
			appendRow(rows[i].ID, rows[i].LastSyncedAt)
		}
	}

	return ids, ops, nil
}

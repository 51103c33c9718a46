package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/harborstudio/teamsync/internal/cache"
	"github.com/harborstudio/teamsync/internal/models"
	"github.com/harborstudio/teamsync/internal/remote"
	"github.com/harborstudio/teamsync/internal/retry"
	"github.com/harborstudio/teamsync/pkg/logger"
)

// Pusher executes outbound push tasks: it re-reads the row from the
// cache, propagates it to the remote store through the retry policy,
// and records the outcome on the row's sync metadata. Push failures
// never surface to the caller that made the local write.
type Pusher struct {
	cache     cache.Store
	remote    remote.Store
	retryOpts []retry.Option
}

func NewPusher(localCache cache.Store, remoteStore remote.Store, retryOpts ...retry.Option) *Pusher {
	return &Pusher{
		cache:     localCache,
		remote:    remoteStore,
		retryOpts: retryOpts,
	}
}

// Process runs one push task. The returned error is for queue
// observability only; by the time Process returns, the row's sync
// metadata already reflects the outcome.
func (p *Pusher) Process(ctx context.Context, task *PushTask) error {
	if task.Op == OpDelete {
		return p.pushDelete(ctx, task)
	}

	entity, ok := task.Kind.New().(models.Entity)
	if !ok {
		return fmt.Errorf("unknown kind %q", task.Kind)
	}

	if err := p.cache.Get(entity, task.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Row deleted locally after this push was enqueued; the
			// delete's own push task covers it.
			return nil
		}
		return err
	}

	if !entity.Meta().Dirty {
		// Already confirmed by an earlier push of a newer edit.
		return nil
	}

	var op func(context.Context) error
	switch task.Op {
	case OpCreate:
		op = func(ctx context.Context) error { return p.remote.Insert(ctx, entity) }
	case OpUpdate:
		op = func(ctx context.Context) error { return p.remote.Update(ctx, entity) }
	default:
		return fmt.Errorf("unknown push op %q", task.Op)
	}

	// Outcomes are recorded on the sync columns only, conditioned on
	// the row being unchanged since the snapshot was read. An edit made
	// while the push was in flight keeps the row dirty and its content
	// intact; that edit's own push carries the newer state.
	if err := retry.Do(ctx, op, p.retryOpts...); err != nil {
		classified := remote.Classify(err)
		meta := *entity.Meta()
		meta.MarkFailed(string(classified.Class))
		if ackErr := p.cache.AckSync(task.Kind, task.ID, meta, entity.Modified()); ackErr != nil {
			logger.Errorf("[Pusher] failed to record push failure for %s %s: %v", task.Kind, task.ID, ackErr)
		}
		logger.Warn().
			Str("kind", string(task.Kind)).
			Str("id", task.ID).
			Str("class", string(classified.Class)).
			Err(classified.Err).
			Msg("push failed, row stays local-only")
		return nil
	}

	meta := *entity.Meta()
	meta.MarkSynced(time.Now())
	if err := p.cache.AckSync(task.Kind, task.ID, meta, entity.Modified()); err != nil {
		return err
	}

	logger.Debug().
		Str("kind", string(task.Kind)).
		Str("id", task.ID).
		Str("op", string(task.Op)).
		Msg("push confirmed")
	return nil
}

func (p *Pusher) pushDelete(ctx context.Context, task *PushTask) error {
	op := func(ctx context.Context) error {
		return p.remote.Delete(ctx, task.Kind, task.ID)
	}
	if err := retry.Do(ctx, op, p.retryOpts...); err != nil {
		classified := remote.Classify(err)
		logger.Warn().
			Str("kind", string(task.Kind)).
			Str("id", task.ID).
			Str("class", string(classified.Class)).
			Err(classified.Err).
			Msg("remote delete failed, will reconcile on next pull")
		return nil
	}
	return nil
}

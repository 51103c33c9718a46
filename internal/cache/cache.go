// Package cache is the local durable store: the materialized,
// queryable copy of every entity used by the application. All
// operations complete locally and never fail due to connectivity.
package cache

import (
	"context"
	"time"

	"github.com/harborstudio/teamsync/internal/models"
)

// Store is the local cache port consumed by the repositories and the
// sync orchestrator. Writes are serialized per row by the underlying
// store; callers never take their own locks over the cache.
type Store interface {
	// Get loads the row with the given id into dest (a pointer to an
	// entity struct). Returns gorm.ErrRecordNotFound when absent.
	Get(dest any, id string) error
	// GetMany loads the rows with the given ids into dest (a pointer
	// to a slice). Missing ids are skipped, not errors.
	GetMany(dest any, ids []string) error
	// Find loads all rows matching the conditions into dest (a pointer
	// to a slice).
	Find(dest any, conds ...any) error
	// Put upserts the entity, replacing any existing row with the same
	// id, and wakes observers of the entity's kind.
	Put(entity models.Entity) error
	// Delete removes the row with the given id and wakes observers.
	// Deleting an absent row is a no-op.
	Delete(kind models.Kind, id string) error
	// AckSync writes only the row's sync metadata, and only when the
	// row's update timestamp still equals modified. A row edited since
	// that snapshot is left untouched, dirty flag included, so the
	// newer edit's own push can carry it.
	AckSync(kind models.Kind, id string, meta models.SyncMeta, modified time.Time) error
	// Subscribe returns a channel that receives one tick immediately
	// and another after every write to the kind, until ctx ends.
	// Ticks are coalesced; slow consumers see at least the latest.
	Subscribe(ctx context.Context, kind models.Kind) <-chan struct{}
}

// Observe runs query after every write to any of the given kinds and
// emits the result, so each subscriber receives the current snapshot
// immediately and a new snapshot after every write that may affect the
// query. The channel closes when ctx ends.
func Observe[T any](ctx context.Context, s Store, query func() ([]T, error), kinds ...models.Kind) <-chan []T {
	out := make(chan []T, 1)
	merged := make(chan struct{}, 1)

	for _, kind := range kinds {
		ticks := s.Subscribe(ctx, kind)
		go func() {
			for range ticks {
				select {
				case merged <- struct{}{}:
				default:
				}
			}
		}()
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-merged:
				rows, err := query()
				if err != nil {
					continue
				}
				select {
				case out <- rows:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

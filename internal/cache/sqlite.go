package cache

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harborstudio/teamsync/internal/models"
)

// DB is the sqlite-backed Store implementation.
type DB struct {
	db  *gorm.DB
	hub *hub
}

// Open opens (or creates) the cache database at path and migrates the
// entity tables.
func Open(path string) (*DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Project{},
		&models.Member{},
		&models.ChatRoom{},
		&models.Task{},
	); err != nil {
		return nil, err
	}

	return &DB{db: db, hub: newHub()}, nil
}

// Close closes the underlying database handle.
func (c *DB) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *DB) Get(dest any, id string) error {
	return c.db.First(dest, "id = ?", id).Error
}

func (c *DB) GetMany(dest any, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.db.Find(dest, "id IN ?", ids).Error
}

func (c *DB) Find(dest any, conds ...any) error {
	return c.db.Find(dest, conds...).Error
}

func (c *DB) Put(entity models.Entity) error {
	err := c.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(entity).Error
	if err != nil {
		return err
	}
	c.hub.notify(entity.Kind())
	return nil
}

func (c *DB) Delete(kind models.Kind, id string) error {
	model := kind.New()
	if model == nil {
		return gorm.ErrInvalidValue
	}
	if err := c.db.Delete(model, "id = ?", id).Error; err != nil {
		return err
	}
	c.hub.notify(kind)
	return nil
}

// AckSync records a push outcome on the row's sync columns. The write
// is conditioned on the update timestamp still matching the pushed
// snapshot; a row edited while its push was in flight keeps its state.
// UpdateColumns keeps gorm from touching updated_at on the way.
func (c *DB) AckSync(kind models.Kind, id string, meta models.SyncMeta, modified time.Time) error {
	model := kind.New()
	if model == nil {
		return gorm.ErrInvalidValue
	}
	err := c.db.Model(model).
		Where("id = ? AND updated_at = ?", id, modified).
		UpdateColumns(map[string]any{
			"pending_sync":   meta.Dirty,
			"last_synced_at": meta.LastSyncedAt,
			"sync_error":     meta.SyncError,
		}).Error
	if err != nil {
		return err
	}
	c.hub.notify(kind)
	return nil
}

func (c *DB) Subscribe(ctx context.Context, kind models.Kind) <-chan struct{} {
	return c.hub.subscribe(ctx, kind)
}

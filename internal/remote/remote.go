// Package remote is the authoritative store port: per-table CRUD over
// the network, with classified failures. It never retries internally;
// the retry policy layers above it.
package remote

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harborstudio/teamsync/internal/config"
	"github.com/harborstudio/teamsync/internal/models"
)

// Store is the remote-store port. Every call is bounded by the
// configured per-call timeout on top of the caller's context, and
// returns either nil or a *SyncError.
type Store interface {
	Insert(ctx context.Context, entity models.Entity) error
	Update(ctx context.Context, entity models.Entity) error
	Delete(ctx context.Context, kind models.Kind, id string) error
	SelectByID(ctx context.Context, dest models.Entity, id string) error
	// SelectByFilter loads matching rows into dest, a pointer to an
	// entity slice.
	SelectByFilter(ctx context.Context, dest any, conds ...any) error
}

// syncMetaColumns are local-only bookkeeping; they never travel to the
// remote store.
var syncMetaColumns = []string{"pending_sync", "last_synced_at", "sync_error"}

// Client implements Store over a relational backend reached through
// the network (postgres or mysql, matching the configured driver).
type Client struct {
	db      *gorm.DB
	timeout time.Duration
	limiter *rate.Limiter
	guard   *tokenGuard
}

// Dial connects to the remote store. The connection is lazy in the
// underlying driver; a dead network surfaces per-call, classified as
// NetworkUnavailable, not here.
func Dial(cfg *config.RemoteConfig) (*Client, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported remote driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		db:      db,
		timeout: timeout,
		limiter: limiter,
		guard:   newTokenGuard(cfg.AccessToken),
	}, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SetAccessToken replaces the bearer token used for row-level
// authorization checks.
func (c *Client) SetAccessToken(token string) {
	c.guard.SetToken(token)
}

// begin applies the shared preconditions for every remote call: token
// validity, rate limit, and the per-call timeout.
func (c *Client) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.guard.check(time.Now()); err != nil {
		return nil, nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, Classify(err)
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	return callCtx, cancel, nil
}

func (c *Client) Insert(ctx context.Context, entity models.Entity) error {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	// An insert may be a replay: the original attempt can succeed on
	// the server while its acknowledgment is lost, leaving the row
	// dirty locally. Landing on the existing id as an update keeps the
	// replay from wedging on a duplicate key.
	err = c.db.WithContext(callCtx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Omit(syncMetaColumns...).
		Create(entity).Error
	if err != nil {
		return Classify(err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, entity models.Entity) error {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	err = c.db.WithContext(callCtx).
		Model(entity).
		Where("id = ?", entity.EntityID()).
		Select("*").
		Omit(syncMetaColumns...).
		Updates(entity).Error
	if err != nil {
		return Classify(err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, kind models.Kind, id string) error {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	model := kind.New()
	if model == nil {
		return &SyncError{Class: ClassUnknown, Err: fmt.Errorf("unknown kind %q", kind)}
	}
	err = c.db.WithContext(callCtx).Delete(model, "id = ?", id).Error
	if err != nil {
		return Classify(err)
	}
	return nil
}

func (c *Client) SelectByID(ctx context.Context, dest models.Entity, id string) error {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	err = c.db.WithContext(callCtx).First(dest, "id = ?", id).Error
	if err != nil {
		return Classify(err)
	}
	return nil
}

func (c *Client) SelectByFilter(ctx context.Context, dest any, conds ...any) error {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	err = c.db.WithContext(callCtx).Find(dest, conds...).Error
	if err != nil {
		return Classify(err)
	}
	return nil
}

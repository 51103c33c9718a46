package syncer

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/harborstudio/teamsync/internal/config"
	"github.com/harborstudio/teamsync/pkg/logger"
)

// Queue is the outbound mutation queue. Enqueue never blocks on the
// network beyond the broker round-trip: the originating local write
// has already committed by the time a task is enqueued.
type Queue interface {
	// Enqueue schedules a push. Failures are the caller's to log; they
	// never roll back the local write.
	Enqueue(task *PushTask) error
	// IsAsync returns true if the queue hands tasks to a broker-backed
	// worker rather than running them in-process.
	IsAsync() bool
	// Close gracefully shuts down the queue.
	Close() error
}

// NewQueue builds the queue from config: asynq-backed when Redis is
// enabled and reachable, otherwise an in-process fallback running the
// given processor.
func NewQueue(cfg *config.RedisConfig, processor func(context.Context, *PushTask) error) Queue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err != nil {
			logger.Infof("[SyncQueue] Redis unavailable, falling back to in-process mode: %v", err)
		} else {
			logger.Infof("[SyncQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
	} else {
		logger.Infof("[SyncQueue] In-process queue initialized (Redis disabled)")
	}

	local := NewLocalQueue()
	local.SetProcessor(processor)
	return local
}

// AsyncQueue implements Queue using asynq (Redis-based).
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-backed queue.
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Test connection by pinging Redis
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(task *PushTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypePush, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		// The pusher absorbs remote failures after recording them on
		// the row, so asynq's own retry only covers worker crashes.
		asynq.MaxRetry(1),
	)
	if err != nil {
		return err
	}

	logger.Debug().
		Str("task_id", info.ID).
		Str("entity_id", task.ID).
		Str("kind", string(task.Kind)).
		Str("op", string(task.Op)).
		Msg("push enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// LocalQueue implements Queue without a broker: each push runs on its
// own goroutine so the originating call never waits on the network.
type LocalQueue struct {
	processor func(context.Context, *PushTask) error
}

func NewLocalQueue() *LocalQueue {
	return &LocalQueue{}
}

// SetProcessor sets the function that executes pushes.
func (q *LocalQueue) SetProcessor(processor func(context.Context, *PushTask) error) {
	q.processor = processor
}

func (q *LocalQueue) Enqueue(task *PushTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, push dropped: %s %s", task.Kind, task.ID)
		return nil
	}

	go func() {
		ctx := context.Background()
		if err := q.processor(ctx, task); err != nil {
			logger.Infof("[SyncQueue] push failed: %v", err)
		}
	}()

	return nil
}

func (q *LocalQueue) IsAsync() bool {
	return false
}

func (q *LocalQueue) Close() error {
	return nil
}

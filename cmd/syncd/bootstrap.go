package main

import (
	"github.com/harborstudio/teamsync/internal/cache"
	"github.com/harborstudio/teamsync/internal/config"
	"github.com/harborstudio/teamsync/internal/remote"
	"github.com/harborstudio/teamsync/internal/repository"
	"github.com/harborstudio/teamsync/internal/retry"
	"github.com/harborstudio/teamsync/internal/syncer"
	"github.com/harborstudio/teamsync/pkg/logger"
)

// engine holds the constructed sync engine. Construction happens once
// here; lifecycle is the shell's responsibility, and nothing in the
// engine reaches for global state.
type engine struct {
	cache        *cache.DB
	remote       *remote.Client
	queue        syncer.Queue
	worker       *syncer.Worker
	orchestrator *syncer.Orchestrator
	scheduler    *syncer.Scheduler

	Projects  *repository.ProjectRepository
	Members   *repository.MemberRepository
	ChatRooms *repository.ChatRoomRepository
	Tasks     *repository.TaskRepository
}

// bootstrap wires cache, remote store, queue, worker and scheduler.
func bootstrap(cfg *config.Config, userID string) (*engine, error) {
	localCache, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	remoteStore, err := remote.Dial(&cfg.Remote)
	if err != nil {
		localCache.Close()
		return nil, err
	}

	retryOpts := []retry.Option{
		retry.WithMaxAttempts(cfg.Sync.MaxAttempts),
		retry.WithInitialDelay(cfg.Sync.InitialDelay),
	}
	pusher := syncer.NewPusher(localCache, remoteStore, retryOpts...)

	queue := syncer.NewQueue(&cfg.Redis, pusher.Process)

	var worker *syncer.Worker
	if queue.IsAsync() {
		worker = syncer.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(pusher.Process)
			if err := worker.Start(); err != nil {
				logger.Warnf("Failed to start sync worker: %v", err)
			}
		}
	}

	orchestrator := syncer.NewOrchestrator(localCache, remoteStore, queue)

	scheduler := syncer.NewScheduler(orchestrator, userID, cfg.Sync.CronSpec)
	if err := scheduler.Start(); err != nil {
		logger.Warnf("Failed to start sync scheduler: %v", err)
	}

	return &engine{
		cache:        localCache,
		remote:       remoteStore,
		queue:        queue,
		worker:       worker,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		Projects:     repository.NewProjectRepository(localCache, queue),
		Members:      repository.NewMemberRepository(localCache, queue),
		ChatRooms:    repository.NewChatRoomRepository(localCache, queue),
		Tasks:        repository.NewTaskRepository(localCache, queue),
	}, nil
}

// shutdown stops background work and closes both stores.
func (e *engine) shutdown() {
	e.scheduler.Stop()
	if e.worker != nil {
		e.worker.Stop()
	}
	if e.queue != nil {
		e.queue.Close()
	}
	if err := e.remote.Close(); err != nil {
		logger.Warnf("Failed to close remote store: %v", err)
	}
	if err := e.cache.Close(); err != nil {
		logger.Warnf("Failed to close cache: %v", err)
	}
	logger.Info().Msg("Sync engine stopped")
}

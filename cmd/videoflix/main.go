package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videoflix/config"
	"videoflix/internal/adapter/storage/sqlite"
	"videoflix/internal/adapter/transcoder/ffmpeg"
	"videoflix/internal/domain"
	"videoflix/internal/infrastructure/logger"
	"videoflix/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}

	logger.Info.Printf("starting videoflix, media_root=%s workers=%d", cfg.MediaRoot, cfg.Workers)

	if err := os.MkdirAll(cfg.MediaRoot, 0755); err != nil {
		logger.Error.Printf("failed to create media root: %v", err)
		os.Exit(1)
	}

	store, err := sqlite.NewStore(cfg.MediaRoot)
	if err != nil {
		logger.Error.Printf("failed to create store: %v", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	videos := sqlite.NewVideoStore(store)
	jobQueue := sqlite.NewJobQueue(store)
	bus := service.NewEventBus()
	transcoder := ffmpeg.NewTranscoder(cfg.FFmpegBin)
	reconciler := service.NewReconciler(cfg.MediaRoot)
	catalog := service.NewCatalogService(videos, reconciler, bus)

	coordinator := service.NewCoordinator(videos, jobQueue, transcoder, bus,
		domain.DefaultLadder(), cfg.MediaRoot, cfg.JobTimeout, cfg.FinalizeTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coordinator.Start(ctx, bus)

	workerPool := service.NewWorkerPool(jobQueue, coordinator, cfg.Workers)
	workerPool.Start(ctx)

	ingestor := service.NewIngestor(catalog, cfg.MediaRoot)
	ingestor.Start(ctx)

	// Finished jobs are fire-and-forget; sweep old ones periodically.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := jobQueue.PruneFinished(24 * time.Hour); err != nil {
					logger.Error.Printf("prune finished jobs: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info.Printf("received %s, shutting down", sig)

	// Stop workers. An interrupted job stays running in the queue and is
	// requeued by ResetStalled at the next startup.
	cancel()
	workerPool.Wait()

	logger.Info.Printf("shutdown complete")
}

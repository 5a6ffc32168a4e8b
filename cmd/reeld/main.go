package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"reel/internal/api"
	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/history"
	"reel/internal/logging"
	"reel/internal/profiles"
	"reel/internal/queue"
	ffmpegsvc "reel/internal/services/ffmpeg"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := bootstrap(cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("reeld shutting down")
}

func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	var recorder *history.Store
	storeOpts := []queue.StoreOption{}
	if cfg.History.Enabled {
		hist, err := history.Open(cfg, logger)
		if err != nil {
			return nil, err
		}
		recorder = hist
		storeOpts = append(storeOpts, queue.WithRecorder(hist))
	}

	store := queue.NewStore(logger, storeOpts...)
	registry := queue.NewRegistry()
	if err := ffmpegsvc.NewProcessor(cfg, logger).Register(registry); err != nil {
		return nil, err
	}

	pool := queue.NewPool(store, registry, logger,
		queue.WithWorkers(cfg.Workers.Count),
		queue.WithQueueCapacity(cfg.Workers.QueueCapacity),
		queue.WithPollTimeout(cfg.PollTimeout()),
		queue.WithProgressBuffer(cfg.Workers.ProgressBuffer))

	catalog, err := profiles.Load(cfg.Profiles.Path)
	if err != nil {
		return nil, err
	}
	service := api.NewJobService(pool, store, registry, catalog)

	return daemon.New(cfg, pool, service, recorder, logger)
}

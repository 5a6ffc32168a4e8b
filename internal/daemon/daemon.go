package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reel/internal/api"
	"reel/internal/config"
	"reel/internal/deps"
	"reel/internal/history"
	"reel/internal/logging"
	"reel/internal/queue"
)

// Daemon coordinates the worker pool and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	pool    *queue.Pool
	service *api.JobService
	history *history.Store

	lockPath string
	lock     *flock.Flock

	apiSrv *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. The history store
// may be nil when disabled.
func New(cfg *config.Config, pool *queue.Pool, service *api.JobService, hist *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || pool == nil || service == nil {
		return nil, errors.New("daemon requires config, pool, and job service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.StateDir, "reeld.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		pool:     pool,
		service:  service,
		history:  hist,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.apiSrv = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the workers, and begins serving
// the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reel daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.pool.Start(runCtx, 0); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workers: %w", err)
	}
	if d.apiSrv != nil {
		if err := d.apiSrv.start(runCtx); err != nil {
			cancel()
			d.pool.Stop()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API, drains the workers, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.apiSrv != nil {
		d.apiSrv.stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pool.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Addr returns the bound API address, or empty before Start.
func (d *Daemon) Addr() string {
	if d.apiSrv == nil {
		return ""
	}
	return d.apiSrv.addr()
}

// Status reports daemon runtime information.
func (d *Daemon) Status() api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workers:      d.cfg.Workers.Count,
		Operations:   d.service.Operations(),
		Stats:        d.service.Stats(),
		Dependencies: api.FromDependencies(deps.Check(deps.ForConfig(d.cfg))),
		LockFilePath: d.lockPath,
	}
	if d.history != nil {
		status.HistoryPath = d.history.Path()
	}
	return status
}

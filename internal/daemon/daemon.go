// Package daemon ties the scheduler and monitor API into a single lifecycle
// with flock-based locking so only one pipeline instance runs per data
// directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scriptflow/internal/config"
	"scriptflow/internal/logging"
	"scriptflow/internal/objectstore"
	"scriptflow/internal/scheduler"
	"scriptflow/internal/session"
)

// Daemon owns the background scheduler and the monitor HTTP server.
type Daemon struct {
	cfg    *config.Config
	store  *session.Store
	sched  *scheduler.Scheduler
	blobs  objectstore.Store
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	server   *http.Server
	listener net.Listener

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *session.Store, sched *scheduler.Scheduler, blobs objectstore.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || sched == nil || blobs == nil {
		return nil, errors.New("daemon requires config, store, scheduler, and blob store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "scriptflowd.lock")
	return &Daemon{
		cfg:      cfg,
		store:    store,
		sched:    sched,
		blobs:    blobs,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, starts the scheduler, and begins serving
// the monitor API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scriptflow daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.sched.Start(runCtx)

	listener, err := net.Listen("tcp", d.cfg.Monitor.Bind)
	if err != nil {
		d.sched.Stop()
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("bind monitor api: %w", err)
	}
	d.listener = listener
	server := &http.Server{
		Handler:      d.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	d.server = server
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			d.logger.Error("monitor api server failed", logging.Error(serveErr))
		}
	}()

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("monitor", listener.Addr().String()))
	return nil
}

// Stop shuts down the monitor API, stops the scheduler, and releases the
// instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("monitor api shutdown failed", logging.Error(err))
		}
		cancel()
		d.server = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sched.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the session store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool { return d.running.Load() }

// MonitorAddr returns the bound monitor API address, or empty when stopped.
func (d *Daemon) MonitorAddr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

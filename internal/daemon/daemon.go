package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"goa.design/clue/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// #region types
// ServiceName is the health service reported alongside the server-wide "".
const ServiceName = "sentinel.Scheduler"

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another sentinel daemon is already running")

// Scheduler is the part of schedule.Scheduler the daemon drives.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// Config locates the lock file and the health listener. An empty HealthAddr
// disables the health server.
type Config struct {
	LockPath   string
	HealthAddr string
}

// #endregion types

// #region daemon
// Daemon holds the single-instance lock, runs the scheduler and reports its
// state over gRPC health.
type Daemon struct {
	cfg   Config
	sched Scheduler
	lock  *flock.Flock

	mu      sync.Mutex
	running bool
	health  *health.Server
	server  *grpc.Server
	lis     net.Listener
	served  chan error
}

// New builds a daemon around sched.
func New(cfg Config, sched Scheduler) (*Daemon, error) {
	if sched == nil {
		return nil, errors.New("daemon: scheduler is required")
	}
	if cfg.LockPath == "" {
		return nil, errors.New("daemon: lock path is required")
	}
	return &Daemon{cfg: cfg, sched: sched, lock: flock.New(cfg.LockPath)}, nil
}

// Start acquires the lock, opens the health listener and starts the
// scheduler. Any failure releases what was acquired.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already started")
	}

	if err := os.MkdirAll(filepath.Dir(d.cfg.LockPath), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	if d.cfg.HealthAddr != "" {
		if err := d.listen(ctx); err != nil {
			_ = d.lock.Unlock()
			return err
		}
	}

	if err := d.sched.Start(ctx); err != nil {
		d.shutdownHealth()
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}
	d.setStatus(healthpb.HealthCheckResponse_SERVING)
	d.running = true
	log.Infof(ctx, "[DAEMON] started lock=%s health=%s", d.cfg.LockPath, d.Addr())
	return nil
}

func (d *Daemon) listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", d.cfg.HealthAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.cfg.HealthAddr, err)
	}
	d.lis = lis
	d.health = health.NewServer()
	d.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	d.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	d.server = grpc.NewServer()
	healthpb.RegisterHealthServer(d.server, d.health)

	d.served = make(chan error, 1)
	go func() {
		err := d.server.Serve(lis)
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Errorf(ctx, err, "[DAEMON] health server stopped")
		}
		d.served <- err
	}()
	return nil
}

// Stop reports NOT_SERVING, stops the scheduler, shuts the health server
// down and releases the lock.
func (d *Daemon) Stop(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	d.sched.Stop()
	d.shutdownHealth()
	if err := d.lock.Unlock(); err != nil {
		log.Errorf(ctx, err, "[DAEMON] failed to release lock")
	}
	d.running = false
	log.Infof(ctx, "[DAEMON] stopped")
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop(context.WithoutCancel(ctx))
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Addr is the bound health address, or nil without a health server.
func (d *Daemon) Addr() net.Addr {
	if d.lis == nil {
		return nil
	}
	return d.lis.Addr()
}

// #endregion daemon

// #region health
func (d *Daemon) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	if d.health == nil {
		return
	}
	d.health.SetServingStatus("", st)
	d.health.SetServingStatus(ServiceName, st)
}

func (d *Daemon) shutdownHealth() {
	if d.server == nil {
		return
	}
	d.health.Shutdown()
	d.server.GracefulStop()
	<-d.served
	d.server, d.health, d.lis = nil, nil, nil
}

// #endregion health

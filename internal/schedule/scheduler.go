package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"goa.design/clue/log"
)

// #region types
// Triggers passed to RunFunc.
const (
	TriggerDaily     = "scheduled"
	TriggerQuickScan = "quick_scan"
)

// RunFunc performs one scheduled brief.
type RunFunc func(ctx context.Context, trigger string) error

// Status is reported after every scheduled run attempt.
type Status struct {
	Trigger  string
	Started  time.Time
	Finished time.Time
	Skipped  bool
	Err      error
}

// Config holds the two schedules. A zero QuickScanInterval disables quick
// scans.
type Config struct {
	QuickScanInterval time.Duration
	DailyHour         int
	DailyMinute       int
	Location          *time.Location
}

// ErrRunning is returned by Start on a scheduler that is already running.
var ErrRunning = errors.New("scheduler already running")

// #endregion types

// #region scheduler
// Scheduler fires the daily brief and the periodic quick scan. Runs never
// overlap; a trigger that fires while a run is in flight is skipped.
type Scheduler struct {
	run    RunFunc
	status func(Status)

	mu      sync.Mutex
	cfg     Config
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool

	busy sync.Mutex
}

// NewScheduler validates cfg. status may be nil.
func NewScheduler(cfg Config, run RunFunc, status func(Status)) (*Scheduler, error) {
	if run == nil {
		return nil, errors.New("schedule: run func is required")
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{cfg: cfg, run: run, status: status}, nil
}

func validate(cfg Config) error {
	var errs []error
	if cfg.DailyHour < 0 || cfg.DailyHour > 23 {
		errs = append(errs, fmt.Errorf("daily hour %d out of range", cfg.DailyHour))
	}
	if cfg.DailyMinute < 0 || cfg.DailyMinute > 59 {
		errs = append(errs, fmt.Errorf("daily minute %d out of range", cfg.DailyMinute))
	}
	if cfg.QuickScanInterval < 0 {
		errs = append(errs, errors.New("quick scan interval is negative"))
	}
	if cfg.QuickScanInterval > 0 && cfg.QuickScanInterval < time.Second {
		errs = append(errs, errors.New("quick scan interval below one second"))
	}
	return errors.Join(errs...)
}

// Start registers the jobs and starts the cron loop. Runs receive a context
// derived from ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}

	c := cron.NewWithLocation(s.cfg.Location)
	spec := fmt.Sprintf("0 %d %d * * *", s.cfg.DailyMinute, s.cfg.DailyHour)
	if err := c.AddJob(spec, &dailyJob{s: s}); err != nil {
		return fmt.Errorf("schedule daily brief: %w", err)
	}
	if s.cfg.QuickScanInterval > 0 {
		c.Schedule(cron.Every(s.cfg.QuickScanInterval), cron.FuncJob(func() { s.fire(TriggerQuickScan) }))
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = c
	s.running = true
	c.Start()

	log.Infof(ctx, "[SCHED] started daily=%02d:%02d quick=%s tz=%s",
		s.cfg.DailyHour, s.cfg.DailyMinute, s.cfg.QuickScanInterval, s.cfg.Location)
	return nil
}

// Stop halts the cron loop and cancels in-flight runs. It is a no-op on a
// stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.cancel()
	s.running = false
	log.Infof(s.ctx, "[SCHED] stopped")
}

// Restart replaces the schedules with cfg.
func (s *Scheduler) Restart(ctx context.Context, cfg Config) error {
	if err := validate(cfg); err != nil {
		return err
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s.Stop()
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return s.Start(ctx)
}

// Running reports whether the cron loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextBrief returns the next daily brief time, or zero when stopped.
func (s *Scheduler) NextBrief() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	for _, e := range s.cron.Entries() {
		if _, ok := e.Job.(*dailyJob); ok {
			return e.Next
		}
	}
	return time.Time{}
}

// #endregion scheduler

// #region jobs
type dailyJob struct{ s *Scheduler }

func (j *dailyJob) Run() { j.s.fire(TriggerDaily) }

func (s *Scheduler) fire(trigger string) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	st := Status{Trigger: trigger, Started: time.Now()}
	if !s.busy.TryLock() {
		st.Skipped = true
		st.Finished = st.Started
		log.Warnf(ctx, "[SCHED] %s skipped, previous run still in flight", trigger)
		s.report(st)
		return
	}
	defer s.busy.Unlock()

	log.Infof(ctx, "[SCHED] %s firing", trigger)
	st.Err = s.run(ctx, trigger)
	st.Finished = time.Now()
	if st.Err != nil {
		log.Errorf(ctx, st.Err, "[SCHED] %s failed", trigger)
	}
	s.report(st)
}

func (s *Scheduler) report(st Status) {
	if s.status != nil {
		s.status(st)
	}
}

// #endregion jobs

// #region clock
// NextOccurrence returns the first hour:minute strictly after now, in now's
// location.
func NextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// #endregion clock

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"BuzzRadar/internal/domain/repository"
	"BuzzRadar/pkg/cache"
	"BuzzRadar/pkg/logger"
)

const (
	analyticsLockKey   = "lock:analytics_run"
	maintenanceLockKey = "lock:maintenance_run"
)

// AnalyticsJob is one catch-up pass over all active tickers.
type AnalyticsJob interface {
	Run(ctx context.Context) error
}

// Scheduler drives the two cadences: periodic analytics runs and a daily
// maintenance job. Each cadence allows at most one in-flight run; a tick
// arriving while the previous run is still going is skipped, not queued —
// the next run's watermark catch-up covers the gap.
type Scheduler struct {
	analytics   AnalyticsJob
	maintenance AnalyticsJob
	metrics     repository.Metrics
	log         *logger.Logger

	interval        time.Duration
	maintenanceHour int

	// Optional distributed lock so replicated deployments run once per tick.
	locks    cache.Service
	lockTTL  time.Duration
	hasLocks bool

	analyticsBusy   atomic.Bool
	maintenanceBusy atomic.Bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
	now    func() time.Time
}

type Option func(*Scheduler)

// WithDistributedLock makes runs mutually exclusive across replicas.
func WithDistributedLock(locks cache.Service, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.locks = locks
		s.lockTTL = ttl
		s.hasLocks = locks != nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(analytics, maintenance AnalyticsJob, metrics repository.Metrics, log *logger.Logger, interval time.Duration, maintenanceHour int, opts ...Option) *Scheduler {
	s := &Scheduler{
		analytics:       analytics,
		maintenance:     maintenance,
		metrics:         metrics,
		log:             log,
		interval:        interval,
		maintenanceHour: maintenanceHour,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches both cadence loops and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.analyticsLoop(ctx)
	go s.maintenanceLoop(ctx)
}

// Stop cancels the loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// analyticsLoop fires on interval boundaries (hourly by default), aligned
// so runs land just after each bucket closes.
func (s *Scheduler) analyticsLoop(ctx context.Context) {
	defer s.wg.Done()

	// First run immediately: catch up anything missed while down.
	s.runAnalytics(ctx)

	for {
		next := s.now().UTC().Truncate(s.interval).Add(s.interval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(s.now().UTC())):
			s.runAnalytics(ctx)
		}
	}
}

func (s *Scheduler) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.untilMaintenance()):
			s.runMaintenance(ctx)
		}
	}
}

func (s *Scheduler) untilMaintenance() time.Duration {
	now := s.now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.maintenanceHour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *Scheduler) runAnalytics(ctx context.Context) {
	if !s.analyticsBusy.CompareAndSwap(false, true) {
		s.log.Warn("analytics run still in flight, skipping tick")
		s.metrics.RecordRun("analytics", "skipped")
		return
	}
	defer s.analyticsBusy.Store(false)

	if !s.acquire(ctx, analyticsLockKey) {
		s.metrics.RecordRun("analytics", "skipped")
		return
	}
	defer s.release(ctx, analyticsLockKey)

	if err := s.analytics.Run(ctx); err != nil {
		s.metrics.RecordRun("analytics", "failed")
		s.log.Error("analytics run failed", logger.Error(err))
		return
	}
	s.metrics.RecordRun("analytics", "succeeded")
}

func (s *Scheduler) runMaintenance(ctx context.Context) {
	if !s.maintenanceBusy.CompareAndSwap(false, true) {
		s.metrics.RecordRun("maintenance", "skipped")
		return
	}
	defer s.maintenanceBusy.Store(false)

	if !s.acquire(ctx, maintenanceLockKey) {
		s.metrics.RecordRun("maintenance", "skipped")
		return
	}
	defer s.release(ctx, maintenanceLockKey)

	if err := s.maintenance.Run(ctx); err != nil {
		s.metrics.RecordRun("maintenance", "failed")
		s.log.Error("maintenance run failed", logger.Error(err))
		return
	}
	s.metrics.RecordRun("maintenance", "succeeded")
}

func (s *Scheduler) acquire(ctx context.Context, key string) bool {
	if !s.hasLocks {
		return true
	}
	ok, err := s.locks.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		// Lock backend down: run anyway, single-instance deployments must
		// not stall on Redis.
		s.log.Warn("lock backend unavailable, proceeding", logger.Error(err))
		return true
	}
	if !ok {
		s.log.Debug("another replica holds the run lock", logger.String("key", key))
	}
	return ok
}

func (s *Scheduler) release(ctx context.Context, key string) {
	if !s.hasLocks {
		return
	}
	if err := s.locks.Unlock(ctx, key); err != nil {
		s.log.Warn("release run lock", logger.Error(err))
	}
}

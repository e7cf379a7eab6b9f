package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"BuzzRadar/pkg/logger"
)

type countingJob struct {
	runs  atomic.Int32
	block chan struct{}
}

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
		}
	}
	return nil
}

type noopMetrics struct {
	skipped atomic.Int32
}

func (m *noopMetrics) RecordRun(kind, status string) {
	if status == "skipped" {
		m.skipped.Add(1)
	}
}
func (m *noopMetrics) RecordTicker(string)                  {}
func (m *noopMetrics) RecordAggregateWritten()              {}
func (m *noopMetrics) RecordAlertTransition(string, string) {}
func (m *noopMetrics) SetActiveAlerts(string, int)          {}
func (m *noopMetrics) RecordError(string)                   {}
func (m *noopMetrics) RecordLatency(string, float64)        {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestRunAnalyticsAtMostOneInFlight(t *testing.T) {
	job := &countingJob{block: make(chan struct{})}
	metrics := &noopMetrics{}
	s := New(job, &countingJob{}, metrics, testLogger(t), time.Hour, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.runAnalytics(ctx)
		close(done)
	}()

	// Wait until the first run is actually inside Run.
	deadline := time.After(time.Second)
	for job.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// A second tick while the first is in flight must be skipped.
	s.runAnalytics(ctx)
	if got := job.runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1 (overlapping tick must be skipped)", got)
	}
	if metrics.skipped.Load() != 1 {
		t.Fatalf("skipped = %d, want 1", metrics.skipped.Load())
	}

	close(job.block)
	<-done

	// After the first run completes, the next tick runs.
	s.runAnalytics(ctx)
	if got := job.runs.Load(); got != 2 {
		t.Fatalf("runs = %d, want 2", got)
	}
}

func TestUntilMaintenance(t *testing.T) {
	s := New(&countingJob{}, &countingJob{}, &noopMetrics{}, testLogger(t), time.Hour, 2,
		WithClock(func() time.Time {
			return time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
		}))
	if got := s.untilMaintenance(); got != 3*time.Hour {
		t.Fatalf("until maintenance = %v, want 3h", got)
	}

	s.now = func() time.Time {
		return time.Date(2026, 3, 1, 1, 30, 0, 0, time.UTC)
	}
	if got := s.untilMaintenance(); got != 30*time.Minute {
		t.Fatalf("until maintenance = %v, want 30m", got)
	}

	// Exactly at the maintenance hour: schedule tomorrow, not now.
	s.now = func() time.Time {
		return time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	}
	if got := s.untilMaintenance(); got != 24*time.Hour {
		t.Fatalf("until maintenance = %v, want 24h", got)
	}
}

func TestStartStop(t *testing.T) {
	job := &countingJob{}
	s := New(job, &countingJob{}, &noopMetrics{}, testLogger(t), time.Hour, 2)

	s.Start(context.Background())

	deadline := time.After(time.Second)
	for job.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("startup analytics run never fired")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	s.Stop()
}

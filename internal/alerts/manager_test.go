package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"BuzzRadar/internal/domain/models"
	"BuzzRadar/pkg/logger"
)

type fakeAlertStore struct {
	alerts   map[string]*models.Alert
	saveErrs int
	saves    int
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: make(map[string]*models.Alert)}
}

func (s *fakeAlertStore) key(ticker string, rule models.AlertRule) string {
	return ticker + "/" + string(rule)
}

func (s *fakeAlertStore) Active(_ context.Context, ticker string, rule models.AlertRule) (*models.Alert, error) {
	a, ok := s.alerts[s.key(ticker, rule)]
	if !ok || !a.IsActive {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAlertStore) Save(_ context.Context, alert *models.Alert) error {
	s.saves++
	if s.saveErrs > 0 {
		s.saveErrs--
		return errors.New("transient store error")
	}
	cp := *alert
	s.alerts[s.key(alert.Ticker, alert.Rule)] = &cp
	return nil
}

func (s *fakeAlertStore) List(_ context.Context, ticker string, rule models.AlertRule, activeOnly bool, limit int) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range s.alerts {
		if ticker != "" && a.Ticker != ticker {
			continue
		}
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeAlertStore) ActiveBefore(_ context.Context, cutoff time.Time) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range s.alerts {
		if a.IsActive && a.TriggeredAt.Before(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakePublisher struct {
	published []*models.AlertTransition
}

func (p *fakePublisher) Publish(_ context.Context, tr *models.AlertTransition) error {
	p.published = append(p.published, tr)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordRun(string, string)             {}
func (noopMetrics) RecordTicker(string)                  {}
func (noopMetrics) RecordAggregateWritten()              {}
func (noopMetrics) RecordAlertTransition(string, string) {}
func (noopMetrics) SetActiveAlerts(string, int)          {}
func (noopMetrics) RecordError(string)                   {}
func (noopMetrics) RecordLatency(string, float64)        {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testManager(t *testing.T, store *fakeAlertStore, pub *fakePublisher, now time.Time) *Manager {
	t.Helper()
	log := testLogger(t)
	return New(store, pub, noopMetrics{}, log, 3, 72*time.Hour,
		WithClock(func() time.Time { return now }),
		WithRetry(2, time.Millisecond, 2*time.Millisecond),
	)
}

func anomalousSignal(ticker string, end time.Time) models.Signal {
	return models.Signal{
		Ticker:    ticker,
		Interval:  models.Interval{Start: end.Add(-time.Hour), End: end},
		VolumeZ:   3.1,
		Volume:    models.SeverityAnomalous,
		Sentiment: models.SeverityNormal,
	}
}

func normalSignal(ticker string, end time.Time) models.Signal {
	return models.Signal{
		Ticker:    ticker,
		Interval:  models.Interval{Start: end.Add(-time.Hour), End: end},
		Volume:    models.SeverityNormal,
		Sentiment: models.SeverityNormal,
	}
}

func TestEvaluateOpensAlert(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	store := newFakeAlertStore()
	pub := &fakePublisher{}
	m := testManager(t, store, pub, now)

	trs, err := m.Evaluate(context.Background(), anomalousSignal("GME", now))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(trs) != 1 || trs[0].Action != models.ActionOpened {
		t.Fatalf("expected one opened transition, got %+v", trs)
	}
	a, _ := store.Active(context.Background(), "GME", models.RuleVolumeSpike)
	if a == nil || !a.IsActive {
		t.Fatal("expected active volume_spike alert")
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected one published transition, got %d", len(pub.published))
	}
}

func TestEvaluateDeduplicatesActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	store := newFakeAlertStore()
	m := testManager(t, store, &fakePublisher{}, now)

	ctx := context.Background()
	if _, err := m.Evaluate(ctx, anomalousSignal("GME", now)); err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	first, _ := store.Active(ctx, "GME", models.RuleVolumeSpike)

	trs, err := m.Evaluate(ctx, anomalousSignal("GME", now.Add(time.Hour)))
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if len(trs) != 0 {
		t.Fatalf("duplicate trigger must be suppressed, got %+v", trs)
	}
	second, _ := store.Active(ctx, "GME", models.RuleVolumeSpike)
	if !second.TriggeredAt.Equal(first.TriggeredAt) {
		t.Fatal("triggered_at must not be refreshed by a duplicate trigger")
	}
}

func TestEvaluateHysteresisResolution(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	store := newFakeAlertStore()
	pub := &fakePublisher{}
	m := testManager(t, store, pub, now)
	ctx := context.Background()

	if _, err := m.Evaluate(ctx, anomalousSignal("GME", now)); err != nil {
		t.Fatalf("open: %v", err)
	}

	// Two normals: still active (hysteresis is 3).
	for i := 1; i <= 2; i++ {
		trs, err := m.Evaluate(ctx, normalSignal("GME", now.Add(time.Duration(i)*time.Hour)))
		if err != nil {
			t.Fatalf("normal %d: %v", i, err)
		}
		if len(trs) != 0 {
			t.Fatalf("alert resolved after %d normals, want 3", i)
		}
	}

	// Third consecutive normal resolves.
	trs, err := m.Evaluate(ctx, normalSignal("GME", now.Add(3*time.Hour)))
	if err != nil {
		t.Fatalf("third normal: %v", err)
	}
	if len(trs) != 1 || trs[0].Action != models.ActionResolved {
		t.Fatalf("expected resolved transition, got %+v", trs)
	}
	if a, _ := store.Active(ctx, "GME", models.RuleVolumeSpike); a != nil {
		t.Fatal("alert should be inactive after resolution")
	}
}

func TestEvaluateAnomalyResetsStreak(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	store := newFakeAlertStore()
	m := testManager(t, store, &fakePublisher{}, now)
	ctx := context.Background()

	if _, err := m.Evaluate(ctx, anomalousSignal("GME", now)); err != nil {
		t.Fatalf("open: %v", err)
	}
	// normal, normal, anomalous, normal, normal: never 3 consecutive.
	steps := []models.Signal{
		normalSignal("GME", now.Add(1*time.Hour)),
		normalSignal("GME", now.Add(2*time.Hour)),
		anomalousSignal("GME", now.Add(3*time.Hour)),
		normalSignal("GME", now.Add(4*time.Hour)),
		normalSignal("GME", now.Add(5*time.Hour)),
	}
	for i, sig := range steps {
		trs, err := m.Evaluate(ctx, sig)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if len(trs) != 0 {
			t.Fatalf("step %d produced transition %+v, interrupted streak must not resolve", i, trs)
		}
	}
	if a, _ := store.Active(ctx, "GME", models.RuleVolumeSpike); a == nil {
		t.Fatal("alert must remain active")
	}
}

func TestEvaluateMaxLifetimeExpiry(t *testing.T) {
	opened := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	store := newFakeAlertStore()
	m := testManager(t, store, &fakePublisher{}, opened)
	ctx := context.Background()

	if _, err := m.Evaluate(ctx, anomalousSignal("GME", opened)); err != nil {
		t.Fatalf("open: %v", err)
	}

	// 73 hours later (max age 72h), even an anomalous signal expires the alert.
	late := opened.Add(73 * time.Hour)
	m.now = func() time.Time { return late }
	trs, err := m.Evaluate(ctx, anomalousSignal("GME", late))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(trs) != 1 || trs[0].Action != models.ActionExpired {
		t.Fatalf("expected expired transition, got %+v", trs)
	}
}

func TestExpireSweep(t *testing.T) {
	now := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	store := newFakeAlertStore()
	store.alerts["OLD/volume_spike"] = &models.Alert{
		Ticker: "OLD", Rule: models.RuleVolumeSpike,
		TriggeredAt: now.Add(-80 * time.Hour), IsActive: true,
	}
	store.alerts["NEW/volume_spike"] = &models.Alert{
		Ticker: "NEW", Rule: models.RuleVolumeSpike,
		TriggeredAt: now.Add(-10 * time.Hour), IsActive: true,
	}
	m := testManager(t, store, &fakePublisher{}, now)

	expired, err := m.ExpireSweep(context.Background())
	if err != nil {
		t.Fatalf("ExpireSweep: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}
	if a, _ := store.Active(context.Background(), "OLD", models.RuleVolumeSpike); a != nil {
		t.Fatal("stale alert should be expired")
	}
	if a, _ := store.Active(context.Background(), "NEW", models.RuleVolumeSpike); a == nil {
		t.Fatal("fresh alert must stay active")
	}
}

func TestSaveRetriesTransientErrors(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	store := newFakeAlertStore()
	store.saveErrs = 2
	m := testManager(t, store, &fakePublisher{}, now)

	trs, err := m.Evaluate(context.Background(), anomalousSignal("GME", now))
	if err != nil {
		t.Fatalf("Evaluate should succeed after retries: %v", err)
	}
	if len(trs) != 1 {
		t.Fatalf("expected opened transition after retries, got %+v", trs)
	}
	if store.saves != 3 {
		t.Fatalf("saves = %d, want 3 (two failures then success)", store.saves)
	}
}

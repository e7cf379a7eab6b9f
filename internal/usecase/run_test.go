package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"BuzzRadar/internal/alerts"
	"BuzzRadar/internal/analytics"
	"BuzzRadar/internal/domain/models"
	"BuzzRadar/pkg/logger"
)

type fakeObservationStore struct {
	mu  sync.Mutex
	obs map[string][]*models.Observation

	fetchErrFor string
}

func newFakeObservationStore() *fakeObservationStore {
	return &fakeObservationStore{obs: make(map[string][]*models.Observation)}
}

func (s *fakeObservationStore) Insert(_ context.Context, obs []*models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		s.obs[o.Ticker] = append(s.obs[o.Ticker], o)
	}
	return nil
}

func (s *fakeObservationStore) FetchRange(_ context.Context, ticker string, from, to time.Time) ([]*models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticker == s.fetchErrFor {
		return nil, errors.New("store unavailable")
	}
	var out []*models.Observation
	for _, o := range s.obs[ticker] {
		if !o.Timestamp.Before(from) && o.Timestamp.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeObservationStore) ActiveTickers(_ context.Context, _ time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for t := range s.obs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

type fakeAggregateStore struct {
	mu   sync.Mutex
	rows map[string]map[time.Time]*models.SentimentAggregate
}

func newFakeAggregateStore() *fakeAggregateStore {
	return &fakeAggregateStore{rows: make(map[string]map[time.Time]*models.SentimentAggregate)}
}

func (s *fakeAggregateStore) Upsert(_ context.Context, agg *models.SentimentAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[agg.Ticker] == nil {
		s.rows[agg.Ticker] = make(map[time.Time]*models.SentimentAggregate)
	}
	cp := *agg
	s.rows[agg.Ticker][agg.IntervalStart] = &cp
	return nil
}

func (s *fakeAggregateStore) Window(_ context.Context, ticker string, before time.Time, n int) ([]*models.SentimentAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.SentimentAggregate
	for _, agg := range s.rows[ticker] {
		if agg.IntervalStart.Before(before) {
			out = append(out, agg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IntervalStart.After(out[j].IntervalStart) })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *fakeAggregateStore) Range(_ context.Context, ticker string, from, to time.Time, limit int) ([]*models.SentimentAggregate, error) {
	return s.Window(context.Background(), ticker, to, limit)
}

func (s *fakeAggregateStore) PruneBefore(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rows := range s.rows {
		for start := range rows {
			if start.Before(cutoff) {
				delete(rows, start)
			}
		}
	}
	return nil
}

func (s *fakeAggregateStore) count(ticker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[ticker])
}

type fakeWatermarkStore struct {
	mu    sync.Mutex
	marks map[string]time.Time
}

func newFakeWatermarkStore() *fakeWatermarkStore {
	return &fakeWatermarkStore{marks: make(map[string]time.Time)}
}

func (s *fakeWatermarkStore) Get(_ context.Context, ticker string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marks[ticker], nil
}

func (s *fakeWatermarkStore) Advance(_ context.Context, ticker string, processed time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[ticker] = processed
	return nil
}

type fakeAlertStore2 struct {
	mu     sync.Mutex
	alerts map[string]*models.Alert
}

func newFakeAlertStore2() *fakeAlertStore2 {
	return &fakeAlertStore2{alerts: make(map[string]*models.Alert)}
}

func (s *fakeAlertStore2) Active(_ context.Context, ticker string, rule models.AlertRule) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[ticker+"/"+string(rule)]
	if !ok || !a.IsActive {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAlertStore2) Save(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.alerts[alert.Ticker+"/"+string(alert.Rule)] = &cp
	return nil
}

func (s *fakeAlertStore2) List(_ context.Context, _ string, _ models.AlertRule, _ bool, _ int) ([]*models.Alert, error) {
	return nil, nil
}

func (s *fakeAlertStore2) ActiveBefore(_ context.Context, cutoff time.Time) ([]*models.Alert, error) {
	return nil, nil
}

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

type fixture struct {
	obs        *fakeObservationStore
	aggs       *fakeAggregateStore
	marks      *fakeWatermarkStore
	alertStore *fakeAlertStore2
	runner     *Runner
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	log := testLogger(t)
	f := &fixture{
		obs:        newFakeObservationStore(),
		aggs:       newFakeAggregateStore(),
		marks:      newFakeWatermarkStore(),
		alertStore: newFakeAlertStore2(),
	}
	aggregator := NewAggregator(f.obs, f.aggs, noopMetrics{})
	alertMgr := alerts.New(f.alertStore, nil, noopMetrics{}, log, 3, 72*time.Hour,
		alerts.WithClock(func() time.Time { return now }))
	detector := analytics.Detector{ElevatedZ: 1.5, AnomalousZ: 2.5, MinPostCount: 5}
	pipeline := NewPipeline(aggregator, f.aggs, detector, alertMgr, log, 24, 3)
	f.runner = NewRunner(pipeline, f.obs, f.marks, noopMetrics{}, log,
		time.Hour, 24*time.Hour, 24, 2, 10*time.Second)
	f.runner.now = func() time.Time { return now }
	return f
}

func (f *fixture) seedPosts(ticker string, hour time.Time, count int, score float64) {
	for i := 0; i < count; i++ {
		f.obs.obs[ticker] = append(f.obs.obs[ticker], &models.Observation{
			PostID:         ticker + hour.String() + string(rune('a'+i)),
			Ticker:         ticker,
			Timestamp:      hour.Add(time.Duration(i) * time.Minute),
			SentimentScore: score,
		})
	}
}

func TestRunBackfillsFromWatermark(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)
	f := newFixture(t, now)

	// Watermark at 10:00; posts in 10-11, 11-12, 12-13.
	f.marks.marks["GME"] = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for h := 10; h <= 12; h++ {
		f.seedPosts("GME", time.Date(2026, 3, 1, h, 0, 0, 0, time.UTC), 6, 0.2)
	}

	summary, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TickersSucceeded != 1 {
		t.Fatalf("succeeded = %d, want 1", summary.TickersSucceeded)
	}
	if summary.AggregatesWritten != 3 {
		t.Fatalf("aggregates written = %d, want 3", summary.AggregatesWritten)
	}
	wantMark := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	if got := f.marks.marks["GME"]; !got.Equal(wantMark) {
		t.Fatalf("watermark = %v, want %v", got, wantMark)
	}
}

func TestRunIdempotentReprocessing(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.marks.marks["GME"] = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.seedPosts("GME", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 6, 0.2)

	if _, err := f.runner.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	// Re-run the same interval: row count must not grow.
	f.marks.marks["GME"] = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := f.runner.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n := f.aggs.count("GME"); n != 1 {
		t.Fatalf("aggregate rows = %d, want 1 (upsert, not append)", n)
	}
}

func TestRunEmptyIntervalSkippedButWatermarkAdvances(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.marks.marks["GME"] = time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	// Posts only in 12-13; 11-12 is empty.
	f.seedPosts("GME", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 6, 0.2)

	summary, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AggregatesWritten != 1 {
		t.Fatalf("aggregates written = %d, want 1 (empty interval writes no row)", summary.AggregatesWritten)
	}
	if n := f.aggs.count("GME"); n != 1 {
		t.Fatalf("aggregate rows = %d, want 1", n)
	}
	wantMark := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	if got := f.marks.marks["GME"]; !got.Equal(wantMark) {
		t.Fatalf("watermark = %v, want %v (skips still advance)", got, wantMark)
	}
}

func TestRunIsolatesTickerFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.marks.marks["BAD"] = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.marks.marks["GME"] = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.seedPosts("BAD", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 6, 0.2)
	f.seedPosts("GME", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 6, 0.2)
	f.obs.fetchErrFor = "BAD"

	summary, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TickersFailed != 1 || summary.TickersSucceeded != 1 {
		t.Fatalf("failed=%d succeeded=%d, want 1/1", summary.TickersFailed, summary.TickersSucceeded)
	}
	// The failed ticker's watermark must not move.
	if got := f.marks.marks["BAD"]; !got.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("failed ticker watermark moved to %v", got)
	}
	if got := f.marks.marks["GME"]; !got.Equal(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("healthy ticker watermark = %v, want advanced", got)
	}
}

func TestRunOpensAlertOnVolumeSpike(t *testing.T) {
	now := time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC)
	f := newFixture(t, now)

	// Seed a steady baseline of 6 posts/hour for 12 hours, then a 40-post
	// spike in the final due interval.
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f.marks.marks["GME"] = base
	for h := 0; h < 12; h++ {
		f.seedPosts("GME", base.Add(time.Duration(h)*time.Hour), 6, 0.1)
	}
	f.seedPosts("GME", base.Add(12*time.Hour), 40, 0.1)

	summary, err := f.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AlertsOpened != 1 {
		t.Fatalf("alerts opened = %d, want 1", summary.AlertsOpened)
	}
	a, _ := f.alertStore.Active(context.Background(), "GME", models.RuleVolumeSpike)
	if a == nil {
		t.Fatal("expected active volume_spike alert")
	}
}

func TestAggregatorAveragesScores(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC))
	hour := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.seedPosts("GME", hour, 2, 0.5)
	f.seedPosts("GME", hour, 2, -0.1)

	aggregator := NewAggregator(f.obs, f.aggs, noopMetrics{})
	agg, err := aggregator.Aggregate(context.Background(), "GME", models.Interval{Start: hour, End: hour.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.PostCount != 4 {
		t.Fatalf("post count = %d, want 4", agg.PostCount)
	}
	if diff := agg.AvgScore - 0.2; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("avg score = %f, want 0.2", agg.AvgScore)
	}
}

func TestAggregatorNoObservations(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC))
	aggregator := NewAggregator(f.obs, f.aggs, noopMetrics{})
	hour := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := aggregator.Aggregate(context.Background(), "EMPTY", models.Interval{Start: hour, End: hour.Add(time.Hour)})
	if !errors.Is(err, ErrNoObservations) {
		t.Fatalf("err = %v, want ErrNoObservations", err)
	}
	if n := f.aggs.count("EMPTY"); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

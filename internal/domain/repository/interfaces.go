package repository

import (
	"context"
	"time"

	"BuzzRadar/internal/domain/models"
)

// ObservationStore persists and queries raw scored posts.
type ObservationStore interface {
	Insert(ctx context.Context, obs []*models.Observation) error
	FetchRange(ctx context.Context, ticker string, from, to time.Time) ([]*models.Observation, error)
	// ActiveTickers lists tickers with at least one post since the cutoff.
	ActiveTickers(ctx context.Context, since time.Time) ([]string, error)
}

// AggregateStore persists interval rollups keyed by (ticker, interval_start).
type AggregateStore interface {
	Upsert(ctx context.Context, agg *models.SentimentAggregate) error
	// Window returns up to n aggregates with interval_start strictly before
	// the cutoff, most recent first.
	Window(ctx context.Context, ticker string, before time.Time, n int) ([]*models.SentimentAggregate, error)
	Range(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.SentimentAggregate, error)
	PruneBefore(ctx context.Context, cutoff time.Time) error
}

// AlertStore persists alert state keyed by (ticker, rule, triggered_at).
type AlertStore interface {
	// Active returns the active alert for the key, or nil when none.
	Active(ctx context.Context, ticker string, rule models.AlertRule) (*models.Alert, error)
	Save(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, ticker string, rule models.AlertRule, activeOnly bool, limit int) ([]*models.Alert, error)
	// ActiveBefore returns all active alerts triggered before the cutoff.
	ActiveBefore(ctx context.Context, cutoff time.Time) ([]*models.Alert, error)
}

// WatermarkStore tracks per-ticker analytics progress.
type WatermarkStore interface {
	// Get returns the end of the last successfully processed interval,
	// or the zero time when the ticker has never been processed.
	Get(ctx context.Context, ticker string) (time.Time, error)
	Advance(ctx context.Context, ticker string, processed time.Time) error
}

// AlertPublisher fans alert transitions out to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, tr *models.AlertTransition) error
	Close() error
}

type Metrics interface {
	RecordRun(kind, status string)
	RecordTicker(status string)
	RecordAggregateWritten()
	RecordAlertTransition(rule, action string)
	SetActiveAlerts(rule string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

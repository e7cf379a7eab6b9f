package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BuzzRadar/internal/domain/models"
	"BuzzRadar/internal/domain/repository"
)

// ErrNoObservations marks an interval with no posts for the ticker.
// Callers skip the interval; no aggregate row is written.
var ErrNoObservations = errors.New("no observations in interval")

// Aggregator rolls raw observations up into per-interval sentiment rows.
type Aggregator struct {
	observations repository.ObservationStore
	aggregates   repository.AggregateStore
	metrics      repository.Metrics
}

func NewAggregator(observations repository.ObservationStore, aggregates repository.AggregateStore, metrics repository.Metrics) *Aggregator {
	return &Aggregator{observations: observations, aggregates: aggregates, metrics: metrics}
}

// Aggregate computes and upserts the rollup for one (ticker, interval).
// Re-running the same interval replaces the row rather than duplicating it,
// so late re-processing converges on the latest data.
func (a *Aggregator) Aggregate(ctx context.Context, ticker string, iv models.Interval) (*models.SentimentAggregate, error) {
	obs, err := a.observations.FetchRange(ctx, ticker, iv.Start, iv.End)
	if err != nil {
		return nil, fmt.Errorf("fetch observations %s [%s, %s): %w", ticker, iv.Start, iv.End, err)
	}
	if len(obs) == 0 {
		return nil, ErrNoObservations
	}

	var sum float64
	for _, o := range obs {
		sum += o.SentimentScore
	}
	agg := &models.SentimentAggregate{
		Ticker:        ticker,
		IntervalStart: iv.Start,
		IntervalEnd:   iv.End,
		AvgScore:      sum / float64(len(obs)),
		PostCount:     int64(len(obs)),
		UpdatedAt:     time.Now().UTC(),
	}

	start := time.Now()
	if err := a.aggregates.Upsert(ctx, agg); err != nil {
		a.metrics.RecordError("aggregate_upsert")
		return nil, fmt.Errorf("upsert aggregate %s/%s: %w", ticker, iv.Start, err)
	}
	a.metrics.RecordLatency("aggregate_upsert_seconds", time.Since(start).Seconds())
	a.metrics.RecordAggregateWritten()
	return agg, nil
}

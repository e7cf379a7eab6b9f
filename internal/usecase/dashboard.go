package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"BuzzRadar/internal/domain/models"
	"BuzzRadar/internal/domain/repository"
	"BuzzRadar/pkg/cache"
	"BuzzRadar/pkg/logger"
)

// Dashboard serves the read API: aggregate history, alert history and the
// active ticker list, with an optional read-through cache in front of
// ClickHouse.
type Dashboard struct {
	aggregates   repository.AggregateStore
	alertStore   repository.AlertStore
	observations repository.ObservationStore
	cache        cache.Service
	cacheTTL     time.Duration
	log          *logger.Logger
}

func NewDashboard(aggregates repository.AggregateStore, alertStore repository.AlertStore, observations repository.ObservationStore, c cache.Service, cacheTTL time.Duration, log *logger.Logger) *Dashboard {
	return &Dashboard{
		aggregates:   aggregates,
		alertStore:   alertStore,
		observations: observations,
		cache:        c,
		cacheTTL:     cacheTTL,
		log:          log,
	}
}

func (d *Dashboard) Aggregates(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.SentimentAggregate, error) {
	key := cache.GenerateKeyWithParams("agg", ticker, from.Unix(), to.Unix(), limit)
	var cached []*models.SentimentAggregate
	if d.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := d.aggregates.Range(ctx, ticker, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("aggregate range %s: %w", ticker, err)
	}
	d.cacheSet(ctx, key, rows)
	return rows, nil
}

func (d *Dashboard) Alerts(ctx context.Context, ticker string, rule models.AlertRule, activeOnly bool, limit int) ([]*models.Alert, error) {
	rows, err := d.alertStore.List(ctx, ticker, rule, activeOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return rows, nil
}

func (d *Dashboard) ActiveTickers(ctx context.Context, lookback time.Duration) ([]string, error) {
	key := cache.GenerateKeyWithParams("tickers", int(lookback.Hours()))
	var cached []string
	if d.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	tickers, err := d.observations.ActiveTickers(ctx, time.Now().UTC().Add(-lookback))
	if err != nil {
		return nil, fmt.Errorf("active tickers: %w", err)
	}
	d.cacheSet(ctx, key, tickers)
	return tickers, nil
}

// cacheGet returns true on a hit. Values are cached as JSON strings so the
// same path works for Redis and the in-process cache. Cache errors degrade
// to a store read.
func (d *Dashboard) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if d.cache == nil {
		return false
	}
	var raw string
	if err := d.cache.Get(ctx, key, &raw); err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (d *Dashboard) cacheSet(ctx context.Context, key string, value interface{}) {
	if d.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, string(raw), d.cacheTTL); err != nil {
		d.log.Debug("dashboard cache set failed", logger.String("key", key), logger.Error(err))
	}
}

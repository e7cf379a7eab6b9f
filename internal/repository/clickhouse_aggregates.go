package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BuzzRadar/internal/domain/models"
	pkgch "BuzzRadar/pkg/clickhouse"
	applogger "BuzzRadar/pkg/logger"
)

// CHAggregateStore persists interval rollups in ClickHouse. The table is a
// ReplacingMergeTree keyed on (ticker, interval_start): inserting a newer
// version of a row is the upsert, reads use FINAL to collapse versions.
type CHAggregateStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHAggregateStore(ch *pkgch.Client, l *applogger.Logger) *CHAggregateStore {
	return &CHAggregateStore{db: ch.DB(), l: l}
}

func (s *CHAggregateStore) Upsert(ctx context.Context, agg *models.SentimentAggregate) error {
	const q = `
        INSERT INTO sentiment_agg (ticker, interval_start, interval_end, avg_score, post_count, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	if _, err := s.db.ExecContext(ctx, q,
		agg.Ticker, agg.IntervalStart, agg.IntervalEnd, agg.AvgScore, agg.PostCount, agg.UpdatedAt,
	); err != nil {
		s.l.Error("clickhouse aggregate upsert error",
			applogger.String("ticker", agg.Ticker),
			applogger.Time("interval_start", agg.IntervalStart),
			applogger.Error(err),
		)
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}

func (s *CHAggregateStore) Window(ctx context.Context, ticker string, before time.Time, n int) ([]*models.SentimentAggregate, error) {
	const q = `
        SELECT ticker, interval_start, interval_end, avg_score, post_count, updated_at
        FROM sentiment_agg FINAL
        WHERE ticker = ? AND interval_start < ?
        ORDER BY interval_start DESC
        LIMIT ?
    `
	return s.query(ctx, q, ticker, before, n)
}

func (s *CHAggregateStore) Range(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.SentimentAggregate, error) {
	const q = `
        SELECT ticker, interval_start, interval_end, avg_score, post_count, updated_at
        FROM sentiment_agg FINAL
        WHERE ticker = ? AND interval_start >= ? AND interval_start < ?
        ORDER BY interval_start DESC
        LIMIT ?
    `
	return s.query(ctx, q, ticker, from, to, limit)
}

func (s *CHAggregateStore) PruneBefore(ctx context.Context, cutoff time.Time) error {
	start := time.Now()
	const q = `ALTER TABLE sentiment_agg DELETE WHERE interval_start < ?`
	if _, err := s.db.ExecContext(ctx, q, cutoff); err != nil {
		s.l.Error("clickhouse aggregate prune error",
			applogger.Time("cutoff", cutoff),
			applogger.Error(err),
		)
		return fmt.Errorf("prune aggregates: %w", err)
	}
	s.l.Info("aggregates pruned",
		applogger.Time("cutoff", cutoff),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHAggregateStore) query(ctx context.Context, q string, args ...any) ([]*models.SentimentAggregate, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse aggregate query error", applogger.Error(err))
		return nil, fmt.Errorf("query aggregates: %w", err)
	}
	defer rows.Close()

	out := make([]*models.SentimentAggregate, 0, 64)
	for rows.Next() {
		var a models.SentimentAggregate
		if err := rows.Scan(&a.Ticker, &a.IntervalStart, &a.IntervalEnd, &a.AvgScore, &a.PostCount, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse aggregate query ok",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

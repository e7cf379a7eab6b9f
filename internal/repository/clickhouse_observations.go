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

// CHObservationStore persists scored posts in ClickHouse.
type CHObservationStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHObservationStore(ch *pkgch.Client, l *applogger.Logger) *CHObservationStore {
	return &CHObservationStore{db: ch.DB(), l: l}
}

func (s *CHObservationStore) Insert(ctx context.Context, obs []*models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO posts (post_id, ticker, forum, ts, sentiment_score, confidence)
        VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.PostID, o.Ticker, o.Forum, o.Timestamp, o.SentimentScore, o.Confidence); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert post %s: %w", o.PostID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

func (s *CHObservationStore) FetchRange(ctx context.Context, ticker string, from, to time.Time) ([]*models.Observation, error) {
	start := time.Now()
	const q = `
        SELECT post_id, ticker, forum, ts, sentiment_score, confidence
        FROM posts FINAL
        WHERE ticker = ? AND ts >= ? AND ts < ?
        ORDER BY ts ASC
    `
	rows, err := s.db.QueryContext(ctx, q, ticker, from, to)
	if err != nil {
		s.l.Error("clickhouse fetch_range query error",
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("fetch observations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Observation, 0, 256)
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.PostID, &o.Ticker, &o.Forum, &o.Timestamp, &o.SentimentScore, &o.Confidence); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse fetch_range ok",
		applogger.String("ticker", ticker),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHObservationStore) ActiveTickers(ctx context.Context, since time.Time) ([]string, error) {
	const q = `
        SELECT DISTINCT ticker
        FROM posts
        WHERE ts >= ?
        ORDER BY ticker ASC
    `
	rows, err := s.db.QueryContext(ctx, q, since)
	if err != nil {
		s.l.Error("clickhouse active_tickers query error", applogger.Error(err))
		return nil, fmt.Errorf("active tickers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

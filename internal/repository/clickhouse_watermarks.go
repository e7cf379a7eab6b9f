package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pkgch "BuzzRadar/pkg/clickhouse"
	applogger "BuzzRadar/pkg/logger"
)

// CHWatermarkStore tracks per-ticker analytics progress in ClickHouse.
type CHWatermarkStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHWatermarkStore(ch *pkgch.Client, l *applogger.Logger) *CHWatermarkStore {
	return &CHWatermarkStore{db: ch.DB(), l: l}
}

// Get returns the zero time for tickers never processed before.
func (s *CHWatermarkStore) Get(ctx context.Context, ticker string) (time.Time, error) {
	const q = `
        SELECT processed
        FROM watermarks FINAL
        WHERE ticker = ?
        LIMIT 1
    `
	var processed time.Time
	err := s.db.QueryRowContext(ctx, q, ticker).Scan(&processed)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		s.l.Error("clickhouse watermark get error",
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return time.Time{}, fmt.Errorf("get watermark: %w", err)
	}
	return processed.UTC(), nil
}

func (s *CHWatermarkStore) Advance(ctx context.Context, ticker string, processed time.Time) error {
	const q = `
        INSERT INTO watermarks (ticker, processed, updated_at)
        VALUES (?, ?, ?)
    `
	if _, err := s.db.ExecContext(ctx, q, ticker, processed, time.Now().UTC()); err != nil {
		s.l.Error("clickhouse watermark advance error",
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

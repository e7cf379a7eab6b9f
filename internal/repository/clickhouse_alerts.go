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

// CHAlertStore persists alert state in ClickHouse. Rows are keyed on
// (ticker, rule, triggered_at); state changes re-insert the row with a newer
// updated_at and FINAL reads resolve to the latest version.
type CHAlertStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHAlertStore(ch *pkgch.Client, l *applogger.Logger) *CHAlertStore {
	return &CHAlertStore{db: ch.DB(), l: l}
}

func (s *CHAlertStore) Active(ctx context.Context, ticker string, rule models.AlertRule) (*models.Alert, error) {
	const q = `
        SELECT ticker, rule, triggered_at, is_active, z_score, normal_streak, resolved_at, updated_at
        FROM alerts FINAL
        WHERE ticker = ? AND rule = ? AND is_active = 1
        ORDER BY triggered_at DESC
        LIMIT 1
    `
	rows, err := s.query(ctx, q, ticker, string(rule))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *CHAlertStore) Save(ctx context.Context, alert *models.Alert) error {
	const q = `
        INSERT INTO alerts (ticker, rule, triggered_at, is_active, z_score, normal_streak, resolved_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	active := uint8(0)
	if alert.IsActive {
		active = 1
	}
	var resolved any
	if alert.ResolvedAt != nil {
		resolved = *alert.ResolvedAt
	}
	if _, err := s.db.ExecContext(ctx, q,
		alert.Ticker, string(alert.Rule), alert.TriggeredAt, active,
		alert.ZScore, uint32(alert.NormalStreak), resolved, alert.UpdatedAt,
	); err != nil {
		s.l.Error("clickhouse alert save error",
			applogger.String("ticker", alert.Ticker),
			applogger.String("rule", string(alert.Rule)),
			applogger.Error(err),
		)
		return fmt.Errorf("save alert: %w", err)
	}
	return nil
}

func (s *CHAlertStore) List(ctx context.Context, ticker string, rule models.AlertRule, activeOnly bool, limit int) ([]*models.Alert, error) {
	q := `
        SELECT ticker, rule, triggered_at, is_active, z_score, normal_streak, resolved_at, updated_at
        FROM alerts FINAL
        WHERE 1 = 1
    `
	var args []any
	if ticker != "" {
		q += " AND ticker = ?"
		args = append(args, ticker)
	}
	if rule != "" {
		q += " AND rule = ?"
		args = append(args, string(rule))
	}
	if activeOnly {
		q += " AND is_active = 1"
	}
	q += " ORDER BY triggered_at DESC LIMIT ?"
	args = append(args, limit)
	return s.query(ctx, q, args...)
}

func (s *CHAlertStore) ActiveBefore(ctx context.Context, cutoff time.Time) ([]*models.Alert, error) {
	const q = `
        SELECT ticker, rule, triggered_at, is_active, z_score, normal_streak, resolved_at, updated_at
        FROM alerts FINAL
        WHERE is_active = 1 AND triggered_at < ?
        ORDER BY triggered_at ASC
    `
	return s.query(ctx, q, cutoff)
}

func (s *CHAlertStore) query(ctx context.Context, q string, args ...any) ([]*models.Alert, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse alert query error", applogger.Error(err))
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Alert, 0, 16)
	for rows.Next() {
		var (
			a        models.Alert
			rule     string
			active   uint8
			streak   uint32
			resolved sql.NullTime
		)
		if err := rows.Scan(&a.Ticker, &rule, &a.TriggeredAt, &active, &a.ZScore, &streak, &resolved, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Rule = models.AlertRule(rule)
		a.IsActive = active == 1
		a.NormalStreak = int(streak)
		if resolved.Valid {
			t := resolved.Time
			a.ResolvedAt = &t
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse alert query ok",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

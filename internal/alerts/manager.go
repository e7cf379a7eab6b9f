package alerts

import (
	"context"
	"fmt"
	"time"

	"BuzzRadar/internal/domain/models"
	"BuzzRadar/internal/domain/repository"
	"BuzzRadar/pkg/logger"
)

// Manager drives the alert lifecycle: none -> active -> inactive.
// At most one active alert exists per (ticker, rule); re-triggering while
// active is suppressed. Resolution requires a streak of consecutive normal
// intervals (hysteresis), and active alerts past MaxAge are force-expired.
type Manager struct {
	store     repository.AlertStore
	publisher repository.AlertPublisher
	metrics   repository.Metrics
	log       *logger.Logger

	Hysteresis int
	MaxAge     time.Duration

	retries    int
	backoffMin time.Duration
	backoffMax time.Duration

	now func() time.Time
}

type Option func(*Manager)

func WithRetry(retries int, min, max time.Duration) Option {
	return func(m *Manager) {
		m.retries = retries
		m.backoffMin = min
		m.backoffMax = max
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func New(store repository.AlertStore, publisher repository.AlertPublisher, metrics repository.Metrics, log *logger.Logger, hysteresis int, maxAge time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		publisher:  publisher,
		metrics:    metrics,
		log:        log,
		Hysteresis: hysteresis,
		MaxAge:     maxAge,
		retries:    3,
		backoffMin: 100 * time.Millisecond,
		backoffMax: 2 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Evaluate applies one detector signal to both rules and returns the
// transitions that occurred.
func (m *Manager) Evaluate(ctx context.Context, sig models.Signal) ([]*models.AlertTransition, error) {
	var out []*models.AlertTransition

	tr, err := m.evaluateRule(ctx, sig.Ticker, models.RuleVolumeSpike, sig.Volume, sig.VolumeZ, sig.Interval.End)
	if err != nil {
		return out, err
	}
	if tr != nil {
		out = append(out, tr)
	}

	tr, err = m.evaluateRule(ctx, sig.Ticker, models.RuleSentimentSwing, sig.Sentiment, sig.ScoreZ, sig.Interval.End)
	if err != nil {
		return out, err
	}
	if tr != nil {
		out = append(out, tr)
	}
	return out, nil
}

func (m *Manager) evaluateRule(ctx context.Context, ticker string, rule models.AlertRule, sev models.Severity, z float64, at time.Time) (*models.AlertTransition, error) {
	active, err := m.store.Active(ctx, ticker, rule)
	if err != nil {
		return nil, fmt.Errorf("load active alert %s/%s: %w", ticker, rule, err)
	}

	if active != nil && m.now().Sub(active.TriggeredAt) >= m.MaxAge {
		return m.close(ctx, active, models.ActionExpired, at)
	}

	switch {
	case active == nil:
		if sev != models.SeverityAnomalous {
			return nil, nil
		}
		alert := &models.Alert{
			Ticker:      ticker,
			Rule:        rule,
			TriggeredAt: at,
			IsActive:    true,
			ZScore:      z,
			UpdatedAt:   m.now(),
		}
		if err := m.save(ctx, alert); err != nil {
			return nil, err
		}
		m.metrics.RecordAlertTransition(string(rule), string(models.ActionOpened))
		m.log.Info("alert opened",
			logger.String("ticker", ticker),
			logger.String("rule", string(rule)),
			logger.Float64("z_score", z),
		)
		return m.transition(ctx, alert, models.ActionOpened, at), nil

	case sev == models.SeverityNormal:
		active.NormalStreak++
		if active.NormalStreak >= m.Hysteresis {
			return m.close(ctx, active, models.ActionResolved, at)
		}
		active.UpdatedAt = m.now()
		return nil, m.save(ctx, active)

	default:
		// Anomalous or elevated while active: stay active, reset the streak.
		// A duplicate trigger does not refresh triggered_at.
		if active.NormalStreak != 0 {
			active.NormalStreak = 0
			active.UpdatedAt = m.now()
			return nil, m.save(ctx, active)
		}
		return nil, nil
	}
}

// ExpireSweep deactivates every active alert older than MaxAge. Run by the
// daily maintenance job to catch tickers that stopped producing data.
func (m *Manager) ExpireSweep(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.MaxAge)
	stale, err := m.store.ActiveBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale alerts: %w", err)
	}

	expired := 0
	for _, alert := range stale {
		if _, err := m.close(ctx, alert, models.ActionExpired, m.now()); err != nil {
			m.log.Error("expire alert",
				logger.String("ticker", alert.Ticker),
				logger.String("rule", string(alert.Rule)),
				logger.Error(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

func (m *Manager) close(ctx context.Context, alert *models.Alert, action models.AlertAction, at time.Time) (*models.AlertTransition, error) {
	resolved := at
	alert.IsActive = false
	alert.ResolvedAt = &resolved
	alert.NormalStreak = 0
	alert.UpdatedAt = m.now()
	if err := m.save(ctx, alert); err != nil {
		return nil, err
	}
	m.metrics.RecordAlertTransition(string(alert.Rule), string(action))
	m.log.Info("alert closed",
		logger.String("ticker", alert.Ticker),
		logger.String("rule", string(alert.Rule)),
		logger.String("action", string(action)),
		logger.Time("triggered_at", alert.TriggeredAt),
	)
	return m.transition(ctx, alert, action, at), nil
}

func (m *Manager) transition(ctx context.Context, alert *models.Alert, action models.AlertAction, at time.Time) *models.AlertTransition {
	tr := &models.AlertTransition{
		Ticker:      alert.Ticker,
		Rule:        alert.Rule,
		Action:      action,
		TriggeredAt: alert.TriggeredAt,
		ZScore:      alert.ZScore,
		At:          at,
	}
	if m.publisher != nil {
		// Best effort: a failed publish must not roll back alert state.
		if err := m.publisher.Publish(context.WithoutCancel(ctx), tr); err != nil {
			m.metrics.RecordError("alert_publish")
			m.log.Error("publish alert transition", logger.Error(err))
		}
	}
	return tr
}

// save writes with bounded retries: alert writes race the next scheduled run,
// so transient store errors get a few attempts before surfacing.
func (m *Manager) save(ctx context.Context, alert *models.Alert) error {
	var err error
	backoff := m.backoffMin
	for attempt := 0; attempt <= m.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > m.backoffMax {
				backoff = m.backoffMax
			}
		}
		if err = m.store.Save(ctx, alert); err == nil {
			return nil
		}
	}
	return fmt.Errorf("save alert %s/%s: %w", alert.Ticker, alert.Rule, err)
}

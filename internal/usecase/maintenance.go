package usecase

import (
	"context"
	"fmt"
	"time"

	"BuzzRadar/internal/alerts"
	"BuzzRadar/internal/domain/repository"
	"BuzzRadar/pkg/logger"
)

// Maintenance is the daily housekeeping job: prune aggregates past the
// retention horizon and expire over-age active alerts.
type Maintenance struct {
	aggregates repository.AggregateStore
	alerts     *alerts.Manager
	metrics    repository.Metrics
	log        *logger.Logger

	retention time.Duration
	now       func() time.Time
}

func NewMaintenance(aggregates repository.AggregateStore, alertMgr *alerts.Manager, metrics repository.Metrics, log *logger.Logger, retention time.Duration) *Maintenance {
	return &Maintenance{
		aggregates: aggregates,
		alerts:     alertMgr,
		metrics:    metrics,
		log:        log,
		retention:  retention,
		now:        time.Now,
	}
}

func (m *Maintenance) Run(ctx context.Context) error {
	started := m.now()
	cutoff := started.UTC().Add(-m.retention)

	if err := m.aggregates.PruneBefore(ctx, cutoff); err != nil {
		m.metrics.RecordError("maintenance_prune")
		return fmt.Errorf("prune aggregates before %s: %w", cutoff, err)
	}

	expired, err := m.alerts.ExpireSweep(ctx)
	if err != nil {
		m.metrics.RecordError("maintenance_expire")
		return fmt.Errorf("expire sweep: %w", err)
	}

	m.metrics.RecordLatency("maintenance_run_seconds", time.Since(started).Seconds())
	m.log.Info("maintenance finished",
		logger.Time("retention_cutoff", cutoff),
		logger.Int("alerts_expired", expired),
		logger.Duration("duration_ms", time.Since(started)),
	)
	return nil
}

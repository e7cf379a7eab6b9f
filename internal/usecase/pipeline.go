package usecase

import (
	"context"
	"errors"
	"fmt"

	"BuzzRadar/internal/alerts"
	"BuzzRadar/internal/analytics"
	"BuzzRadar/internal/domain/models"
	"BuzzRadar/internal/domain/repository"
	"BuzzRadar/pkg/logger"
)

// Pipeline runs the full analytics chain for one (ticker, interval):
// aggregate, baseline, detect, alert evaluation.
type Pipeline struct {
	aggregator *Aggregator
	aggregates repository.AggregateStore
	detector   analytics.Detector
	alerts     *alerts.Manager
	log        *logger.Logger

	windowSize int
	minSamples int
}

func NewPipeline(aggregator *Aggregator, aggregates repository.AggregateStore, detector analytics.Detector, alertMgr *alerts.Manager, log *logger.Logger, windowSize, minSamples int) *Pipeline {
	return &Pipeline{
		aggregator: aggregator,
		aggregates: aggregates,
		detector:   detector,
		alerts:     alertMgr,
		log:        log,
		windowSize: windowSize,
		minSamples: minSamples,
	}
}

// IntervalResult reports what one interval produced for the run summary.
type IntervalResult struct {
	Skipped     bool
	Aggregate   *models.SentimentAggregate
	Signal      models.Signal
	Transitions []*models.AlertTransition
}

// ProcessInterval processes one fully-elapsed interval for a ticker.
// An interval with no observations is skipped: no row, no baseline sample,
// no alert evaluation.
func (p *Pipeline) ProcessInterval(ctx context.Context, ticker string, iv models.Interval) (IntervalResult, error) {
	agg, err := p.aggregator.Aggregate(ctx, ticker, iv)
	if err != nil {
		if errors.Is(err, ErrNoObservations) {
			p.log.Debug("interval skipped, no posts",
				logger.String("ticker", ticker),
				logger.Time("interval_start", iv.Start),
			)
			return IntervalResult{Skipped: true}, nil
		}
		return IntervalResult{}, err
	}

	// Baseline windows over rows strictly before this interval; the interval
	// under evaluation never feeds its own baseline.
	window, err := p.aggregates.Window(ctx, ticker, iv.Start, p.windowSize)
	if err != nil {
		return IntervalResult{}, fmt.Errorf("fetch baseline window %s/%s: %w", ticker, iv.Start, err)
	}
	base := analytics.ComputeBaseline(window, p.minSamples)

	sig := p.detector.Detect(agg, base)
	if sig.Volume != models.SeverityNormal || sig.Sentiment != models.SeverityNormal {
		p.log.Info("anomaly signal",
			logger.String("ticker", ticker),
			logger.Time("interval_start", iv.Start),
			logger.Float64("volume_z", sig.VolumeZ),
			logger.Float64("score_z", sig.ScoreZ),
			logger.String("volume", string(sig.Volume)),
			logger.String("sentiment", string(sig.Sentiment)),
		)
	}

	transitions, err := p.alerts.Evaluate(ctx, sig)
	if err != nil {
		return IntervalResult{}, fmt.Errorf("evaluate alerts %s: %w", ticker, err)
	}

	return IntervalResult{Aggregate: agg, Signal: sig, Transitions: transitions}, nil
}

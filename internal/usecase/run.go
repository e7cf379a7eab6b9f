package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BuzzRadar/internal/analytics"
	"BuzzRadar/internal/domain/models"
	"BuzzRadar/internal/domain/repository"
	"BuzzRadar/pkg/logger"
)

// Runner executes one analytics run: discovers active tickers, catches each
// one up from its watermark to the last fully-elapsed interval, and isolates
// failures so one bad ticker cannot sink the run.
type Runner struct {
	pipeline     *Pipeline
	observations repository.ObservationStore
	watermarks   repository.WatermarkStore
	metrics      repository.Metrics
	log          *logger.Logger

	bucketWidth   time.Duration
	lookback      time.Duration
	backfillLimit int
	workers       int
	tickerTimeout time.Duration

	now func() time.Time
}

func NewRunner(pipeline *Pipeline, observations repository.ObservationStore, watermarks repository.WatermarkStore, metrics repository.Metrics, log *logger.Logger, bucketWidth, lookback time.Duration, backfillLimit, workers int, tickerTimeout time.Duration) *Runner {
	return &Runner{
		pipeline:      pipeline,
		observations:  observations,
		watermarks:    watermarks,
		metrics:       metrics,
		log:           log,
		bucketWidth:   bucketWidth,
		lookback:      lookback,
		backfillLimit: backfillLimit,
		workers:       workers,
		tickerTimeout: tickerTimeout,
		now:           time.Now,
	}
}

// Run processes all active tickers with a bounded worker pool and returns
// the run summary. A per-ticker error is recorded, not returned: the next
// scheduled run retries from the unchanged watermark.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	started := r.now().UTC()
	summary := &models.RunSummary{Started: started}

	tickers, err := r.observations.ActiveTickers(ctx, started.Add(-r.lookback))
	if err != nil {
		r.metrics.RecordError("active_tickers")
		return summary, fmt.Errorf("list active tickers: %w", err)
	}
	if len(tickers) == 0 {
		summary.Duration = r.now().UTC().Sub(started)
		return summary, nil
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan string)
	)

	workers := r.workers
	if workers > len(tickers) {
		workers = len(tickers)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				res, err := r.processTicker(ctx, ticker)
				mu.Lock()
				if err != nil {
					summary.TickersFailed++
					r.metrics.RecordTicker("failed")
				} else if res.intervals == 0 {
					summary.TickersSkipped++
					r.metrics.RecordTicker("skipped")
				} else {
					summary.TickersSucceeded++
					r.metrics.RecordTicker("succeeded")
				}
				summary.AggregatesWritten += res.written
				summary.AlertsOpened += res.opened
				summary.AlertsResolved += res.resolved
				summary.AlertsExpired += res.expired
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, ticker := range tickers {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- ticker:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = r.now().UTC().Sub(started)
	r.metrics.RecordLatency("analytics_run_seconds", summary.Duration.Seconds())
	r.log.Info("analytics run finished",
		logger.Int("tickers_succeeded", summary.TickersSucceeded),
		logger.Int("tickers_failed", summary.TickersFailed),
		logger.Int("tickers_skipped", summary.TickersSkipped),
		logger.Int("aggregates_written", summary.AggregatesWritten),
		logger.Int("alerts_opened", summary.AlertsOpened),
		logger.Int("alerts_resolved", summary.AlertsResolved),
		logger.Duration("duration_ms", summary.Duration),
	)
	return summary, ctx.Err()
}

type tickerResult struct {
	intervals int
	written   int
	opened    int
	resolved  int
	expired   int
}

// processTicker catches one ticker up chronologically. The watermark
// advances only after each interval commits, so a mid-backfill failure
// resumes from the first unprocessed interval.
func (r *Runner) processTicker(ctx context.Context, ticker string) (tickerResult, error) {
	var res tickerResult

	tctx, cancel := context.WithTimeout(ctx, r.tickerTimeout)
	defer cancel()

	watermark, err := r.watermarks.Get(tctx, ticker)
	if err != nil {
		r.metrics.RecordError("watermark_get")
		r.log.Error("load watermark", logger.String("ticker", ticker), logger.Error(err))
		return res, err
	}

	due, err := analytics.ElapsedBuckets(watermark, r.now(), r.bucketWidth, r.backfillLimit)
	if err != nil {
		return res, err
	}
	res.intervals = len(due)

	for _, iv := range due {
		out, err := r.pipeline.ProcessInterval(tctx, ticker, iv)
		if err != nil {
			r.metrics.RecordError("process_interval")
			r.log.Error("process interval",
				logger.String("ticker", ticker),
				logger.Time("interval_start", iv.Start),
				logger.Error(err),
			)
			return res, err
		}
		if !out.Skipped {
			res.written++
		}
		for _, tr := range out.Transitions {
			switch tr.Action {
			case models.ActionOpened:
				res.opened++
			case models.ActionResolved:
				res.resolved++
			case models.ActionExpired:
				res.expired++
			}
		}
		if err := r.watermarks.Advance(tctx, ticker, iv.End); err != nil {
			r.metrics.RecordError("watermark_advance")
			return res, fmt.Errorf("advance watermark %s to %s: %w", ticker, iv.End, err)
		}
	}
	return res, nil
}

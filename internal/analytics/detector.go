package analytics

import (
	"math"

	"BuzzRadar/internal/domain/models"
)

// epsilonStd floors the baseline stddev so flat histories do not divide by
// zero and trivial jitter does not explode the z-score.
const epsilonStd = 1e-9

// Detector classifies interval aggregates against their baselines.
type Detector struct {
	ElevatedZ    float64
	AnomalousZ   float64
	MinPostCount int64
}

// Detect scores one aggregate against its baseline on both dimensions.
// An insufficient baseline classifies as normal on both: cold-start tickers
// must not alert. Volume classification is additionally gated on a minimum
// post count so near-dead tickers cannot spike on a handful of posts.
func (d Detector) Detect(agg *models.SentimentAggregate, base models.Baseline) models.Signal {
	sig := models.Signal{
		Ticker: agg.Ticker,
		Interval: models.Interval{
			Start: agg.IntervalStart,
			End:   agg.IntervalEnd,
		},
		Volume:    models.SeverityNormal,
		Sentiment: models.SeverityNormal,
	}
	if !base.Sufficient() {
		return sig
	}

	sig.VolumeZ = zScore(float64(agg.PostCount), base.VolumeMean, base.VolumeStd)
	sig.ScoreZ = zScore(agg.AvgScore, base.ScoreMean, base.ScoreStd)

	if agg.PostCount >= d.MinPostCount {
		sig.Volume = d.classify(sig.VolumeZ)
	}
	sig.Sentiment = d.classify(sig.ScoreZ)
	return sig
}

func (d Detector) classify(z float64) models.Severity {
	abs := math.Abs(z)
	switch {
	case abs >= d.AnomalousZ:
		return models.SeverityAnomalous
	case abs >= d.ElevatedZ:
		return models.SeverityElevated
	default:
		return models.SeverityNormal
	}
}

func zScore(value, mean, std float64) float64 {
	if std < epsilonStd {
		std = epsilonStd
	}
	return (value - mean) / std
}

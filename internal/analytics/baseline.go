package analytics

import (
	"math"

	"BuzzRadar/internal/domain/models"
)

// ComputeBaseline derives rolling mean/stddev of post volume and average
// score from trailing aggregates. Stateless: callers pass the window they
// fetched for the interval under evaluation; the aggregate being evaluated
// must not be included.
func ComputeBaseline(window []*models.SentimentAggregate, minSamples int) models.Baseline {
	b := models.Baseline{Samples: len(window), MinSamples: minSamples}
	if len(window) == 0 {
		return b
	}

	var volSum, volSum2, scoreSum, scoreSum2 float64
	for _, agg := range window {
		v := float64(agg.PostCount)
		volSum += v
		volSum2 += v * v
		scoreSum += agg.AvgScore
		scoreSum2 += agg.AvgScore * agg.AvgScore
	}

	n := float64(len(window))
	b.VolumeMean = volSum / n
	b.ScoreMean = scoreSum / n
	b.VolumeStd = stddev(volSum, volSum2, n)
	b.ScoreStd = stddev(scoreSum, scoreSum2, n)
	return b
}

func stddev(sum, sum2, n float64) float64 {
	if n < 2 {
		return 0
	}
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

package analytics

import (
	"math"
	"testing"
	"time"

	"BuzzRadar/internal/domain/models"
)

func makeWindow(counts []int64, scores []float64) []*models.SentimentAggregate {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*models.SentimentAggregate, len(counts))
	for i := range counts {
		out[i] = &models.SentimentAggregate{
			Ticker:        "GME",
			IntervalStart: start.Add(time.Duration(i) * time.Hour),
			IntervalEnd:   start.Add(time.Duration(i+1) * time.Hour),
			PostCount:     counts[i],
			AvgScore:      scores[i],
		}
	}
	return out
}

func TestComputeBaselineStats(t *testing.T) {
	window := makeWindow(
		[]int64{8, 10, 12, 10},
		[]float64{0.1, 0.2, 0.1, 0.2},
	)
	b := ComputeBaseline(window, 3)
	if !b.Sufficient() {
		t.Fatal("4 samples with min 3 should be sufficient")
	}
	if math.Abs(b.VolumeMean-10) > 1e-9 {
		t.Fatalf("volume mean = %f, want 10", b.VolumeMean)
	}
	if math.Abs(b.ScoreMean-0.15) > 1e-9 {
		t.Fatalf("score mean = %f, want 0.15", b.ScoreMean)
	}
	if b.VolumeStd <= 0 {
		t.Fatalf("volume stddev should be positive, got %f", b.VolumeStd)
	}
}

func TestComputeBaselineInsufficient(t *testing.T) {
	b := ComputeBaseline(makeWindow([]int64{10, 12}, []float64{0.1, 0.2}), 3)
	if b.Sufficient() {
		t.Fatal("2 samples with min 3 must be insufficient")
	}
	if ComputeBaseline(nil, 3).Sufficient() {
		t.Fatal("empty window must be insufficient")
	}
}

func TestDetectZScoreValue(t *testing.T) {
	// Baseline mean 10, stddev 2 on volume; an interval with 20 posts must
	// score z = 5.0 and classify anomalous.
	base := models.Baseline{
		Samples:    24,
		MinSamples: 3,
		VolumeMean: 10,
		VolumeStd:  2,
		ScoreMean:  0,
		ScoreStd:   0.1,
	}
	d := Detector{ElevatedZ: 1.5, AnomalousZ: 2.5, MinPostCount: 5}
	agg := &models.SentimentAggregate{Ticker: "GME", PostCount: 20, AvgScore: 0}

	sig := d.Detect(agg, base)
	if math.Abs(sig.VolumeZ-5.0) > 1e-9 {
		t.Fatalf("volume z = %f, want 5.0", sig.VolumeZ)
	}
	if sig.Volume != models.SeverityAnomalous {
		t.Fatalf("volume severity = %s, want anomalous", sig.Volume)
	}
	if sig.Sentiment != models.SeverityNormal {
		t.Fatalf("sentiment severity = %s, want normal", sig.Sentiment)
	}
}

func TestDetectThresholdBands(t *testing.T) {
	base := models.Baseline{Samples: 24, MinSamples: 3, VolumeMean: 10, VolumeStd: 2, ScoreStd: 1}
	d := Detector{ElevatedZ: 1.5, AnomalousZ: 2.5, MinPostCount: 1}

	cases := []struct {
		count int64
		want  models.Severity
	}{
		{12, models.SeverityNormal},    // z = 1.0
		{13, models.SeverityElevated},  // z = 1.5, boundary is inclusive
		{14, models.SeverityElevated},  // z = 2.0
		{15, models.SeverityAnomalous}, // z = 2.5
		{4, models.SeverityAnomalous},  // z = -3.0, magnitude counts
	}
	for _, tc := range cases {
		sig := d.Detect(&models.SentimentAggregate{PostCount: tc.count}, base)
		if sig.Volume != tc.want {
			t.Fatalf("count %d: severity = %s, want %s (z=%f)", tc.count, sig.Volume, tc.want, sig.VolumeZ)
		}
	}
}

func TestDetectInsufficientBaselineIsNormal(t *testing.T) {
	base := models.Baseline{Samples: 2, MinSamples: 3, VolumeMean: 10, VolumeStd: 2}
	d := Detector{ElevatedZ: 1.5, AnomalousZ: 2.5, MinPostCount: 1}
	sig := d.Detect(&models.SentimentAggregate{PostCount: 1000, AvgScore: 1}, base)
	if sig.Volume != models.SeverityNormal || sig.Sentiment != models.SeverityNormal {
		t.Fatalf("cold-start must classify normal, got volume=%s sentiment=%s", sig.Volume, sig.Sentiment)
	}
}

func TestDetectMinPostCountGate(t *testing.T) {
	// A flat near-zero baseline makes any activity a huge z-score, but the
	// volume gate keeps tiny absolute counts from alerting.
	base := models.Baseline{Samples: 24, MinSamples: 3, VolumeMean: 0.1, VolumeStd: 0.05, ScoreStd: 1}
	d := Detector{ElevatedZ: 1.5, AnomalousZ: 2.5, MinPostCount: 5}

	sig := d.Detect(&models.SentimentAggregate{PostCount: 3}, base)
	if sig.Volume != models.SeverityNormal {
		t.Fatalf("3 posts below min gate should be normal, got %s", sig.Volume)
	}
	sig = d.Detect(&models.SentimentAggregate{PostCount: 6}, base)
	if sig.Volume != models.SeverityAnomalous {
		t.Fatalf("6 posts above gate with huge z should be anomalous, got %s", sig.Volume)
	}
}

func TestDetectFlatBaselineEpsilonFloor(t *testing.T) {
	base := models.Baseline{Samples: 24, MinSamples: 3, VolumeMean: 10, VolumeStd: 0, ScoreStd: 0}
	d := Detector{ElevatedZ: 1.5, AnomalousZ: 2.5, MinPostCount: 1}

	// Identical value against flat history: z must be exactly 0, not NaN.
	sig := d.Detect(&models.SentimentAggregate{PostCount: 10}, base)
	if sig.VolumeZ != 0 {
		t.Fatalf("flat baseline with matching value: z = %f, want 0", sig.VolumeZ)
	}
	if sig.Volume != models.SeverityNormal {
		t.Fatalf("severity = %s, want normal", sig.Volume)
	}

	// Any deviation from a flat history is a large finite z.
	sig = d.Detect(&models.SentimentAggregate{PostCount: 11}, base)
	if math.IsNaN(sig.VolumeZ) || math.IsInf(sig.VolumeZ, 0) {
		t.Fatalf("z must be finite, got %f", sig.VolumeZ)
	}
	if sig.Volume != models.SeverityAnomalous {
		t.Fatalf("deviation from flat baseline should be anomalous, got %s", sig.Volume)
	}
}

package models

import "time"

// Observation is a single scored forum post for a ticker.
// SentimentScore is in [-1, 1]; Confidence in [0, 1].
type Observation struct {
	PostID         string
	Ticker         string
	Forum          string
	Timestamp      time.Time
	SentimentScore float64
	Confidence     float64
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// SentimentAggregate is the per-ticker, per-interval rollup.
// (Ticker, IntervalStart) is the upsert key.
type SentimentAggregate struct {
	Ticker        string    `json:"ticker"`
	IntervalStart time.Time `json:"interval_start"`
	IntervalEnd   time.Time `json:"interval_end"`
	AvgScore      float64   `json:"avg_score"`
	PostCount     int64     `json:"post_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Baseline holds rolling statistics over trailing aggregates.
type Baseline struct {
	Samples    int
	VolumeMean float64
	VolumeStd  float64
	ScoreMean  float64
	ScoreStd   float64
	MinSamples int
}

// Sufficient reports whether enough history exists to classify against.
func (b Baseline) Sufficient() bool {
	return b.Samples >= b.MinSamples
}

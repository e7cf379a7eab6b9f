package models

import "time"

// AlertRule identifies the anomaly dimension an alert is raised on.
type AlertRule string

const (
	RuleVolumeSpike    AlertRule = "volume_spike"
	RuleSentimentSwing AlertRule = "sentiment_swing"
)

// Severity is the classification of a single interval against its baseline.
type Severity string

const (
	SeverityNormal    Severity = "normal"
	SeverityElevated  Severity = "elevated"
	SeverityAnomalous Severity = "anomalous"
)

// Signal is the detector output for one (ticker, interval).
type Signal struct {
	Ticker    string
	Interval  Interval
	VolumeZ   float64
	ScoreZ    float64
	Volume    Severity
	Sentiment Severity
}

// Alert is the persisted state of an anomaly alert.
// At most one active alert exists per (Ticker, Rule).
type Alert struct {
	Ticker       string     `json:"ticker"`
	Rule         AlertRule  `json:"rule"`
	TriggeredAt  time.Time  `json:"triggered_at"`
	IsActive     bool       `json:"is_active"`
	ZScore       float64    `json:"z_score"`
	NormalStreak int        `json:"normal_streak"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AlertAction names a state transition for the notification stream.
type AlertAction string

const (
	ActionOpened   AlertAction = "opened"
	ActionResolved AlertAction = "resolved"
	ActionExpired  AlertAction = "expired"
)

// AlertTransition is the event emitted when an alert changes state.
type AlertTransition struct {
	Ticker      string      `json:"ticker"`
	Rule        AlertRule   `json:"rule"`
	Action      AlertAction `json:"action"`
	TriggeredAt time.Time   `json:"triggered_at"`
	ZScore      float64     `json:"z_score"`
	At          time.Time   `json:"at"`
}

// RunSummary reports the outcome of one analytics run.
type RunSummary struct {
	Started           time.Time
	Duration          time.Duration
	TickersSucceeded  int
	TickersFailed     int
	TickersSkipped    int
	AggregatesWritten int
	AlertsOpened      int
	AlertsResolved    int
	AlertsExpired     int
}

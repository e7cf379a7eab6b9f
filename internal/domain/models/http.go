package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type AggregatesRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,uppercase,min=1,max=12"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"168" validate:"gte=1,lte=5000"`
}

type AlertsRequest struct {
	Ticker     string `query:"ticker" json:"ticker" validate:"omitempty,uppercase,min=1,max=12"`
	Rule       string `query:"rule" json:"rule" validate:"omitempty,oneof=volume_spike sentiment_swing"`
	ActiveOnly bool   `query:"active_only" json:"active_only"`
	Limit      int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type TickersRequest struct {
	LookbackHours int `query:"lookback_hours" json:"lookback_hours" default:"24" validate:"gte=1,lte=720"`
}

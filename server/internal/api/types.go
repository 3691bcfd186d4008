package api

import (
	"github.com/coinscope/coinscope/pkg/types"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is one of: ok | degraded | down | unknown.
	State           string           `json:"state"`
	SourceCount     int              `json:"source_count"`
	CoinCount       int              `json:"coin_count"`
	PredictionCount int              `json:"prediction_count"`
	AlertCount      int              `json:"alert_count"`
	LastUpdate      string           `json:"last_update,omitempty"` // RFC3339
	AgeSeconds      float64          `json:"age_seconds"`
	Diagnostics     []DiagnosticHint `json:"diagnostics"`
}

// Quote describes the currency prices in a response are expressed in.
type Quote struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"` // multiplier applied to the agent's vs currency
	Fallback bool    `json:"fallback,omitempty"`
}

// CoinsResponse is the payload for GET /api/v1/coins, /booming and /safe.
type CoinsResponse struct {
	Quote
	Coins []types.CoinSnapshot `json:"coins"`
}

// CoinResponse is the payload for GET /api/v1/coins/{id}.
type CoinResponse struct {
	Quote
	Coin       types.CoinSnapshot `json:"coin"`
	Prediction *types.ScoredCoin  `json:"prediction,omitempty"`
	Watched    bool               `json:"watched"`
}

// PredictionsResponse is the payload for GET /api/v1/predictions.
type PredictionsResponse struct {
	Quote
	Predictions []types.ScoredCoin `json:"predictions"`
}

// UpstreamResponse is one upstream reported by one agent.
type UpstreamResponse struct {
	SourceID string `json:"source_id"`
	types.UpstreamStatus
}

// SourceResponse is one agent's latest snapshot in GET /api/v1/snapshot.
type SourceResponse struct {
	SourceID     string                 `json:"source_id"`
	VsCurrency   string                 `json:"vs_currency"`
	Timestamp    string                 `json:"timestamp"` // RFC3339, agent clock
	LastSeen     string                 `json:"last_seen"` // RFC3339, server clock
	Coins        []types.CoinSnapshot   `json:"coins"`
	Predictions  []types.ScoredCoin     `json:"predictions"`
	Booming      []types.CoinSnapshot   `json:"booming"`
	Safe         []types.CoinSnapshot   `json:"safe"`
	Rates        []types.ExchangeRate   `json:"rates"`
	Upstreams    []types.UpstreamStatus `json:"upstreams"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Diagnostics  []DiagnosticHint       `json:"diagnostics"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket broadcast.
type SnapshotResponse struct {
	Sources     []SourceResponse `json:"sources"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// WatchlistResponse is the payload for the watchlist endpoints.
type WatchlistResponse struct {
	IDs   []string             `json:"ids"`
	Coins []types.CoinSnapshot `json:"coins"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

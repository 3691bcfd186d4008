package types

import (
	"strings"
	"time"
)

// MarketSnapshot is everything one agent learned in one poll cycle.
type MarketSnapshot struct {
	SourceID   string    `json:"source_id"`
	Timestamp  time.Time `json:"timestamp"`
	VsCurrency string    `json:"vs_currency"`

	Coins       []CoinSnapshot `json:"coins"`
	Predictions []ScoredCoin   `json:"predictions"`
	Booming     []CoinSnapshot `json:"booming"`
	Safe        []CoinSnapshot `json:"safe"`

	Rates     []ExchangeRate   `json:"rates"`
	Upstreams []UpstreamStatus `json:"upstreams,omitempty"`

	// ErrorMessage is non-empty when the market fetch failed this cycle.
	// Coins and Predictions are then empty.
	ErrorMessage string `json:"error_message,omitempty"`
}

// ExchangeRate converts one unit of Base into Quote.
type ExchangeRate struct {
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Rate      float64   `json:"rate"`
	Fallback  bool      `json:"fallback"` // true when the provider failed and a constant was used
	UpdatedAt time.Time `json:"updated_at"`
}

// UpstreamStatus describes the reachability of one upstream HTTP API.
type UpstreamStatus struct {
	Name     string      `json:"name"`
	Endpoint string      `json:"endpoint"`
	OK       bool        `json:"ok"`
	Error    string      `json:"error,omitempty"`
	Cert     *CertStatus `json:"cert,omitempty"`
}

// CertStatus describes the leaf TLS certificate of an upstream.
type CertStatus struct {
	// Status is one of: valid | expiring | expired | unreachable.
	Status   string `json:"status"`
	DaysLeft int32  `json:"days_left"`
	Issuer   string `json:"issuer,omitempty"`
	NotAfter string `json:"not_after,omitempty"` // RFC3339
}

// SendResponse acknowledges a MarketSnapshot.
type SendResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// RateFor returns the rate converting base into quote, if present.
func (s *MarketSnapshot) RateFor(base, quote string) (ExchangeRate, bool) {
	for _, r := range s.Rates {
		if strings.EqualFold(r.Base, base) && strings.EqualFold(r.Quote, quote) {
			return r, true
		}
	}
	return ExchangeRate{}, false
}

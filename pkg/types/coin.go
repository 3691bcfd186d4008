package types

// CoinSnapshot is one coin's market data at fetch time.
// JSON tags follow the CoinGecko /coins/markets response.
type CoinSnapshot struct {
	ID                string   `json:"id"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	CurrentPrice      float64  `json:"current_price"`
	MarketCap         float64  `json:"market_cap"`
	MarketCapRank     *int     `json:"market_cap_rank,omitempty"`
	TotalVolume       float64  `json:"total_volume"`
	PriceChangePct24h float64  `json:"price_change_percentage_24h"`
	PriceChangePct7d  *float64 `json:"price_change_percentage_7d_in_currency,omitempty"`
}

// Rank returns the market-cap rank and whether the upstream supplied one.
func (c CoinSnapshot) Rank() (int, bool) {
	if c.MarketCapRank == nil || *c.MarketCapRank <= 0 {
		return 0, false
	}
	return *c.MarketCapRank, true
}

// Change7d returns the 7-day percentage change, or 0 when absent.
func (c CoinSnapshot) Change7d() float64 {
	if c.PriceChangePct7d == nil {
		return 0
	}
	return *c.PriceChangePct7d
}

// VolumeRatio returns 24h volume divided by market cap, or 0 when the market
// cap is not positive.
func (c CoinSnapshot) VolumeRatio() float64 {
	if c.MarketCap <= 0 {
		return 0
	}
	return c.TotalVolume / c.MarketCap
}

// Reason is one human-readable justification attached to a ScoredCoin.
type Reason struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Recommendation is a coarse label derived from score and confidence.
type Recommendation struct {
	// Level is one of: strong | moderate | watch | weak.
	Level string `json:"level"`
	Text  string `json:"text"`
}

// ScoredCoin is the scoring engine's view of one CoinSnapshot.
type ScoredCoin struct {
	Coin CoinSnapshot `json:"coin"`

	// Score is the composite ranking value in the range 0–100.
	Score int `json:"score"`

	// Reasons holds 3 or 4 entries in evaluation order.
	Reasons []Reason `json:"reasons"`

	// Confidence is a secondary 0–100 axis. It never changes Score.
	Confidence float64 `json:"confidence"`

	Recommendation Recommendation `json:"recommendation"`
}

// IntPtr and FloatPtr build optional fields in literals and tests.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

package shipper

import (
	"time"

	"github.com/coinscope/coinscope/pkg/types"
)

// Cycle is everything one poll cycle produced.
type Cycle struct {
	SourceID   string
	VsCurrency string
	At         time.Time

	Coins       []types.CoinSnapshot
	Predictions []types.ScoredCoin
	Booming     []types.CoinSnapshot
	Safe        []types.CoinSnapshot
	Rates       []types.ExchangeRate
	Upstreams   []types.UpstreamStatus

	// Err is the market fetch error, if any. Coin lists are then dropped.
	Err error
}

// toSnapshot converts a Cycle into the wire record. List fields are never
// nil so consumers always see JSON arrays.
func toSnapshot(c *Cycle) *types.MarketSnapshot {
	snap := &types.MarketSnapshot{
		SourceID:    c.SourceID,
		Timestamp:   c.At.UTC(),
		VsCurrency:  c.VsCurrency,
		Coins:       orEmpty(c.Coins),
		Predictions: c.Predictions,
		Booming:     orEmpty(c.Booming),
		Safe:        orEmpty(c.Safe),
		Rates:       c.Rates,
		Upstreams:   c.Upstreams,
	}
	if snap.Predictions == nil {
		snap.Predictions = []types.ScoredCoin{}
	}
	if snap.Rates == nil {
		snap.Rates = []types.ExchangeRate{}
	}

	if c.Err != nil {
		snap.ErrorMessage = c.Err.Error()
		snap.Coins = []types.CoinSnapshot{}
		snap.Predictions = []types.ScoredCoin{}
		snap.Booming = []types.CoinSnapshot{}
		snap.Safe = []types.CoinSnapshot{}
	}
	return snap
}

func orEmpty(cs []types.CoinSnapshot) []types.CoinSnapshot {
	if cs == nil {
		return []types.CoinSnapshot{}
	}
	return cs
}

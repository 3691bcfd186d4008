package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coinscope/coinscope/pkg/types"
	"github.com/coinscope/coinscope/server/internal/userdata"
)

var errUnsupportedCurrency = errors.New("unsupported currency")

// quoteFor resolves the ?currency= parameter against snap's exchange rates.
// An empty currency, or the snapshot's own, needs no conversion.
func quoteFor(snap *types.MarketSnapshot, currency string) (Quote, error) {
	vs := strings.ToUpper(snap.VsCurrency)
	if vs == "" {
		vs = "USD"
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == vs {
		return Quote{Currency: vs, Rate: 1}, nil
	}
	r, ok := snap.RateFor(vs, currency)
	if !ok || r.Rate <= 0 {
		return Quote{}, fmt.Errorf("%w %q", errUnsupportedCurrency, currency)
	}
	return Quote{Currency: currency, Rate: r.Rate, Fallback: r.Fallback}, nil
}

// convertCoins returns copies of coins with monetary fields multiplied by
// rate. Percentages and ranks are currency-independent.
func convertCoins(coins []types.CoinSnapshot, rate float64) []types.CoinSnapshot {
	out := make([]types.CoinSnapshot, len(coins))
	for i, c := range coins {
		out[i] = convertCoin(c, rate)
	}
	return out
}

func convertCoin(c types.CoinSnapshot, rate float64) types.CoinSnapshot {
	if rate == 1 {
		return c
	}
	c.CurrentPrice *= rate
	c.MarketCap *= rate
	c.TotalVolume *= rate
	return c
}

// convertScored converts the embedded coins only. Scores were computed on
// USD prices and are left as they are.
func convertScored(scored []types.ScoredCoin, rate float64) []types.ScoredCoin {
	out := make([]types.ScoredCoin, len(scored))
	for i, s := range scored {
		s.Coin = convertCoin(s.Coin, rate)
		out[i] = s
	}
	return out
}

// scaleValue multiplies every monetary field of v by rate. P/L percentages
// are ratios and stay as they are.
func scaleValue(v userdata.PortfolioValue, rate float64) userdata.PortfolioValue {
	if rate == 1 {
		return v
	}
	r := decimal.NewFromFloat(rate)
	for i := range v.Holdings {
		h := &v.Holdings[i]
		h.Price = h.Price.Mul(r)
		h.Value = h.Value.Mul(r)
		h.Invested = h.Invested.Mul(r)
		h.PL = h.PL.Mul(r)
	}
	v.TotalValue = v.TotalValue.Mul(r)
	v.TotalInvested = v.TotalInvested.Mul(r)
	v.PL = v.PL.Mul(r)
	return v
}

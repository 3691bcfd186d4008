package predict

import (
	"math"
	"sort"

	"github.com/coinscope/coinscope/pkg/types"
)

// safeMinMarketCap is the market cap floor for the Safe screen.
const safeMinMarketCap = 1e9

// Booming returns up to n coins that are up over 24h, ordered by
// change × log10(volume), strongest first.
func Booming(coins []types.CoinSnapshot, n int) []types.CoinSnapshot {
	out := make([]types.CoinSnapshot, 0, len(coins))
	for _, c := range coins {
		if c.PriceChangePct24h > 0 && c.TotalVolume > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return boomKey(out[i]) > boomKey(out[j])
	})
	return truncate(out, n)
}

// Safe returns up to n large-cap coins ordered by combined 24h and 7d
// absolute change, calmest first.
func Safe(coins []types.CoinSnapshot, n int) []types.CoinSnapshot {
	out := make([]types.CoinSnapshot, 0, len(coins))
	for _, c := range coins {
		if c.MarketCap > safeMinMarketCap {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return swing(out[i]) < swing(out[j])
	})
	return truncate(out, n)
}

func boomKey(c types.CoinSnapshot) float64 {
	return c.PriceChangePct24h * math.Log10(c.TotalVolume)
}

func swing(c types.CoinSnapshot) float64 {
	return math.Abs(c.PriceChangePct24h) + math.Abs(c.Change7d())
}

func truncate(coins []types.CoinSnapshot, n int) []types.CoinSnapshot {
	if n > 0 && len(coins) > n {
		return coins[:n]
	}
	return coins
}

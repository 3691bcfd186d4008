package predict

import (
	"fmt"
	"math"

	"github.com/coinscope/coinscope/pkg/types"
)

// Signal categories.
const (
	CategoryVolume     = "volume"
	CategoryMomentum   = "momentum"
	CategoryTrend      = "trend"
	CategorySize       = "size"
	CategoryVolatility = "volatility"
	CategoryRank       = "rank"
	CategoryPrice      = "price"
)

// Signal strength tiers.
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
)

// Reason count bounds for a ScoredCoin.
const (
	minReasons = 3
	maxReasons = 4
)

// Signal is a justification produced when a factor crosses an interesting
// threshold. Signals are generated independently from the score.
type Signal struct {
	Category string
	Strength string
	Text     string
}

// Signals returns the natural signals for c in evaluation order.
func Signals(c types.CoinSnapshot) []Signal {
	var out []Signal

	ratio := c.VolumeRatio()
	switch {
	case ratio > volumeRatioHigh:
		out = append(out, Signal{CategoryVolume, StrengthStrong,
			fmt.Sprintf("Exceptional volume: %.0f%% of market cap", ratio*100)})
	case ratio > volumeRatioMid:
		out = append(out, Signal{CategoryVolume, StrengthModerate,
			fmt.Sprintf("Elevated volume: %.1f%% of market cap", ratio*100)})
	}

	change := c.PriceChangePct24h
	switch {
	case change > momentumHigh:
		out = append(out, Signal{CategoryMomentum, StrengthStrong,
			fmt.Sprintf("Strong uptrend: +%.1f%% in 24h", change)})
	case change > momentumMid:
		out = append(out, Signal{CategoryMomentum, StrengthModerate,
			fmt.Sprintf("Positive momentum: +%.1f%% in 24h", change)})
	}

	if s, ok := trendSignal(change, c.Change7d()); ok {
		out = append(out, s)
	}

	if sizePoints(c.MarketCap) == maxSize {
		out = append(out, Signal{CategorySize, StrengthModerate,
			fmt.Sprintf("Growth-stage size: $%s market cap", humanUSD(c.MarketCap))})
	}

	if v := math.Abs(change); v <= volatilityCalm {
		out = append(out, Signal{CategoryVolatility, StrengthModerate,
			fmt.Sprintf("Controlled volatility: %.1f%% move in 24h", v)})
	}

	if rank, ok := c.Rank(); ok {
		switch {
		case rank <= rankTop:
			out = append(out, Signal{CategoryRank, StrengthStrong,
				fmt.Sprintf("Top %d by market cap", rank)})
		case rank <= rankTracked:
			out = append(out, Signal{CategoryRank, StrengthModerate,
				fmt.Sprintf("Rank #%d, growing presence", rank)})
		}
	}

	return out
}

// trendSignal rewards a 24h move that is in line with the 7-day daily average,
// falling back to a plain 7-day gain signal.
func trendSignal(change24h, change7d float64) (Signal, bool) {
	if change7d > 0 && change24h > 0 {
		avgDaily := change7d / 7
		if change24h >= avgDaily*0.7 && change24h <= avgDaily*1.5 {
			return Signal{CategoryTrend, StrengthStrong, "Steady 7-day growth pattern"}, true
		}
	}
	if change7d > 15 && change7d < 60 {
		return Signal{CategoryTrend, StrengthModerate,
			fmt.Sprintf("%.1f%% gain in 7 days", change7d)}, true
	}
	return Signal{}, false
}

// reasons turns natural signals into the presentation list: at most
// maxReasons entries, padded with generic filler up to minReasons.
func reasons(c types.CoinSnapshot, sigs []Signal) []types.Reason {
	out := make([]types.Reason, 0, maxReasons)
	for _, s := range sigs {
		if len(out) == maxReasons {
			break
		}
		out = append(out, types.Reason{Category: s.Category, Text: s.Text})
	}

	for _, f := range filler(c) {
		if len(out) >= minReasons {
			break
		}
		out = append(out, f)
	}
	return out
}

// filler returns generic reasons in the order they are used for padding.
func filler(c types.CoinSnapshot) []types.Reason {
	rank := "Unranked"
	if r, ok := c.Rank(); ok {
		rank = fmt.Sprintf("Market rank: #%d", r)
	}
	return []types.Reason{
		{Category: CategoryRank, Text: rank},
		{Category: CategoryVolume, Text: "24h volume: $" + humanUSD(c.TotalVolume)},
		{Category: CategorySize, Text: "Market cap: $" + humanUSD(c.MarketCap)},
		{Category: CategoryPrice, Text: fmt.Sprintf("Price: $%.4g", c.CurrentPrice)},
	}
}

// humanUSD abbreviates x with a K/M/B/T suffix.
func humanUSD(x float64) string {
	ax := math.Abs(x)
	switch {
	case ax >= 1e12:
		return fmt.Sprintf("%.2fT", x/1e12)
	case ax >= 1e9:
		return fmt.Sprintf("%.2fB", x/1e9)
	case ax >= 1e6:
		return fmt.Sprintf("%.2fM", x/1e6)
	case ax >= 1e3:
		return fmt.Sprintf("%.2fK", x/1e3)
	default:
		return fmt.Sprintf("%.2f", x)
	}
}

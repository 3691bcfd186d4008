package predict

import (
	"math"

	"github.com/coinscope/coinscope/pkg/types"
)

// Point budgets per factor. The budgets sum to 100.
const (
	maxVolume     = 25
	maxMomentum   = 30
	maxSize       = 15
	maxVolatility = 15
	maxRank       = 15
)

// Factor thresholds.
const (
	volumeRatioHigh = 0.20
	volumeRatioMid  = 0.10

	momentumHigh = 15.0
	momentumMid  = 7.0
	momentumLow  = 3.0

	// Market cap bands, in billions of quote currency.
	growthCapMinB      = 0.1
	growthCapMaxB      = 10.0
	establishedCapMaxB = 50.0

	// Volatility steps share the momentum thresholds so that, for positive
	// moves, momentum+volatility never decreases as the move grows.
	volatilityCalm     = momentumMid
	volatilityModerate = momentumHigh

	rankTop     = 50
	rankMid     = 100
	rankTracked = 150
)

// Pre-filter floor.
const minMarketCap = 1_000_000

// Breakdown holds the per-factor sub-scores for one coin.
// Useful for rendering per-factor bars in a UI.
type Breakdown struct {
	Volume     float64 `json:"volume"`
	Momentum   float64 `json:"momentum"`
	Size       float64 `json:"size"`
	Volatility float64 `json:"volatility"`
	Rank       float64 `json:"rank"`

	// Total is round(clip(sum, 0, 100)).
	Total int `json:"total"`
}

// Eligible reports whether c carries enough data to be scored.
// The second return value explains a rejection.
func Eligible(c types.CoinSnapshot) (bool, string) {
	if c.MarketCap <= minMarketCap {
		return false, "market cap <= $1M"
	}
	if c.TotalVolume <= 0 {
		return false, "no 24h volume"
	}
	if c.CurrentPrice <= 0 {
		return false, "no price"
	}
	return true, ""
}

// Compute scores c against the weight table. It does not apply the
// pre-filter; callers that need it should check Eligible first.
//
//	volume/cap ratio   > 0.20 → 25   > 0.10 → 12
//	24h change         > 15%  → 30   > 7%   → 20   > 3% → 8
//	market cap         0.1B–10B → 15   10B–50B → 8
//	|24h change|       ≤ 7%   → 15   ≤ 15%  → 8
//	rank               ≤ 50   → 15   ≤ 100  → 8    ≤ 150 → 4
func Compute(c types.CoinSnapshot) Breakdown {
	b := Breakdown{
		Volume:     volumePoints(c.VolumeRatio()),
		Momentum:   momentumPoints(c.PriceChangePct24h),
		Size:       sizePoints(c.MarketCap),
		Volatility: volatilityPoints(c.PriceChangePct24h),
		Rank:       rankPoints(c),
	}
	sum := b.Volume + b.Momentum + b.Size + b.Volatility + b.Rank
	b.Total = int(math.Round(clamp(sum, 0, 100)))
	return b
}

func volumePoints(ratio float64) float64 {
	switch {
	case ratio > volumeRatioHigh:
		return maxVolume
	case ratio > volumeRatioMid:
		return 12
	default:
		return 0
	}
}

func momentumPoints(change float64) float64 {
	switch {
	case change > momentumHigh:
		return maxMomentum
	case change > momentumMid:
		return 20
	case change > momentumLow:
		return 8
	default:
		return 0
	}
}

func sizePoints(marketCap float64) float64 {
	capB := marketCap / 1e9
	switch {
	case capB > growthCapMinB && capB <= growthCapMaxB:
		return maxSize
	case capB > growthCapMaxB && capB <= establishedCapMaxB:
		return 8
	default:
		return 0
	}
}

func volatilityPoints(change float64) float64 {
	v := math.Abs(change)
	switch {
	case v <= volatilityCalm:
		return maxVolatility
	case v <= volatilityModerate:
		return 8
	default:
		return 0
	}
}

func rankPoints(c types.CoinSnapshot) float64 {
	rank, ok := c.Rank()
	if !ok {
		return 0
	}
	switch {
	case rank <= rankTop:
		return maxRank
	case rank <= rankMid:
		return 8
	case rank <= rankTracked:
		return 4
	default:
		return 0
	}
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package predict

import (
	"fmt"
	"math"
	"sort"

	"github.com/coinscope/coinscope/pkg/types"
)

// DefaultLimit is the number of coins Rank returns when Options.Limit is zero.
const DefaultLimit = 5

// Mode selects the ranking key.
type Mode string

const (
	// ModeScore ranks by score alone.
	ModeScore Mode = "score"

	// ModeBlended keeps only coins with score >= 40 and confidence >= 50 and
	// ranks them by 0.6*score + 0.4*confidence.
	ModeBlended Mode = "blended"
)

// Blended mode parameters.
const (
	blendScoreWeight      = 0.6
	blendConfidenceWeight = 0.4
	blendMinScore         = 40
	blendMinConfidence    = 50
)

// Options controls Rank.
type Options struct {
	Limit int
	Mode  Mode
}

// ParseMode maps a config string to a Mode. An empty string means ModeScore.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeScore:
		return ModeScore, nil
	case ModeBlended:
		return ModeBlended, nil
	default:
		return "", fmt.Errorf("predict: unknown mode %q", s)
	}
}

// Analyze scores a single coin and attaches reasons, confidence and a
// recommendation. It does not apply the pre-filter.
func Analyze(c types.CoinSnapshot) types.ScoredCoin {
	sigs := Signals(c)
	score := Compute(c).Total
	conf := Confidence(c, sigs)
	return types.ScoredCoin{
		Coin:           c,
		Score:          score,
		Reasons:        reasons(c, sigs),
		Confidence:     conf,
		Recommendation: Recommend(score, conf),
	}
}

// Rank filters, scores and orders coins, returning at most opts.Limit entries.
//
// Ties keep input order. The result is never nil; an empty result means no
// coin qualified and is not an error.
func Rank(coins []types.CoinSnapshot, opts Options) []types.ScoredCoin {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	scored := make([]types.ScoredCoin, 0, len(coins))
	for _, c := range coins {
		if ok, _ := Eligible(c); !ok {
			continue
		}
		sc := Analyze(c)
		if opts.Mode == ModeBlended && (sc.Score < blendMinScore || sc.Confidence < blendMinConfidence) {
			continue
		}
		scored = append(scored, sc)
	}

	key := func(sc types.ScoredCoin) float64 { return float64(sc.Score) }
	if opts.Mode == ModeBlended {
		key = blendedKey
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return key(scored[i]) > key(scored[j])
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// blendedKey is the ModeBlended sort key.
func blendedKey(sc types.ScoredCoin) float64 {
	return float64(sc.Score)*blendScoreWeight + sc.Confidence*blendConfidenceWeight
}

// Confidence computes the secondary axis from the coin and its natural
// signals (before padding or truncation).
//
//	50 + 8/signal + 7/strong signal
//	   + 10 if cap > $10B, + 5 if cap > $1B
//	   − 15 if |24h| > 20%, − 7 if |24h| > 10%
func Confidence(c types.CoinSnapshot, sigs []Signal) float64 {
	conf := 50.0
	conf += float64(len(sigs)) * 8
	for _, s := range sigs {
		if s.Strength == StrengthStrong {
			conf += 7
		}
	}

	switch {
	case c.MarketCap > 10e9:
		conf += 10
	case c.MarketCap > 1e9:
		conf += 5
	}

	switch v := math.Abs(c.PriceChangePct24h); {
	case v > 20:
		conf -= 15
	case v > 10:
		conf -= 7
	}

	return clamp(conf, 0, 100)
}

// Recommend maps score and confidence to a coarse label.
func Recommend(score int, confidence float64) types.Recommendation {
	switch {
	case score >= 70 && confidence >= 70:
		return types.Recommendation{Level: "strong", Text: "Strong buy signal"}
	case score >= 55 && confidence >= 60:
		return types.Recommendation{Level: "moderate", Text: "Potential opportunity"}
	case score >= 40:
		return types.Recommendation{Level: "watch", Text: "Monitor closely"}
	default:
		return types.Recommendation{Level: "weak", Text: "Low confidence"}
	}
}

// Package predict ranks coins by a deterministic weighted-sum heuristic.
//
// score.go holds the pure Compute(CoinSnapshot) function and the weight
// table: five independent sub-scores (volume/cap ratio 25, 24h momentum 30,
// market-cap bracket 15, low volatility 15, rank 15), summed, clipped to
// 0–100 and rounded. Eligible is the pre-filter (cap > $1M, volume > 0,
// price > 0).
//
// signals.go generates human-readable signals independently of the score and
// turns them into 3–4 reasons. Padding with filler reasons is presentation
// only and never feeds the score.
//
// engine.go provides Analyze (one coin) and Rank (filter, score, stable sort,
// top-K). ModeBlended adds the confidence axis as a filter and sort key.
//
// screens.go provides the Booming and Safe screens shown beside predictions.
//
// Nothing in this package performs I/O or keeps state.
package predict

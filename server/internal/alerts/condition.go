package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coinscope/coinscope/pkg/types"
)

// Condition is a compiled "field op value" rule expression.
//
// Supported fields:
//
//	price          current price in the snapshot's vs currency
//	change_24h     24h price change, percent
//	change_7d      7d price change, percent (0 when absent)
//	volume_ratio   24h volume / market cap
//	market_cap     market capitalisation
//	rank           market-cap rank (never matches when absent)
//
// Operators: > >= < <= ==
type Condition struct {
	Field     string
	Op        string
	Threshold float64
}

var fields = map[string]func(types.CoinSnapshot) (float64, bool){
	"price":        func(c types.CoinSnapshot) (float64, bool) { return c.CurrentPrice, true },
	"change_24h":   func(c types.CoinSnapshot) (float64, bool) { return c.PriceChangePct24h, true },
	"change_7d":    func(c types.CoinSnapshot) (float64, bool) { return c.Change7d(), true },
	"volume_ratio": func(c types.CoinSnapshot) (float64, bool) { return c.VolumeRatio(), true },
	"market_cap":   func(c types.CoinSnapshot) (float64, bool) { return c.MarketCap, true },
	"rank": func(c types.CoinSnapshot) (float64, bool) {
		r, ok := c.Rank()
		return float64(r), ok
	},
}

// ParseCondition compiles expr. It fails on unknown fields or operators and
// on a non-numeric threshold.
func ParseCondition(expr string) (Condition, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want \"field op value\"", expr)
	}
	c := Condition{Field: parts[0], Op: parts[1]}
	if _, ok := fields[c.Field]; !ok {
		return Condition{}, fmt.Errorf("condition %q: unknown field %q", expr, c.Field)
	}
	switch c.Op {
	case ">", ">=", "<", "<=", "==":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", expr, c.Op)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: threshold: %w", expr, err)
	}
	c.Threshold = v
	return c, nil
}

// String renders the condition back to its source form.
func (c Condition) String() string {
	return c.Field + " " + c.Op + " " + strconv.FormatFloat(c.Threshold, 'f', -1, 64)
}

// Eval reports whether coin satisfies c, and the field value it compared.
func (c Condition) Eval(coin types.CoinSnapshot) (bool, float64) {
	get, ok := fields[c.Field]
	if !ok {
		return false, 0
	}
	v, present := get(coin)
	if !present {
		return false, 0
	}
	return compareFloat(v, c.Op, c.Threshold), v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}

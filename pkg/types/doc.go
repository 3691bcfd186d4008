// Package types defines the records shared by the agent and the server.
//
// CoinSnapshot is one coin's market data at fetch time, decoded straight from
// the CoinGecko /coins/markets payload. Optional upstream fields are pointers
// so "absent" and "zero" stay distinguishable.
//
// ScoredCoin is the scoring engine's output for one snapshot. MarketSnapshot is
// the envelope the agent ships to the server once per poll cycle; it is
// JSON-encoded on the wire (see package rpc).
package types

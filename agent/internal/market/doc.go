// Package market talks to the upstream HTTP APIs the agent depends on.
//
// Client.Markets fetches the top coins by market cap from a
// CoinGecko-compatible /coins/markets endpoint. RatesClient fetches
// currency exchange rates and falls back to a configured constant, flagged
// as such, when the provider fails.
//
// Both clients share two explicitly constructed helpers:
//   - Cache: a TTL cache keyed by request URL with an injectable clock
//   - a golang.org/x/time/rate token bucket (NewLimiter) that every request
//     to the upstream waits on
//
// A cache hit returns before the limiter is consulted. An optional Recorder
// receives per-endpoint request outcomes, latency and cache hits.
//
// Probe and Upstream inspect the TLS certificate of an API root so that
// expiring or unreachable upstreams show up in the snapshot.
package market

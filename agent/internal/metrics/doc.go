// Package metrics exposes the agent's own Prometheus metrics.
//
// Collectors live on a private registry created by New, so tests and
// multiple agents in one process never collide on the default registry.
// The market client reports upstream requests and cache hits through
// ObserveRequest and CacheHit; the poll loop reports cycles through
// ObserveCycle. Serve mounts the registry at /metrics.
package metrics

package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	FetchLatency     *prometheus.HistogramVec
	Cycles           *prometheus.CounterVec
	Predictions      prometheus.Gauge
	TopScore         prometheus.Gauge
	ShipDropped      prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		UpstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinscope_upstream_requests_total",
			Help: "Requests sent to upstream market APIs",
		}, []string{"endpoint", "outcome"}),

		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinscope_cache_hits_total",
			Help: "Upstream responses served from the local cache",
		}, []string{"endpoint"}),

		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coinscope_fetch_latency_seconds",
			Help:    "Latency of upstream HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		Cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinscope_poll_cycles_total",
			Help: "Completed poll cycles by outcome",
		}, []string{"outcome"}),

		Predictions: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinscope_predictions",
			Help: "Number of coins in the latest prediction list",
		}),

		TopScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinscope_top_score",
			Help: "Score of the highest ranked coin in the latest cycle",
		}),

		ShipDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "coinscope_ship_dropped_total",
			Help: "Snapshots dropped because the send buffer was full",
		}),
	}
}

// ObserveRequest records one upstream request. outcome is "ok" or "error".
func (m *Metrics) ObserveRequest(endpoint, outcome string, d time.Duration) {
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.FetchLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// CacheHit records a response served without contacting the upstream.
func (m *Metrics) CacheHit(endpoint string) {
	m.CacheHits.WithLabelValues(endpoint).Inc()
}

// ObserveCycle records the result of one poll cycle.
func (m *Metrics) ObserveCycle(outcome string, predictions, topScore int) {
	m.Cycles.WithLabelValues(outcome).Inc()
	m.Predictions.Set(float64(predictions))
	m.TopScore.Set(float64(topScore))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	slog.Info("metrics: listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve: %w", err)
	}
	return nil
}

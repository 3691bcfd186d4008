package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coinscope/coinscope/agent/internal/config"
	"github.com/coinscope/coinscope/agent/internal/predict"
	"github.com/coinscope/coinscope/agent/internal/shipper"
	"github.com/coinscope/coinscope/pkg/types"
)

// MarketSource returns the current top coins.
type MarketSource interface {
	Markets(ctx context.Context) ([]types.CoinSnapshot, error)
	BaseURL() string
}

// RateSource returns the configured exchange rates. It never fails.
type RateSource interface {
	All(ctx context.Context) []types.ExchangeRate
}

// Sink receives each finished cycle. *shipper.Shipper satisfies it.
type Sink interface {
	Ship(c *shipper.Cycle)
}

// Observer is told the outcome of each cycle. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveCycle(outcome string, predictions, topScore int)
}

// UpstreamFunc describes the reachability of one upstream.
type UpstreamFunc func(ctx context.Context, name, endpoint string, fetchErr error) types.UpstreamStatus

// Settings are the hot-reloadable parts of the predict config.
type Settings struct {
	Options predict.Options
	Booming int
	Safe    int
}

// SettingsFrom converts the predict config section. An unknown mode falls
// back to score ranking.
func SettingsFrom(pc config.PredictConfig) Settings {
	mode, err := predict.ParseMode(pc.Mode)
	if err != nil {
		slog.Warn("poller: unknown predict mode, using score", "mode", pc.Mode)
		mode = predict.ModeScore
	}
	return Settings{
		Options: predict.Options{Limit: pc.Limit, Mode: mode},
		Booming: pc.Booming,
		Safe:    pc.Safe,
	}
}

// Poller runs the fetch → rank → ship cycle.
type Poller struct {
	sourceID   string
	vsCurrency string
	market     MarketSource
	rates      RateSource
	sink       Sink
	obs        Observer
	upstream   UpstreamFunc
	now        func() time.Time

	mu       sync.RWMutex
	settings Settings
}

// New wires a Poller. upstream may be nil to skip upstream probing.
func New(cfg config.AgentConfig, market MarketSource, rates RateSource, sink Sink, obs Observer, upstream UpstreamFunc) *Poller {
	return &Poller{
		sourceID:   cfg.SourceID,
		vsCurrency: cfg.Market.VsCurrency,
		market:     market,
		rates:      rates,
		sink:       sink,
		obs:        obs,
		upstream:   upstream,
		now:        time.Now,
		settings:   SettingsFrom(cfg.Predict),
	}
}

// SetSettings replaces the predict settings used from the next cycle on.
func (p *Poller) SetSettings(s Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
}

// Settings returns the active predict settings.
func (p *Poller) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// Once runs a single cycle and hands the result to the sink.
func (p *Poller) Once(ctx context.Context) *shipper.Cycle {
	st := p.Settings()
	c := &shipper.Cycle{
		SourceID:   p.sourceID,
		VsCurrency: p.vsCurrency,
		At:         p.now(),
	}

	coins, err := p.market.Markets(ctx)
	if err != nil {
		c.Err = err
		slog.Warn("poller: market fetch failed", "err", err)
	} else {
		c.Coins = coins
		c.Predictions = predict.Rank(coins, st.Options)
		c.Booming = predict.Booming(coins, st.Booming)
		c.Safe = predict.Safe(coins, st.Safe)
	}
	c.Rates = p.rates.All(ctx)

	if p.upstream != nil {
		c.Upstreams = []types.UpstreamStatus{p.upstream(ctx, "market", p.market.BaseURL(), err)}
	}

	p.observe(c)
	p.sink.Ship(c)
	return c
}

func (p *Poller) observe(c *shipper.Cycle) {
	outcome, top := "ok", 0
	switch {
	case c.Err != nil:
		outcome = "error"
	case len(c.Predictions) == 0:
		outcome = "empty"
	default:
		top = c.Predictions[0].Score
	}
	if p.obs != nil {
		p.obs.ObserveCycle(outcome, len(c.Predictions), top)
	}
	slog.Info("poller: cycle complete",
		"outcome", outcome,
		"coins", len(c.Coins),
		"predictions", len(c.Predictions),
		"top_score", top)
}

// Run executes a cycle immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	p.Once(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Once(ctx)
		}
	}
}

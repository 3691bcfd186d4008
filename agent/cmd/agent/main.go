package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coinscope/coinscope/agent/internal/config"
	"github.com/coinscope/coinscope/agent/internal/market"
	"github.com/coinscope/coinscope/agent/internal/metrics"
	"github.com/coinscope/coinscope/agent/internal/poller"
	"github.com/coinscope/coinscope/agent/internal/shipper"
	"github.com/coinscope/coinscope/pkg/logging"
)

func main() {
	configPath := flag.String("config", "agent.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional .env file with secrets")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := config.LoadEnv(*envFile); err != nil {
		slog.Error("failed to load env file", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	a := cfg.Agent

	logger, closer, err := logging.New(a.Log)
	if err != nil {
		slog.Error("failed to build logger", "err", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	slog.Info("coinscope-agent starting",
		"config", *configPath,
		"source_id", a.SourceID,
		"server_endpoint", a.ServerEndpoint,
		"poll_interval", a.PollInterval,
		"vs_currency", a.Market.VsCurrency,
		"predict_mode", a.Predict.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	if a.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, a.MetricsAddr); err != nil {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
	}

	mc := market.New(a.Market, market.WithRecorder(m))
	rc := market.NewRates(a.Rates, a.Market.CacheTTL, a.Market.Timeout, market.WithRatesRecorder(m))

	ship := shipper.New(a, m.ShipDropped.Inc)
	go ship.Run(ctx)

	p := poller.New(a, mc, rc, ship, m, market.Upstream)

	// Predict settings are hot-reloadable; everything else needs a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			p.SetSettings(poller.SettingsFrom(updated.Agent.Predict))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	go p.Run(ctx, a.PollInterval)

	<-ctx.Done()
	slog.Info("coinscope-agent shutting down", "pending_snapshots", ship.Pending())
}

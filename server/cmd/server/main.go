package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/coinscope/coinscope/pkg/logging"
	"github.com/coinscope/coinscope/pkg/rpc"
	"github.com/coinscope/coinscope/server/internal/alerts"
	"github.com/coinscope/coinscope/server/internal/api"
	"github.com/coinscope/coinscope/server/internal/auth"
	"github.com/coinscope/coinscope/server/internal/config"
	"github.com/coinscope/coinscope/server/internal/receiver"
	"github.com/coinscope/coinscope/server/internal/store"
	"github.com/coinscope/coinscope/server/internal/userdata"
	"github.com/coinscope/coinscope/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
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
	s := cfg.Server

	logger, closer, err := logging.New(s.Log)
	if err != nil {
		slog.Error("failed to build logger", "err", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	slog.Info("coinscope-server starting",
		"config", *configPath,
		"grpc_port", s.GRPCPort,
		"http_port", s.HTTPPort,
		"auth_mode", s.Auth.Mode,
		"snapshot_ttl", s.Snapshot.TTL,
		"storage", s.Storage.Backend,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Snapshot store with background TTL eviction.
	st := store.New(s.Snapshot.TTL)
	go st.Run(ctx)

	// User data: watchlist, portfolio, price alerts, preferences.
	backend, err := userdata.NewBackend(ctx, s.Storage)
	if err != nil {
		slog.Error("failed to open user data backend", "err", err)
		os.Exit(1)
	}
	if c, ok := backend.(io.Closer); ok {
		defer c.Close()
	}
	user := userdata.New(backend)

	alertEngine, err := alerts.New(s.Alerts)
	if err != nil {
		slog.Error("invalid alert rules", "err", err)
		os.Exit(1)
	}

	// WebSocket hub: snapshots every broadcast interval, alerts as they fire.
	hub := ws.New(st, s.BroadcastInterval)
	alertEngine.OnNotify(func(n alerts.Notification) { hub.Publish(ws.EventAlert, n) })
	go hub.Run(ctx)

	checker := auth.New(s.Auth)

	transport, err := auth.ServerOptions(s.Auth)
	if err != nil {
		slog.Error("failed to set up gRPC transport", "err", err)
		os.Exit(1)
	}
	grpcSrv := grpc.NewServer(append(transport, grpc.UnaryInterceptor(checker.UnaryInterceptor()))...)
	rpc.RegisterSnapshotServer(grpcSrv, receiver.New(st, alertEngine, user))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port", "port", s.GRPCPort, "err", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("gRPC receiver listening", "port", s.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	handler := api.New(st, api.Options{
		Alerts: alertEngine,
		User:   user,
		Auth:   checker.Middleware,
		WS:     hub,
	})
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", s.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("coinscope-server shutting down")
	grpcSrv.GracefulStop()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

// GalaSwap rebalancing agent — an autonomous trading agent for a
// concentrated-liquidity DEX that maximizes holdings of an
// operator-designated preferred token while preserving a gas reserve.
//
// Architecture:
//
//	main.go                      — entry point: loads config, starts engine, waits for SIGINT/SIGTERM
//	internal/engine/engine.go    — orchestrator: rebalance loop, arbitrage loop, notification consumer
//	internal/balance/balance.go  — reads wallet inventory, derives prioritized rebalancing intents
//	internal/executor/executor.go — runs trade intents and arbitrage opportunities against the gateway
//	internal/arbitrage/detector.go — scans the pool cache for circular arbitrage opportunities
//	internal/pathfinder/pathfinder.go — enumerates circular paths and simulates their profitability
//	internal/quote/quote.go     — offline exact-input swap simulation over a cached pool snapshot
//	internal/poolcache/poolcache.go — TTL'd, single-flighted pool snapshot cache
//	internal/registry/registry.go — static token/pool catalog loaded from CSV
//	internal/transport/*        — HTTP gateway client + transaction-notification channel
//	internal/api/*              — HTTP control surface (status/start/stop/config)
//
// How it makes money:
//
//	The agent periodically converts a fraction of every non-preferred,
//	non-gas token balance into the preferred token (dollar-cost averaging),
//	refills the gas reserve first when it runs low, and opportunistically
//	executes circular multi-hop arbitrage across the pool graph when it
//	detects a profitable cycle.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"galaswap-agent/internal/api"
	"galaswap-agent/internal/config"
	"galaswap-agent/internal/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		if config.IsMissingSecret(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		if config.IsMissingSecret(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	apiServer := api.NewServer(cfg, eng, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("control surface failed", "error", err)
		}
	}()
	logger.Info("control surface started", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	if !cfg.EnableTrading {
		logger.Warn("DRY-RUN MODE — no real swaps will be submitted")
	}

	logger.Info("galaswap agent started",
		"preferred_token", cfg.PreferredTokenKey.String(),
		"gas_token", cfg.GasTokenKey.String(),
		"arbitrage_enabled", cfg.EnableArbitrage,
		"enable_trading", cfg.EnableTrading,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if err := apiServer.Stop(); err != nil {
		logger.Error("failed to stop control surface", "error", err)
	}

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

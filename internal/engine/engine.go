// Package engine is the central orchestrator of the rebalancing agent.
//
// It wires together all subsystems:
//
//  1. Registry supplies the static token/pool catalog.
//  2. Balance manager reads wallet inventory and derives trade intents.
//  3. Executor runs intents and arbitrage opportunities against the
//     transport gateway.
//  4. Arbitrage detector scans the pool cache for circular opportunities.
//  5. The notification channel delivers terminal transaction outcomes.
//
// Lifecycle: New() → Start() → [runs until Stop()] → Stop()
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/arbitrage"
	"galaswap-agent/internal/balance"
	"galaswap-agent/internal/config"
	"galaswap-agent/internal/executor"
	"galaswap-agent/internal/poolcache"
	"galaswap-agent/internal/registry"
	"galaswap-agent/internal/transport"
	"galaswap-agent/pkg/types"
)

const recentHistoryLimit = 50

// Engine orchestrates all components of the rebalancing agent. It owns the
// lifecycle of all goroutines and exposes a point-in-time status snapshot.
type Engine struct {
	cfg      *config.Config
	gateway  *transport.Gateway
	notifier *transport.NotificationChannel
	pools    *poolcache.Cache
	registry *registry.Registry
	balances *balance.Manager
	exec     *executor.Executor
	detector *arbitrage.Detector
	logger   *slog.Logger

	arbMaxHops      int
	arbMinLiquidity decimal.Decimal
	arbNotional     decimal.Decimal
	arbMinProfitPct decimal.Decimal

	mu              sync.Mutex
	running         bool
	startedAt       time.Time
	lastBalance     types.BalanceSummary
	haveBalance     bool
	lastTradeTime   time.Time
	lastArbScanTime time.Time
	tradeHistory    []types.TradeResult
	tradeVolume     decimal.Decimal

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires all engine components from a loaded, validated configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	logger = logger.With("component", "engine")

	gateway := transport.NewGateway(cfg, logger)
	notifier := transport.NewNotificationChannel(transport.NotificationURL(cfg.BundlerBaseURL), logger)

	reg, err := registry.Load(cfg.TokensCSVPath, cfg.PoolsCSVPath)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(cfg.ArbitragePoolCacheTTLMs) * time.Millisecond
	pools := poolcache.New(gateway, ttl)

	minGasBalance := decimal.NewFromFloat(cfg.MinimumGalaBalance)
	tradeAmountPct := decimal.NewFromFloat(cfg.TradeAmountPercentage)
	maxSlippage := decimal.NewFromFloat(cfg.MaxSlippage)

	balMgr := balance.New(gateway, cfg.WalletAddress, cfg.PreferredTokenKey, cfg.GasTokenKey, minGasBalance, tradeAmountPct)

	signer := executor.NewStaticSigner(cfg.WalletAddress)
	txTimeout := time.Duration(cfg.TransactionTimeoutMs) * time.Millisecond
	exec := executor.New(gateway, notifier, signer, reg, cfg.GasTokenKey, maxSlippage, txTimeout, cfg.EnableTrading, logger)

	detector := arbitrage.New(pools, reg, logger)

	return &Engine{
		cfg:             cfg,
		gateway:         gateway,
		notifier:        notifier,
		pools:           pools,
		registry:        reg,
		balances:        balMgr,
		exec:            exec,
		detector:        detector,
		logger:          logger,
		arbMaxHops:      cfg.ArbitrageMaxHops,
		arbMinLiquidity: decimal.NewFromFloat(cfg.ArbitrageMinLiquidity),
		arbNotional:     decimal.NewFromFloat(cfg.ArbitrageMaxTradeSize),
		arbMinProfitPct: decimal.NewFromFloat(cfg.ArbitrageMinProfitPercent),
		tradeVolume:     decimal.Zero,
	}, nil
}

// Start launches the notification consumer and both periodic loops. It is
// idempotent: calling Start on an already-running engine is a benign no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		e.logger.Info("start: already running")
		return nil
	}
	e.running = true
	e.startedAt = time.Now()
	e.ctx, e.cancel = context.WithCancel(context.Background())
	ctx := e.ctx
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.notifier.Run(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("notification channel error", "error", err)
		}
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.rebalanceLoop(ctx)
	}()

	if e.cfg.EnableArbitrage {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.arbitrageLoop(ctx)
		}()
	}

	e.logger.Info("engine started",
		"trade_interval_ms", e.cfg.TradeIntervalMs,
		"arbitrage_enabled", e.cfg.EnableArbitrage,
		"enable_trading", e.cfg.EnableTrading,
	)
	return nil
}

// Stop cancels both loop tasks and waits for them to finish. Idempotent:
// calling Stop on a stopped engine is a benign no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		e.logger.Info("stop: already stopped")
		return
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	e.logger.Info("shutting down...")
	cancel()
	e.wg.Wait()
	e.notifier.Close()
	e.logger.Info("shutdown complete")
}

// rebalanceLoop ticks at tradeInterval, firing immediately on start. A tick
// that would overlap the prior tick's execution waits for it to return
// first, since each iteration runs the full body before re-arming the timer.
func (e *Engine) rebalanceLoop(ctx context.Context) {
	interval := time.Duration(e.cfg.TradeIntervalMs) * time.Millisecond

	for {
		e.runRebalanceTick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (e *Engine) runRebalanceTick(ctx context.Context) {
	summary, err := e.balances.FetchBalances(ctx)
	if err != nil {
		e.logger.Error("rebalance tick: fetch balances failed", "error", err)
		return
	}

	e.mu.Lock()
	e.lastBalance = summary
	e.haveBalance = true
	e.mu.Unlock()

	intents := e.balances.DeriveIntents(summary)
	if len(intents) == 0 {
		e.logger.Info("no trades")
		return
	}

	ordered := balance.SortForExecution(intents)
	results := e.exec.ExecuteBatch(ctx, ordered)

	e.mu.Lock()
	now := time.Now()
	e.lastTradeTime = now
	for _, r := range results {
		e.appendTradeHistoryLocked(r)
		if r.Success && r.HasAmountOut {
			e.tradeVolume = e.tradeVolume.Add(r.AmountIn)
		}
	}
	e.mu.Unlock()

	// Refetch balances for status, per spec.md §4.9.
	if refreshed, err := e.balances.FetchBalances(ctx); err == nil {
		e.mu.Lock()
		e.lastBalance = refreshed
		e.mu.Unlock()
	} else {
		e.logger.Warn("rebalance tick: post-trade balance refresh failed", "error", err)
	}
}

// arbitrageLoop ticks at arbitrageCheckInterval, firing immediately on
// start, only when enableArbitrage is set.
func (e *Engine) arbitrageLoop(ctx context.Context) {
	interval := time.Duration(e.cfg.ArbitrageCheckIntervalMs) * time.Millisecond

	for {
		e.runArbitrageTick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (e *Engine) runArbitrageTick(ctx context.Context) {
	opportunities := e.detector.Scan(
		ctx,
		e.cfg.GasTokenKey,
		e.arbMaxHops,
		e.arbMinLiquidity,
		e.arbNotional,
		e.arbMinProfitPct,
	)

	e.mu.Lock()
	e.lastArbScanTime = time.Now()
	e.mu.Unlock()

	if len(opportunities) > 0 {
		top := opportunities[0]
		result := e.exec.ExecuteArbitrage(ctx, top, e.arbMinProfitPct)
		e.detector.RecordExecution(result)

		e.mu.Lock()
		for _, hop := range result.HopResults {
			e.appendTradeHistoryLocked(hop)
		}
		e.mu.Unlock()
	}

	e.pools.EvictExpired()
}

func (e *Engine) appendTradeHistoryLocked(r types.TradeResult) {
	e.tradeHistory = append(e.tradeHistory, r)
	if len(e.tradeHistory) > recentHistoryLimit {
		e.tradeHistory = e.tradeHistory[len(e.tradeHistory)-recentHistoryLimit:]
	}
}

// Status is a point-in-time snapshot of engine state, produced without
// blocking on external I/O.
type Status struct {
	Running             bool
	Uptime              time.Duration
	HaveBalance         bool
	LastBalance         types.BalanceSummary
	LastTradeTime       time.Time
	LastArbScanTime     time.Time
	SuccessRate         float64
	TradeVolume         decimal.Decimal
	RecentTrades        []types.TradeResult
	RecentOpportunities []types.ArbitrageOpportunity
	RecentExecutions    []types.ArbitrageResult
	Stats               arbitrage.Stats
	ConfigSummary       config.Summary
}

// Status builds the current status snapshot. A pure read over engine
// state, O(recent-history-size), never blocks on external I/O.
func (e *Engine) Status() Status {
	e.mu.Lock()
	running := e.running
	startedAt := e.startedAt
	lastBalance := e.lastBalance
	haveBalance := e.haveBalance
	lastTradeTime := e.lastTradeTime
	lastArbScanTime := e.lastArbScanTime
	tradeVolume := e.tradeVolume
	trades := make([]types.TradeResult, len(e.tradeHistory))
	copy(trades, e.tradeHistory)
	e.mu.Unlock()

	var uptime time.Duration
	if running {
		uptime = time.Since(startedAt)
	}

	stats, successRate := e.detector.Snapshot()

	opportunities := e.detector.DetectionHistory()
	if len(opportunities) > recentHistoryLimit {
		opportunities = opportunities[len(opportunities)-recentHistoryLimit:]
	}
	executions := e.detector.ExecutionHistory()
	if len(executions) > recentHistoryLimit {
		executions = executions[len(executions)-recentHistoryLimit:]
	}

	return Status{
		Running:             running,
		Uptime:              uptime,
		HaveBalance:         haveBalance,
		LastBalance:         lastBalance,
		LastTradeTime:       lastTradeTime,
		LastArbScanTime:     lastArbScanTime,
		SuccessRate:         successRate,
		TradeVolume:         tradeVolume,
		RecentTrades:        trades,
		RecentOpportunities: opportunities,
		RecentExecutions:    executions,
		Stats:               stats,
		ConfigSummary:       config.NewSummary(e.cfg),
	}
}

// Package arbitrage implements the arbitrage detector (C6): orchestrates
// the pool cache, path finder, and profit calculator into a single scan,
// and maintains bounded detection/execution history plus derived
// statistics. Grounded on the teacher's internal/risk/manager.go
// report-channel-plus-snapshot shape, generalized from kill-switch
// bookkeeping to opportunity/execution bookkeeping.
package arbitrage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/pathfinder"
	"galaswap-agent/internal/registry"
	"galaswap-agent/pkg/types"
)

const defaultHistoryCap = 1000

// PoolFetcher supplies pool snapshots for a scan; implemented by
// *poolcache.Cache in production.
type PoolFetcher interface {
	Get(ctx context.Context, t0, t1 types.TokenKey, fee types.FeeTier) (*types.PoolSnapshot, error)
}

// Stats mirrors the execution statistics named in spec.md §4.6, enriched
// with the cycle-level counters surfaced in jonasrmichel-gswap-arb's
// BotStats (total detected/executed split further into cycles scanned).
type Stats struct {
	TotalScans              int64
	TotalDetected            int64
	TotalExecuted            int64
	TotalSucceeded           int64
	RealizedProfitSum        decimal.Decimal
	AverageRealizedProfitPct decimal.Decimal
}

// Detector owns detection and execution history for the arbitrage loop.
type Detector struct {
	pools    PoolFetcher
	registry *registry.Registry
	logger   *slog.Logger

	historyCap int

	mu                sync.Mutex
	detectionHistory  []types.ArbitrageOpportunity
	executionHistory  []types.ArbitrageResult
	stats             Stats
}

// New creates an arbitrage detector with the default history cap.
func New(pools PoolFetcher, reg *registry.Registry, logger *slog.Logger) *Detector {
	return &Detector{
		pools:      pools,
		registry:   reg,
		logger:     logger.With("component", "arbitrage_detector"),
		historyCap: defaultHistoryCap,
		stats:      Stats{RealizedProfitSum: decimal.Zero, AverageRealizedProfitPct: decimal.Zero},
	}
}

// Scan performs one full detection pass: fetch snapshots for every
// registered pool above minLiquidity (skipping failures), enumerate
// cycles from base up to maxHops, simulate each with notional, filter by
// minProfitPct, and record every detected opportunity in history. Returns
// opportunities sorted best-first.
func (d *Detector) Scan(ctx context.Context, base types.TokenKey, maxHops int, minLiquidity, notional, minProfitPct decimal.Decimal) []types.ArbitrageOpportunity {
	d.mu.Lock()
	d.stats.TotalScans++
	d.mu.Unlock()

	regPools := d.registry.PoolsAboveLiquidity(minLiquidity)

	var snapshots []*types.PoolSnapshot
	for _, rp := range regPools {
		snap, err := d.pools.Get(ctx, rp.Token0, rp.Token1, rp.Fee)
		if err != nil {
			d.logger.Warn("pool fetch failed during scan, skipping", "token0", rp.Token0, "token1", rp.Token1, "fee", rp.Fee, "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}

	cycles := pathfinder.FindCycles(base, maxHops, snapshots, minLiquidity)

	var candidates []*pathfinder.Opportunity
	for _, cycle := range cycles {
		opp, err := pathfinder.SimulatePath(cycle, notional)
		if err != nil {
			d.logger.Debug("path simulation failed, skipping", "error", err)
			continue
		}
		candidates = append(candidates, opp)
	}

	ranked := pathfinder.FilterAndRank(candidates, minProfitPct)

	now := time.Now()
	out := make([]types.ArbitrageOpportunity, 0, len(ranked))
	for _, o := range ranked {
		out = append(out, types.ArbitrageOpportunity{
			Path:              o.Path,
			InputAmount:       o.InputAmount,
			ExpectedOut:       o.ExpectedOut,
			GrossProfit:       o.GrossProfit,
			FeeAdjustedProfit: o.FeeAdjustedProfit,
			ProfitPct:         o.ProfitPct,
			PriceImpacts:      o.PriceImpacts,
			DetectedAt:        now,
		})
	}

	d.mu.Lock()
	d.stats.TotalDetected += int64(len(out))
	for _, o := range out {
		d.appendDetectionLocked(o)
	}
	d.mu.Unlock()

	return out
}

// RecordExecution appends result to execution history and updates stats.
func (d *Detector) RecordExecution(result types.ArbitrageResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.appendExecutionLocked(result)
	d.stats.TotalExecuted++
	if result.Success {
		d.stats.TotalSucceeded++
		profit := result.Opportunity.FeeAdjustedProfit
		d.stats.RealizedProfitSum = d.stats.RealizedProfitSum.Add(profit)
		if d.stats.TotalSucceeded > 0 {
			total := decimal.Zero
			for _, r := range d.executionHistory {
				if r.Success {
					total = total.Add(r.Opportunity.ProfitPct)
				}
			}
			d.stats.AverageRealizedProfitPct = total.Div(decimal.NewFromInt(d.stats.TotalSucceeded))
		}
	}
}

func (d *Detector) appendDetectionLocked(o types.ArbitrageOpportunity) {
	d.detectionHistory = append(d.detectionHistory, o)
	if len(d.detectionHistory) > d.historyCap {
		d.detectionHistory = d.detectionHistory[len(d.detectionHistory)-d.historyCap:]
	}
}

func (d *Detector) appendExecutionLocked(r types.ArbitrageResult) {
	d.executionHistory = append(d.executionHistory, r)
	if len(d.executionHistory) > d.historyCap {
		d.executionHistory = d.executionHistory[len(d.executionHistory)-d.historyCap:]
	}
}

// DetectionHistory returns a copy of recent detected opportunities, most
// recent last.
func (d *Detector) DetectionHistory() []types.ArbitrageOpportunity {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]types.ArbitrageOpportunity, len(d.detectionHistory))
	copy(out, d.detectionHistory)
	return out
}

// ExecutionHistory returns a copy of recent executions, most recent last.
func (d *Detector) ExecutionHistory() []types.ArbitrageResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]types.ArbitrageResult, len(d.executionHistory))
	copy(out, d.executionHistory)
	return out
}

// Snapshot returns the current statistics, including a derived success rate.
func (d *Detector) Snapshot() (Stats, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := d.stats
	successRate := 0.0
	if stats.TotalExecuted > 0 {
		successRate = float64(stats.TotalSucceeded) / float64(stats.TotalExecuted)
	}
	return stats, successRate
}

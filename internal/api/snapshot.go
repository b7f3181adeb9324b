package api

import (
	"galaswap-agent/internal/engine"
)

// EngineStatus aliases the engine's status snapshot type so this package
// need not duplicate its fields.
type EngineStatus = engine.Status

// EngineStatusProvider is the read-only surface the control surface needs
// from the engine: a point-in-time status snapshot plus lifecycle control.
// Implemented by *engine.Engine.
type EngineStatusProvider interface {
	Status() EngineStatus
	Start() error
	Stop()
}

// BuildSnapshot projects an engine.Status into the wire-friendly
// StatusSnapshot served by GET /api/status.
func BuildSnapshot(s EngineStatus) StatusSnapshot {
	recentTrades := make([]TradeResultView, 0, len(s.RecentTrades))
	for _, r := range s.RecentTrades {
		recentTrades = append(recentTrades, tradeResultView(r))
	}

	recentOpportunities := make([]ArbitrageOpportunityView, 0, len(s.RecentOpportunities))
	for _, o := range s.RecentOpportunities {
		recentOpportunities = append(recentOpportunities, arbitrageOpportunityView(o))
	}

	recentExecutions := make([]ArbitrageResultView, 0, len(s.RecentExecutions))
	for _, r := range s.RecentExecutions {
		recentExecutions = append(recentExecutions, arbitrageResultView(r))
	}

	snapshot := StatusSnapshot{
		Running:             s.Running,
		Config:              s.ConfigSummary,
		UptimeSeconds:       s.Uptime.Seconds(),
		HaveBalance:         s.HaveBalance,
		LastBalance:         balanceSummaryView(s.LastBalance),
		SuccessRate:         s.SuccessRate,
		TradeVolume:         s.TradeVolume.String(),
		RecentTrades:        recentTrades,
		RecentOpportunities: recentOpportunities,
		RecentExecutions:    recentExecutions,
		Stats: statsView(
			s.Stats.RealizedProfitSum,
			s.Stats.AverageRealizedProfitPct,
			s.Stats.TotalScans,
			s.Stats.TotalDetected,
			s.Stats.TotalExecuted,
			s.Stats.TotalSucceeded,
		),
	}

	if !s.LastTradeTime.IsZero() {
		t := s.LastTradeTime
		snapshot.LastTradeTime = &t
	}
	if !s.LastArbScanTime.IsZero() {
		t := s.LastArbScanTime
		snapshot.LastArbScanTime = &t
	}

	return snapshot
}

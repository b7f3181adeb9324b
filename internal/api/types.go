package api

import (
	"time"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/config"
	"galaswap-agent/pkg/types"
)

// StatusSnapshot is the full payload served by GET /api/status, matching
// the fields spec.md §4.9 names: running flag, config echo, uptime, last
// balance, last trade time, last arb scan time, success rate, trade
// volume, recent trade history, recent detected opportunities, recent
// executions.
type StatusSnapshot struct {
	Running             bool                       `json:"running"`
	Config              config.Summary             `json:"config"`
	UptimeSeconds        float64                   `json:"uptimeSeconds"`
	HaveBalance          bool                      `json:"haveBalance"`
	LastBalance          BalanceSummaryView         `json:"lastBalance"`
	LastTradeTime        *time.Time                `json:"lastTradeTime,omitempty"`
	LastArbScanTime      *time.Time                `json:"lastArbScanTime,omitempty"`
	SuccessRate          float64                   `json:"successRate"`
	TradeVolume          string                    `json:"tradeVolume"`
	RecentTrades         []TradeResultView          `json:"recentTrades"`
	RecentOpportunities  []ArbitrageOpportunityView `json:"recentOpportunities"`
	RecentExecutions     []ArbitrageResultView      `json:"recentExecutions"`
	Stats                StatsView                  `json:"stats"`
}

// BalanceSummaryView is the JSON-friendly projection of types.BalanceSummary.
type BalanceSummaryView struct {
	Preferred       TokenBalanceView `json:"preferred"`
	Gas             TokenBalanceView `json:"gas"`
	Other           []TokenBalanceView `json:"other"`
	TotalTokenCount int              `json:"totalTokenCount"`
}

// TokenBalanceView is the JSON-friendly projection of types.TokenBalance.
type TokenBalanceView struct {
	Key     string `json:"key"`
	Balance string `json:"balance"`
}

// TradeResultView is the JSON-friendly projection of types.TradeResult.
type TradeResultView struct {
	Success      bool      `json:"success"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	AmountIn     string    `json:"amountIn"`
	AmountOut    string    `json:"amountOut,omitempty"`
	HasAmountOut bool      `json:"hasAmountOut"`
	TxID         string    `json:"txId,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ArbitrageOpportunityView is the JSON-friendly projection of
// types.ArbitrageOpportunity.
type ArbitrageOpportunityView struct {
	Tokens            []string  `json:"tokens"`
	HopCount          int       `json:"hopCount"`
	InputAmount       string    `json:"inputAmount"`
	ExpectedOut       string    `json:"expectedOut"`
	FeeAdjustedProfit string    `json:"feeAdjustedProfit"`
	ProfitPct         string    `json:"profitPct"`
	DetectedAt        time.Time `json:"detectedAt"`
}

// ArbitrageResultView is the JSON-friendly projection of types.ArbitrageResult.
type ArbitrageResultView struct {
	Success     bool      `json:"success"`
	FailedAtHop int       `json:"failedAtHop"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Opportunity ArbitrageOpportunityView `json:"opportunity"`
}

// StatsView is the JSON-friendly projection of arbitrage.Stats.
type StatsView struct {
	TotalScans               int64  `json:"totalScans"`
	TotalDetected            int64  `json:"totalDetected"`
	TotalExecuted            int64  `json:"totalExecuted"`
	TotalSucceeded           int64  `json:"totalSucceeded"`
	RealizedProfitSum        string `json:"realizedProfitSum"`
	AverageRealizedProfitPct string `json:"averageRealizedProfitPct"`
}

func tokenBalanceView(b types.TokenBalance) TokenBalanceView {
	return TokenBalanceView{Key: b.Key.String(), Balance: b.Balance.String()}
}

func balanceSummaryView(s types.BalanceSummary) BalanceSummaryView {
	others := make([]TokenBalanceView, 0, len(s.Other))
	for _, o := range s.Other {
		others = append(others, tokenBalanceView(o))
	}
	return BalanceSummaryView{
		Preferred:       tokenBalanceView(s.Preferred),
		Gas:             tokenBalanceView(s.Gas),
		Other:           others,
		TotalTokenCount: s.TotalTokenCount,
	}
}

func tradeResultView(r types.TradeResult) TradeResultView {
	v := TradeResultView{
		Success:      r.Success,
		Source:       r.Source.String(),
		Target:       r.Target.String(),
		AmountIn:     r.AmountIn.String(),
		HasAmountOut: r.HasAmountOut,
		TxID:         r.TxID,
		Error:        r.Error,
		Timestamp:    r.Timestamp,
	}
	if r.HasAmountOut {
		v.AmountOut = r.AmountOut.String()
	}
	return v
}

func arbitrageOpportunityView(o types.ArbitrageOpportunity) ArbitrageOpportunityView {
	tokens := make([]string, 0, len(o.Path.Tokens))
	for _, t := range o.Path.Tokens {
		tokens = append(tokens, t.String())
	}
	return ArbitrageOpportunityView{
		Tokens:            tokens,
		HopCount:          o.Path.HopCount(),
		InputAmount:       o.InputAmount.String(),
		ExpectedOut:       o.ExpectedOut.String(),
		FeeAdjustedProfit: o.FeeAdjustedProfit.String(),
		ProfitPct:         o.ProfitPct.String(),
		DetectedAt:        o.DetectedAt,
	}
}

func arbitrageResultView(r types.ArbitrageResult) ArbitrageResultView {
	return ArbitrageResultView{
		Success:     r.Success,
		FailedAtHop: r.FailedAtHop,
		Error:       r.Error,
		Timestamp:   r.Timestamp,
		Opportunity: arbitrageOpportunityView(r.Opportunity),
	}
}

func statsView(realizedProfitSum, avgProfitPct decimal.Decimal, totalScans, totalDetected, totalExecuted, totalSucceeded int64) StatsView {
	return StatsView{
		TotalScans:               totalScans,
		TotalDetected:            totalDetected,
		TotalExecuted:            totalExecuted,
		TotalSucceeded:           totalSucceeded,
		RealizedProfitSum:        realizedProfitSum.String(),
		AverageRealizedProfitPct: avgProfitPct.String(),
	}
}

package api

import (
	"time"

	"galaswap-agent/pkg/types"
)

// DashboardEventType enumerates the kinds of events pushed over the
// WebSocket channel. Each kind pairs with exactly one payload shape:
// snapshot carries a StatusSnapshot, trade a TradeResultView, arbitrage
// an ArbitrageResultView.
type DashboardEventType string

const (
	EventTypeSnapshot  DashboardEventType = "snapshot"
	EventTypeTrade     DashboardEventType = "trade"
	EventTypeArbitrage DashboardEventType = "arbitrage"
)

// DashboardEvent is the wrapper for every event sent over the WebSocket
// push channel. Data's shape is determined by Type. Callers should build
// one of these via the NewXEvent constructors below, not a bare literal,
// so a Type can never end up paired with the wrong payload.
type DashboardEvent struct {
	Type      DashboardEventType `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Data      interface{}        `json:"data"`
}

// NewSnapshotEvent wraps a full status snapshot for the push channel.
func NewSnapshotEvent(snapshot StatusSnapshot) DashboardEvent {
	return DashboardEvent{Type: EventTypeSnapshot, Timestamp: time.Now(), Data: snapshot}
}

// NewTradeEvent wraps a single completed trade (direct, routed, or one
// hop of an arbitrage cycle) for the push channel.
func NewTradeEvent(trade types.TradeResult) DashboardEvent {
	return DashboardEvent{Type: EventTypeTrade, Timestamp: time.Now(), Data: tradeResultView(trade)}
}

// NewArbitrageEvent wraps a single arbitrage cycle execution for the push
// channel.
func NewArbitrageEvent(result types.ArbitrageResult) DashboardEvent {
	return DashboardEvent{Type: EventTypeArbitrage, Timestamp: time.Now(), Data: arbitrageResultView(result)}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"galaswap-agent/pkg/types"
)

// newTestHub starts a Hub's Run loop and an httptest server that upgrades
// every request into a registered client, mirroring how Handlers.HandleWebSocket
// wires the two together in production.
func newTestHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub(testLogger())
	go hub.Run()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		NewClient(hub, conn)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Give the hub a moment to process the register before any broadcast.
	time.Sleep(20 * time.Millisecond)

	return hub, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) DashboardEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var evt DashboardEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return evt
}

func TestHub_BroadcastTrade_DeliversTypedPayload(t *testing.T) {
	t.Parallel()

	hub, conn := newTestHub(t)

	trade := types.TradeResult{
		Success:      true,
		Source:       types.WellKnownTokenKey("GALA"),
		Target:       types.WellKnownTokenKey("SILK"),
		AmountIn:     decimal.NewFromInt(10),
		AmountOut:    decimal.NewFromInt(9),
		HasAmountOut: true,
		TxID:         "tx-1",
	}
	hub.BroadcastTrade(trade)

	evt := readEvent(t, conn)
	if evt.Type != EventTypeTrade {
		t.Fatalf("Type = %q, want %q", evt.Type, EventTypeTrade)
	}

	payload, ok := evt.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Data is %T, want a decoded trade object", evt.Data)
	}
	if payload["txId"] != "tx-1" {
		t.Errorf("Data.txId = %v, want %q", payload["txId"], "tx-1")
	}
}

func TestHub_BroadcastArbitrage_DeliversTypedPayload(t *testing.T) {
	t.Parallel()

	hub, conn := newTestHub(t)

	result := types.ArbitrageResult{
		Success:     false,
		FailedAtHop: 1,
		Error:       "pre-validation: live profit decayed",
	}
	hub.BroadcastArbitrage(result)

	evt := readEvent(t, conn)
	if evt.Type != EventTypeArbitrage {
		t.Fatalf("Type = %q, want %q", evt.Type, EventTypeArbitrage)
	}

	payload, ok := evt.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Data is %T, want a decoded arbitrage result object", evt.Data)
	}
	if payload["failedAtHop"] != float64(1) {
		t.Errorf("Data.failedAtHop = %v, want 1", payload["failedAtHop"])
	}
}

func TestHub_BroadcastSnapshot_DeliversStatusSnapshot(t *testing.T) {
	t.Parallel()

	hub, conn := newTestHub(t)

	hub.BroadcastSnapshot(BuildSnapshot(EngineStatus{Running: true}))

	evt := readEvent(t, conn)
	if evt.Type != EventTypeSnapshot {
		t.Fatalf("Type = %q, want %q", evt.Type, EventTypeSnapshot)
	}

	payload, ok := evt.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Data is %T, want a decoded snapshot object", evt.Data)
	}
	if payload["running"] != true {
		t.Errorf("Data.running = %v, want true", payload["running"])
	}
}

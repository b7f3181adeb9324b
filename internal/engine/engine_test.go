package engine

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"galaswap-agent/internal/config"
)

const sampleTokensCSV = "symbol,tokenKey,decimals,description\n" +
	"GALA,GALA|Unit|none|none,8,gas\n" +
	"SILK,SILK|Unit|none|none,8,preferred\n"

const samplePoolsCSV = "token0Symbol,token1Symbol,fee,liquidity\n" +
	"GALA,SILK,3000,500000\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFakeGalaServer serves an empty wallet-assets page and upgrades the
// notification socket path so NotificationChannel.Run can connect without
// reaching the real network.
func newFakeGalaServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/trade/assets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"tokens": []any{}, "count": 0})
	})
	mux.HandleFunc("/v1/trade/socket", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	tokensPath := dir + "/tokens.csv"
	poolsPath := dir + "/pools.csv"
	if err := os.WriteFile(tokensPath, []byte(sampleTokensCSV), 0o644); err != nil {
		t.Fatalf("write tokens.csv: %v", err)
	}
	if err := os.WriteFile(poolsPath, []byte(samplePoolsCSV), 0o644); err != nil {
		t.Fatalf("write pools.csv: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.GatewayBaseURL = baseURL
	cfg.BundlerBaseURL = baseURL
	cfg.DexBackendBaseURL = baseURL
	cfg.WalletAddress = "eth|0xabc"
	cfg.GalaChainPrivateKey = "test-key"
	cfg.TokensCSVPath = tokensPath
	cfg.PoolsCSVPath = poolsPath
	cfg.EnableArbitrage = false
	cfg.TradeIntervalMs = 60000
	cfg.EnableTrading = false
	return cfg
}

func TestNew_WiresAllComponentsAndBuildsStatus(t *testing.T) {
	t.Parallel()

	server := newFakeGalaServer(t)
	cfg := testConfig(t, server.URL)

	eng, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	status := eng.Status()
	if status.Running {
		t.Error("a freshly constructed engine should not report Running before Start")
	}
	if status.ConfigSummary.PreferredTokenKey == "" {
		t.Error("Status().ConfigSummary should be populated")
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	t.Parallel()

	server := newFakeGalaServer(t)
	cfg := testConfig(t, server.URL)

	eng, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := eng.Start(); err != nil {
		t.Fatalf("second Start (should be a no-op): %v", err)
	}

	if !eng.Status().Running {
		t.Error("Status().Running should be true after Start")
	}

	// Give the rebalance loop's immediate first tick a moment to run
	// against the fake server before tearing down.
	time.Sleep(50 * time.Millisecond)

	eng.Stop()
	eng.Stop() // idempotent

	if eng.Status().Running {
		t.Error("Status().Running should be false after Stop")
	}
}

func TestStatus_ReflectsBalanceAfterRebalanceTick(t *testing.T) {
	t.Parallel()

	server := newFakeGalaServer(t)
	cfg := testConfig(t, server.URL)

	eng, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if eng.Status().HaveBalance {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected HaveBalance to become true after the rebalance loop's first immediate tick")
}

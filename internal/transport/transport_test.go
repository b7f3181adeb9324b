package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/config"
	"galaswap-agent/internal/errs"
	"galaswap-agent/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T, mux *http.ServeMux) *Gateway {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		GatewayBaseURL:      server.URL,
		BundlerBaseURL:      server.URL,
		DexContractBasePath: "/api/asset/dexv3-contract",
		WalletAddress:       "eth|0xabc",
		EnableTrading:       true,
	}
	return NewGateway(cfg, testLogger())
}

var (
	tokA = types.WellKnownTokenKey("A")
	tokB = types.WellKnownTokenKey("B")
)

func TestGetCompositePool_ParsesResponse(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/asset/dexv3-contract/GetCompositePool", func(w http.ResponseWriter, r *http.Request) {
		resp := types.CompositePoolResponse{Data: &types.CompositePoolData{
			Token0:      tokA.String(),
			Token1:      tokB.String(),
			Fee:         3000,
			SqrtPrice:   "1",
			Liquidity:   "1000000",
			TickSpacing: 60,
			Ticks: []types.WireTick{
				{Index: 0, NetLiquidity: "100", GrossLiquidity: "100", FeeGrowthOutside: ""},
			},
		}}
		json.NewEncoder(w).Encode(resp)
	})
	gw := newTestGateway(t, mux)

	snap, err := gw.GetCompositePool(context.Background(), tokA, tokB, types.FeeTierMedium)
	if err != nil {
		t.Fatalf("GetCompositePool: %v", err)
	}
	if !snap.Liquidity.Equal(decimal.NewFromInt(1000000)) {
		t.Errorf("Liquidity = %s, want 1000000", snap.Liquidity)
	}
	if len(snap.Ticks) != 1 {
		t.Errorf("len(Ticks) = %d, want 1", len(snap.Ticks))
	}
}

func TestGetCompositePool_MissingDataErrors(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/asset/dexv3-contract/GetCompositePool", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.CompositePoolResponse{})
	})
	gw := newTestGateway(t, mux)

	if _, err := gw.GetCompositePool(context.Background(), tokA, tokB, types.FeeTierMedium); err == nil {
		t.Fatal("expected an error when Data is nil")
	}
}

func TestGetPoolData_TransportFailureYieldsNilNil(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/asset/dexv3-contract/GetCompositePool", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	gw := newTestGateway(t, mux)

	snap, err := gw.GetPoolData(context.Background(), tokA, tokB, types.FeeTierMedium)
	if err != nil {
		t.Fatalf("GetPoolData: expected nil error for a transport failure, got %v", err)
	}
	if snap != nil {
		t.Error("GetPoolData: expected a nil snapshot for a nonexistent pool")
	}
}

func TestQuote_ReturnsErrsQuoteKindOnFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/asset/dexv3-contract/QuoteExactInput", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	gw := newTestGateway(t, mux)

	_, err := gw.Quote(context.Background(), tokA, tokB, types.FeeTierMedium, decimal.NewFromInt(100))
	if err == nil {
		t.Fatal("expected an error")
	}
	if errs.KindOf(err) != errs.KindQuote {
		t.Errorf("KindOf(err) = %q, want %q", errs.KindOf(err), errs.KindQuote)
	}
}

func TestGetUserAssets_ParsesPagination(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/trade/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("page query param = %q, want %q", r.URL.Query().Get("page"), "2")
		}
		json.NewEncoder(w).Encode(types.UserAssetsResponse{
			Tokens: []types.UserAsset{{Symbol: "GALA", Quantity: "10"}},
			Count:  1,
		})
	})
	gw := newTestGateway(t, mux)

	resp, err := gw.GetUserAssets(context.Background(), "eth|0xabc", 2, 50)
	if err != nil {
		t.Fatalf("GetUserAssets: %v", err)
	}
	if len(resp.Tokens) != 1 || resp.Tokens[0].Symbol != "GALA" {
		t.Errorf("unexpected tokens: %+v", resp.Tokens)
	}
}

func TestSubmitSwap_ReturnsTransactionID(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/trade/swap", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SwapSubmissionResponse{TransactionID: "tx-123"})
	})
	gw := newTestGateway(t, mux)

	txID, err := gw.SubmitSwap(context.Background(), types.SwapSubmission{})
	if err != nil {
		t.Fatalf("SubmitSwap: %v", err)
	}
	if txID != "tx-123" {
		t.Errorf("txID = %q, want %q", txID, "tx-123")
	}
}

func TestSubmitSwap_MissingTransactionIDErrors(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/trade/swap", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SwapSubmissionResponse{})
	})
	gw := newTestGateway(t, mux)

	if _, err := gw.SubmitSwap(context.Background(), types.SwapSubmission{}); err == nil {
		t.Fatal("expected an error when the response omits transactionId")
	}
}

func TestTokenBucket_LimitsBurstAndRefills(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(2, 100) // capacity 2, refills fast enough not to stall the test

	ctx := context.Background()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("second Wait: %v", err)
	}

	start := time.Now()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("third Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed <= 0 {
		t.Error("expected the third Wait to block briefly for refill")
	}
}

func TestTokenBucket_RespectsContextCancellation(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(1, 0.001) // effectively no refill within the test window
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err == nil {
		t.Error("expected Wait to return an error once the context deadline is exceeded")
	}
}

package config

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"galaswap-agent/internal/errs"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PREFERRED_TOKEN_KEY", "PREFERRED_TOKEN_NAME", "GALA_TOKEN_KEY",
		"WALLET_ADDRESS", "GALACHAIN_PRIVATE_KEY", "MAX_SLIPPAGE",
		"TRADE_AMOUNT_PERCENTAGE", "ARBITRAGE_MAX_HOPS", "TRADE_INTERVAL_MS",
		"ENABLE_ARBITRAGE", "ARBITRAGE_CHECK_INTERVAL_MS",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PreferredTokenKey.String() != "GALA|Unit|none|none" {
		t.Errorf("PreferredTokenKey = %s, want the default GALA key", cfg.PreferredTokenKey)
	}
	if cfg.MinimumGalaBalance != 100.0 {
		t.Errorf("MinimumGalaBalance = %v, want 100.0", cfg.MinimumGalaBalance)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.EnableTrading {
		t.Error("EnableTrading should default to false (dry-run)")
	}
}

func TestLoad_ReadsEnvOverrides(t *testing.T) {
	clearEnv(t)
	defer clearEnv(t)

	os.Setenv("PREFERRED_TOKEN_KEY", "SILK|Unit|none|none")
	os.Setenv("MAX_SLIPPAGE", "2.5")
	defer os.Unsetenv("PREFERRED_TOKEN_KEY")
	defer os.Unsetenv("MAX_SLIPPAGE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PreferredTokenKey.String() != "SILK|Unit|none|none" {
		t.Errorf("PreferredTokenKey = %s, want SILK|Unit|none|none", cfg.PreferredTokenKey)
	}
	if cfg.MaxSlippage != 2.5 {
		t.Errorf("MaxSlippage = %v, want 2.5", cfg.MaxSlippage)
	}
}

func TestValidate_RequiresWalletAndKey(t *testing.T) {
	clearEnv(t)
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected Validate to fail without WALLET_ADDRESS/GALACHAIN_PRIVATE_KEY")
	}
	if !IsMissingSecret(err) {
		t.Error("expected IsMissingSecret to report true for the missing wallet address")
	}
}

func TestValidate_RangeChecks(t *testing.T) {
	clearEnv(t)
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.WalletAddress = "eth|0xabc"
	cfg.GalaChainPrivateKey = "secret"

	tests := []struct {
		name   string
		mutate func()
	}{
		{"slippage too high", func() { cfg.MaxSlippage = 150 }},
		{"slippage zero", func() { cfg.MaxSlippage = 0 }},
		{"trade pct too high", func() { cfg.MaxSlippage = 5; cfg.TradeAmountPercentage = 200 }},
		{"max hops too low", func() { cfg.TradeAmountPercentage = 10; cfg.ArbitrageMaxHops = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mutate()
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected Validate to reject: %s", tt.name)
			}
			if IsMissingSecret(err) {
				t.Errorf("%s should be a general config error, not a missing-secret error", tt.name)
			}
		})
	}
}

func TestNewSummary_ExcludesSecrets(t *testing.T) {
	clearEnv(t)
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.WalletAddress = "eth|0xabc"
	cfg.GalaChainPrivateKey = "super-secret"

	summary := NewSummary(cfg)

	// Summary has no field for either secret; this test guards against a
	// future field addition leaking them via reflection-based encoders.
	if summary.PreferredTokenKey == "" {
		t.Error("expected PreferredTokenKey to be populated")
	}

	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	for _, secret := range []string{cfg.WalletAddress, cfg.GalaChainPrivateKey} {
		if strings.Contains(string(data), secret) {
			t.Errorf("summary JSON %s leaks %q", data, secret)
		}
	}
}

func TestIsMissingSecret(t *testing.T) {
	t.Parallel()

	if IsMissingSecret(nil) {
		t.Error("nil error should not be a missing-secret error")
	}
	if !IsMissingSecret(errs.Config(nil, "WALLET_ADDRESS is required")) {
		t.Error("expected WALLET_ADDRESS error to be classified as missing-secret")
	}
}

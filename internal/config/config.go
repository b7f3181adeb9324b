// Package config defines all configuration for the trading agent. Config is
// loaded entirely from environment variables (no YAML file exists for this
// deployment shape) with sensible defaults for everything except the
// wallet address and private key.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"galaswap-agent/internal/errs"
	"galaswap-agent/pkg/types"
)

// Config is the top-level configuration, populated entirely from env vars.
type Config struct {
	PreferredTokenKey types.TokenKey `mapstructure:"-"`
	PreferredTokenRaw string         `mapstructure:"preferred_token_key"`
	PreferredTokenName string        `mapstructure:"preferred_token_name"`

	GasTokenKey types.TokenKey `mapstructure:"-"`
	GasTokenRaw string         `mapstructure:"gala_token_key"`

	MinimumGalaBalance float64 `mapstructure:"minimum_gala_balance"`

	TradeIntervalMs       int64   `mapstructure:"trade_interval_ms"`
	MaxSlippage           float64 `mapstructure:"max_slippage"`
	TradeAmountPercentage float64 `mapstructure:"trade_amount_percentage"`

	EnableArbitrage           bool    `mapstructure:"enable_arbitrage"`
	ArbitrageCheckIntervalMs  int64   `mapstructure:"arbitrage_check_interval_ms"`
	ArbitrageMinProfitPercent float64 `mapstructure:"arbitrage_min_profit_percent"`
	ArbitrageMaxTradeSize     float64 `mapstructure:"arbitrage_max_trade_size"`
	ArbitrageMaxHops          int     `mapstructure:"arbitrage_max_hops"`
	ArbitrageMinLiquidity     float64 `mapstructure:"arbitrage_min_liquidity"`
	ArbitragePoolCacheTTLMs   int64   `mapstructure:"arbitrage_pool_cache_ttl"`

	WalletAddress       string `mapstructure:"wallet_address"`
	GalaChainPrivateKey string `mapstructure:"galachain_private_key"`

	EnableTrading        bool  `mapstructure:"enable_trading"`
	TransactionTimeoutMs int64 `mapstructure:"transaction_timeout_ms"`

	Port int `mapstructure:"port"`

	GatewayBaseURL         string `mapstructure:"gswap_gateway_base_url"`
	BundlerBaseURL         string `mapstructure:"gswap_bundler_base_url"`
	DexBackendBaseURL      string `mapstructure:"gswap_dex_backend_base_url"`
	DexContractBasePath    string `mapstructure:"gswap_dex_contract_base_path"`

	TokensCSVPath string `mapstructure:"tokens_csv_path"`
	PoolsCSVPath  string `mapstructure:"pools_csv_path"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("preferred_token_key", "GALA|Unit|none|none")
	v.SetDefault("preferred_token_name", "$GALA")
	v.SetDefault("gala_token_key", "GALA|Unit|none|none")
	v.SetDefault("minimum_gala_balance", 100.0)
	v.SetDefault("trade_interval_ms", 60000)
	v.SetDefault("max_slippage", 5.0)
	v.SetDefault("trade_amount_percentage", 10.0)
	v.SetDefault("enable_arbitrage", false)
	v.SetDefault("arbitrage_check_interval_ms", 120000)
	v.SetDefault("arbitrage_min_profit_percent", 1.0)
	v.SetDefault("arbitrage_max_trade_size", 100.0)
	v.SetDefault("arbitrage_max_hops", 3)
	v.SetDefault("arbitrage_min_liquidity", 1000.0)
	v.SetDefault("arbitrage_pool_cache_ttl", 60000)
	v.SetDefault("enable_trading", false)
	v.SetDefault("transaction_timeout_ms", 600000)
	v.SetDefault("port", 3000)
	v.SetDefault("gswap_gateway_base_url", "https://dex-backend-prod1.defi.gala.com")
	v.SetDefault("gswap_bundler_base_url", "https://bundle-backend-prod1.defi.gala.com")
	v.SetDefault("gswap_dex_backend_base_url", "https://dex-backend-prod1.defi.gala.com")
	v.SetDefault("gswap_dex_contract_base_path", "/api/asset/dexv3-contract")
	v.SetDefault("tokens_csv_path", "tokens.csv")
	v.SetDefault("pools_csv_path", "pools.csv")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// envBinds maps every mapstructure key to its env.md §6 name. Viper's
// AutomaticEnv would otherwise require a prefix; this spec's env vars carry
// no common prefix, so each is bound explicitly.
var envBinds = map[string]string{
	"preferred_token_key":          "PREFERRED_TOKEN_KEY",
	"preferred_token_name":         "PREFERRED_TOKEN_NAME",
	"gala_token_key":                "GALA_TOKEN_KEY",
	"minimum_gala_balance":          "MINIMUM_GALA_BALANCE",
	"trade_interval_ms":             "TRADE_INTERVAL_MS",
	"max_slippage":                  "MAX_SLIPPAGE",
	"trade_amount_percentage":       "TRADE_AMOUNT_PERCENTAGE",
	"enable_arbitrage":              "ENABLE_ARBITRAGE",
	"arbitrage_check_interval_ms":   "ARBITRAGE_CHECK_INTERVAL_MS",
	"arbitrage_min_profit_percent":  "ARBITRAGE_MIN_PROFIT_PERCENT",
	"arbitrage_max_trade_size":      "ARBITRAGE_MAX_TRADE_SIZE",
	"arbitrage_max_hops":            "ARBITRAGE_MAX_HOPS",
	"arbitrage_min_liquidity":       "ARBITRAGE_MIN_LIQUIDITY",
	"arbitrage_pool_cache_ttl":      "ARBITRAGE_POOL_CACHE_TTL",
	"wallet_address":                "WALLET_ADDRESS",
	"galachain_private_key":         "GALACHAIN_PRIVATE_KEY",
	"enable_trading":                "ENABLE_TRADING",
	"transaction_timeout_ms":        "TRANSACTION_TIMEOUT_MS",
	"port":                          "PORT",
	"gswap_gateway_base_url":        "GSWAP_GATEWAY_URL",
	"gswap_bundler_base_url":        "GSWAP_BUNDLER_URL",
	"gswap_dex_backend_base_url":    "GSWAP_DEX_BACKEND_URL",
	"gswap_dex_contract_base_path":  "GSWAP_DEX_CONTRACT_BASE_PATH",
	"tokens_csv_path":               "TOKENS_CSV_PATH",
	"pools_csv_path":                "POOLS_CSV_PATH",
	"log_level":                     "LOG_LEVEL",
	"log_format":                    "LOG_FORMAT",
}

// Load builds configuration purely from environment variables; there is no
// config file in this deployment shape.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	for key, env := range envBinds {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errs.Config(err, "bind env %s", env)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Config(err, "unmarshal config")
	}

	preferred, err := types.ParseTokenKey(cfg.PreferredTokenRaw)
	if err != nil {
		return nil, errs.Config(err, "PREFERRED_TOKEN_KEY")
	}
	cfg.PreferredTokenKey = preferred

	gas, err := types.ParseTokenKey(cfg.GasTokenRaw)
	if err != nil {
		return nil, errs.Config(err, "GALA_TOKEN_KEY")
	}
	cfg.GasTokenKey = gas

	return &cfg, nil
}

// Validate checks all required fields and value ranges, matching the fatal
// vs. missing-secret exit code split in spec.md §6.
func (c *Config) Validate() error {
	if c.WalletAddress == "" {
		return errs.Config(nil, "WALLET_ADDRESS is required")
	}
	if c.GalaChainPrivateKey == "" {
		return errs.Config(nil, "GALACHAIN_PRIVATE_KEY is required")
	}
	if c.MaxSlippage <= 0 || c.MaxSlippage > 100 {
		return errs.Config(nil, "MAX_SLIPPAGE must be in (0, 100]")
	}
	if c.TradeAmountPercentage <= 0 || c.TradeAmountPercentage > 100 {
		return errs.Config(nil, "TRADE_AMOUNT_PERCENTAGE must be in (0, 100]")
	}
	if c.ArbitrageMaxHops < 2 || c.ArbitrageMaxHops > 4 {
		return errs.Config(nil, "ARBITRAGE_MAX_HOPS must be between 2 and 4")
	}
	if c.TradeIntervalMs <= 0 {
		return errs.Config(nil, "TRADE_INTERVAL_MS must be > 0")
	}
	if c.EnableArbitrage && c.ArbitrageCheckIntervalMs <= 0 {
		return errs.Config(nil, "ARBITRAGE_CHECK_INTERVAL_MS must be > 0 when arbitrage is enabled")
	}
	return nil
}

// Summary is the static, secret-free config echo served by `GET /api/config`.
type Summary struct {
	PreferredTokenKey     string  `json:"preferredTokenKey"`
	PreferredTokenName    string  `json:"preferredTokenName"`
	GasTokenKey           string  `json:"gasTokenKey"`
	MinimumGalaBalance    float64 `json:"minimumGalaBalance"`
	TradeIntervalMs       int64   `json:"tradeIntervalMs"`
	MaxSlippage           float64 `json:"maxSlippage"`
	TradeAmountPercentage float64 `json:"tradeAmountPercentage"`

	EnableArbitrage           bool    `json:"enableArbitrage"`
	ArbitrageCheckIntervalMs  int64   `json:"arbitrageCheckIntervalMs"`
	ArbitrageMinProfitPercent float64 `json:"arbitrageMinProfitPercent"`
	ArbitrageMaxTradeSize     float64 `json:"arbitrageMaxTradeSize"`
	ArbitrageMaxHops          int     `json:"arbitrageMaxHops"`
	ArbitrageMinLiquidity     float64 `json:"arbitrageMinLiquidity"`

	EnableTrading        bool  `json:"enableTrading"`
	TransactionTimeoutMs int64 `json:"transactionTimeoutMs"`
}

// NewSummary builds the secret-free config echo. WalletAddress and
// GalaChainPrivateKey are deliberately excluded.
func NewSummary(c *Config) Summary {
	return Summary{
		PreferredTokenKey:         c.PreferredTokenKey.String(),
		PreferredTokenName:        c.PreferredTokenName,
		GasTokenKey:               c.GasTokenKey.String(),
		MinimumGalaBalance:        c.MinimumGalaBalance,
		TradeIntervalMs:           c.TradeIntervalMs,
		MaxSlippage:               c.MaxSlippage,
		TradeAmountPercentage:     c.TradeAmountPercentage,
		EnableArbitrage:           c.EnableArbitrage,
		ArbitrageCheckIntervalMs:  c.ArbitrageCheckIntervalMs,
		ArbitrageMinProfitPercent: c.ArbitrageMinProfitPercent,
		ArbitrageMaxTradeSize:     c.ArbitrageMaxTradeSize,
		ArbitrageMaxHops:          c.ArbitrageMaxHops,
		ArbitrageMinLiquidity:     c.ArbitrageMinLiquidity,
		EnableTrading:             c.EnableTrading,
		TransactionTimeoutMs:      c.TransactionTimeoutMs,
	}
}

// IsMissingSecret reports whether err represents the "missing required
// secret" case (exit code 2) as opposed to a general config error (exit
// code 1).
func IsMissingSecret(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "GALACHAIN_PRIVATE_KEY") || strings.Contains(msg, "WALLET_ADDRESS")
}

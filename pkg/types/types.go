// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the agent — token identity,
// pool snapshots, circular paths, balance summaries, trade intents and
// results, and the wire shapes exchanged with the transport. It has no
// dependencies on internal packages, so it can be imported by any layer.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Token identity
// ————————————————————————————————————————————————————————————————————————

// TokenKey is the canonical 4-tuple identifying a token: collection,
// category, type, and additionalKey. Two keys are equal iff all four
// fields match. Symbol is conventionally the collection field.
type TokenKey struct {
	Collection    string
	Category      string
	Type          string
	AdditionalKey string
}

// String renders the canonical pipe-delimited wire form.
func (k TokenKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Collection, k.Category, k.Type, k.AdditionalKey)
}

// Symbol returns the collection field, used as the display ticker.
func (k TokenKey) Symbol() string { return k.Collection }

// Equal reports whether two keys name the same token.
func (k TokenKey) Equal(other TokenKey) bool {
	return k.Collection == other.Collection &&
		k.Category == other.Category &&
		k.Type == other.Type &&
		k.AdditionalKey == other.AdditionalKey
}

// ParseTokenKey parses a canonical `collection|category|type|additionalKey`
// string. Returns an error if it does not have exactly four fields.
func ParseTokenKey(s string) (TokenKey, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 {
		return TokenKey{}, fmt.Errorf("token key %q: expected 4 pipe-delimited fields, got %d", s, len(parts))
	}
	return TokenKey{Collection: parts[0], Category: parts[1], Type: parts[2], AdditionalKey: parts[3]}, nil
}

// WellKnownTokenKey expands a bare symbol using the standard
// Unit|none|none template tail.
func WellKnownTokenKey(symbol string) TokenKey {
	return TokenKey{Collection: symbol, Category: "Unit", Type: "none", AdditionalKey: "none"}
}

// TokenInfo is a registry entry describing one known token.
type TokenInfo struct {
	Symbol      string
	Key         TokenKey
	Decimals    int
	Description string
}

// ————————————————————————————————————————————————————————————————————————
// Pools
// ————————————————————————————————————————————————————————————————————————

// FeeTier is a pool's swap-fee rate expressed in hundredths of a basis
// point, matching the closed set {500, 3000, 10000}.
type FeeTier int

const (
	FeeTierLow    FeeTier = 500   // 0.05%
	FeeTierMedium FeeTier = 3000  // 0.30%
	FeeTierHigh   FeeTier = 10000 // 1.00%
)

// ValidFeeTiers enumerates every fee tier an implementation may probe, in
// ascending order.
var ValidFeeTiers = []FeeTier{FeeTierLow, FeeTierMedium, FeeTierHigh}

// IsValidFeeTier reports whether f belongs to the closed set of fee tiers.
func IsValidFeeTier(f FeeTier) bool {
	for _, v := range ValidFeeTiers {
		if v == f {
			return true
		}
	}
	return false
}

// PoolKey canonically identifies a pool by its two tokens (order-independent)
// and fee tier.
type PoolKey struct {
	Token0 TokenKey
	Token1 TokenKey
	Fee    FeeTier
}

// CanonicalPoolKey orders the two tokens so that equivalent unordered pairs
// hash identically regardless of caller ordering.
func CanonicalPoolKey(a, b TokenKey, fee FeeTier) PoolKey {
	if a.String() <= b.String() {
		return PoolKey{Token0: a, Token1: b, Fee: fee}
	}
	return PoolKey{Token0: b, Token1: a, Fee: fee}
}

// TickData holds the liquidity bookkeeping for a single initialized tick.
type TickData struct {
	NetLiquidity      decimal.Decimal
	GrossLiquidity    decimal.Decimal
	FeeGrowthOutside  decimal.Decimal
}

// PoolSnapshot is a point-in-time composite view of one pool's on-chain
// state, as cached by the pool snapshot cache.
type PoolSnapshot struct {
	Token0         TokenKey
	Token1         TokenKey
	Fee            FeeTier
	Decimals0      int
	Decimals1      int
	SqrtPrice      decimal.Decimal // current sqrt(price), token1 per token0
	Liquidity      decimal.Decimal // global active liquidity
	TickSpacing    int
	Ticks          map[int]TickData // sparse map, keys are multiples of TickSpacing
	FetchedAt      time.Time
}

// Key returns the canonical pool key for this snapshot.
func (p *PoolSnapshot) Key() PoolKey {
	return CanonicalPoolKey(p.Token0, p.Token1, p.Fee)
}

// HasToken reports whether t is one of the pool's two sides.
func (p *PoolSnapshot) HasToken(t TokenKey) bool {
	return p.Token0.Equal(t) || p.Token1.Equal(t)
}

// OtherToken returns the pool's side opposite t. Callers must confirm
// HasToken(t) first.
func (p *PoolSnapshot) OtherToken(t TokenKey) TokenKey {
	if p.Token0.Equal(t) {
		return p.Token1
	}
	return p.Token0
}

// PoolRegistration is a static catalog entry loaded from pools.csv, prior
// to any on-chain fetch.
type PoolRegistration struct {
	Token0          TokenKey
	Token1          TokenKey
	Fee             FeeTier
	ObservedLiquidity decimal.Decimal
}

// ————————————————————————————————————————————————————————————————————————
// Circular paths
// ————————————————————————————————————————————————————————————————————————

// CircularPath is an ordered cycle of tokens paired with the pools
// connecting each consecutive pair. len(Tokens) == len(Pools)+1, and
// Tokens[0] == Tokens[len-1].
type CircularPath struct {
	Tokens []TokenKey
	Pools  []*PoolSnapshot
}

// HopCount returns the number of swaps in the path.
func (p CircularPath) HopCount() int { return len(p.Pools) }

// ————————————————————————————————————————————————————————————————————————
// Balances
// ————————————————————————————————————————————————————————————————————————

// TokenBalance is one entry of the wallet's on-chain inventory.
type TokenBalance struct {
	Key     TokenKey
	Balance decimal.Decimal
}

// BalanceSummary partitions the wallet's inventory per spec: the preferred
// token, the gas token, and everything else.
type BalanceSummary struct {
	Preferred       TokenBalance
	Gas             TokenBalance
	Other           []TokenBalance
	TotalTokenCount int
}

// ————————————————————————————————————————————————————————————————————————
// Trade intents and results
// ————————————————————————————————————————————————————————————————————————

// TradeReason names why a trade intent was generated.
type TradeReason string

const (
	ReasonRefillGas      TradeReason = "RefillGas"
	ReasonDCAToPreferred TradeReason = "DCAToPreferred"
	ReasonSpendExcessGas TradeReason = "SpendExcessGas"
	ReasonArbitrage      TradeReason = "Arbitrage"
)

// TradeIntent is a single proposed swap awaiting execution.
type TradeIntent struct {
	SourceToken TokenKey
	TargetToken TokenKey
	Amount      decimal.Decimal
	Reason      TradeReason
}

// TradeResult is an append-only history element recording the outcome of
// one executed swap (direct or the final leg of a routed swap).
type TradeResult struct {
	Success   bool
	Source    TokenKey
	Target    TokenKey
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal // zero value when unset; check Success
	HasAmountOut bool
	TxID      string
	Error     string
	Timestamp time.Time
}

// ArbitrageOpportunity is a detected circular path with its simulated
// profitability.
type ArbitrageOpportunity struct {
	Path              CircularPath
	InputAmount       decimal.Decimal
	ExpectedOut       decimal.Decimal
	GrossProfit       decimal.Decimal
	FeeAdjustedProfit decimal.Decimal
	ProfitPct         decimal.Decimal
	PriceImpacts      []decimal.Decimal
	DetectedAt        time.Time
}

// ArbitrageResult records the outcome of executing an ArbitrageOpportunity.
type ArbitrageResult struct {
	Opportunity  ArbitrageOpportunity
	Success      bool
	HopResults   []TradeResult
	FailedAtHop  int // -1 if no hop failed: all succeeded, or pre-validation aborted before any hop ran
	Error        string
	Timestamp    time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Transport wire shapes
// ————————————————————————————————————————————————————————————————————————

// CompositePoolResponse mirrors the gateway's GetCompositePool response
// envelope. Numeric fields arrive as decimal strings.
type CompositePoolResponse struct {
	Data *CompositePoolData `json:"Data"`
}

// CompositePoolData is the pool payload nested under Data.
type CompositePoolData struct {
	Token0      string          `json:"token0"`
	Token1      string          `json:"token1"`
	Fee         int             `json:"fee"`
	Decimals0   int             `json:"decimals0"`
	Decimals1   int             `json:"decimals1"`
	SqrtPrice   string          `json:"sqrtPrice"`
	Liquidity   string          `json:"liquidity"`
	TickSpacing int             `json:"tickSpacing"`
	Ticks       []WireTick      `json:"ticks"`
}

// WireTick is one entry of a composite pool response's tick array.
type WireTick struct {
	Index            int    `json:"tickIndex"`
	NetLiquidity     string `json:"liquidityNet"`
	GrossLiquidity   string `json:"liquidityGross"`
	FeeGrowthOutside string `json:"feeGrowthOutside0X128"`
}

// QuoteResponse mirrors the gateway's exact-input quote response.
type QuoteResponse struct {
	AmountIn           string `json:"amountIn"`
	AmountOut          string `json:"amountOut"`
	CurrentSqrtPrice   string `json:"currentSqrtPrice"`
	NewSqrtPrice       string `json:"newSqrtPrice"`
	Fee                int    `json:"feeTier"`
}

// UserAsset mirrors one entry of the gateway's getUserAssets response. The
// shape is heterogeneous in practice: some entries nest a tokenClassKey,
// others flatten the fields directly onto the asset.
type UserAsset struct {
	Symbol        string          `json:"symbol"`
	Quantity      string          `json:"quantity"`
	TokenClassKey *TokenClassKey  `json:"tokenClassKey,omitempty"`
	Collection    string          `json:"collection,omitempty"`
	Category      string          `json:"category,omitempty"`
	Type          string          `json:"type,omitempty"`
	AdditionalKey string          `json:"additionalKey,omitempty"`
}

// TokenClassKey is the nested token-identity shape some asset entries use.
type TokenClassKey struct {
	Collection    string `json:"collection"`
	Category      string `json:"category"`
	Type          string `json:"type"`
	AdditionalKey string `json:"additionalKey"`
}

// UserAssetsResponse is the paginated envelope around a list of UserAsset.
type UserAssetsResponse struct {
	Tokens     []UserAsset `json:"tokens"`
	Count      int         `json:"count"`
}

// SwapSubmission is the payload sent to the bundler to submit a signed swap.
type SwapSubmission struct {
	TokenIn           string `json:"tokenIn"`
	TokenOut          string `json:"tokenOut"`
	Fee               int    `json:"fee"`
	AmountIn          string `json:"amountIn"`
	AmountOutMinimum  string `json:"amountOutMinimum"`
	Signer            string `json:"signer"`
}

// SwapSubmissionResponse carries the pending transaction id returned
// immediately on submission, before the async result arrives.
type SwapSubmissionResponse struct {
	TransactionID string `json:"transactionId"`
}

// NotificationStatus enumerates the terminal states delivered on the
// transaction-notification channel.
type NotificationStatus string

const (
	NotificationProcessed NotificationStatus = "PROCESSED"
	NotificationFailed    NotificationStatus = "FAILED"
)

// TransactionNotification is one framed event on the notification channel.
type TransactionNotification struct {
	TransactionID string              `json:"txId"`
	Status        NotificationStatus  `json:"status"`
	Payload       map[string]any      `json:"data,omitempty"`
}

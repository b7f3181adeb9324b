// Package balance implements the balance manager (C7): fetches the
// wallet's on-chain inventory, partitions it into preferred/gas/other, and
// derives prioritized rebalancing trade intents. Grounded on the teacher's
// internal/strategy/inventory.go snapshot-under-RWMutex shape, generalized
// from a YES/NO position partition to a preferred/gas/other token
// partition.
package balance

import (
	"context"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/errs"
	"galaswap-agent/pkg/types"
)

const dustThreshold = 0.000001

var dustThresholdDecimal = decimal.NewFromFloat(dustThreshold)

// AssetFetcher fetches one page of the wallet's asset inventory.
// Implemented by *transport.Gateway in production.
type AssetFetcher interface {
	GetUserAssets(ctx context.Context, address string, page, pageSize int) (*types.UserAssetsResponse, error)
}

// Manager reads balances via the transport and derives trade intents.
type Manager struct {
	fetcher           AssetFetcher
	walletAddress     string
	preferredKey      types.TokenKey
	gasKey            types.TokenKey
	minGasBalance     decimal.Decimal
	tradeAmountPct    decimal.Decimal
}

// New creates a balance manager for the configured preferred/gas tokens.
func New(fetcher AssetFetcher, walletAddress string, preferredKey, gasKey types.TokenKey, minGasBalance, tradeAmountPct decimal.Decimal) *Manager {
	return &Manager{
		fetcher:        fetcher,
		walletAddress:  walletAddress,
		preferredKey:   preferredKey,
		gasKey:         gasKey,
		minGasBalance:  minGasBalance,
		tradeAmountPct: tradeAmountPct,
	}
}

const assetPageSize = 100

// FetchBalances pages through the wallet's asset inventory and partitions
// it into the preferred token, the gas token, and everything else.
func (m *Manager) FetchBalances(ctx context.Context) (types.BalanceSummary, error) {
	var all []types.UserAsset
	page := 1
	for {
		resp, err := m.fetcher.GetUserAssets(ctx, m.walletAddress, page, assetPageSize)
		if err != nil {
			return types.BalanceSummary{}, errs.Transport(err, "FetchBalances: page %d", page)
		}
		all = append(all, resp.Tokens...)
		if len(resp.Tokens) < assetPageSize {
			break
		}
		page++
	}

	summary := types.BalanceSummary{
		Preferred: types.TokenBalance{Key: m.preferredKey, Balance: decimal.Zero},
		Gas:       types.TokenBalance{Key: m.gasKey, Balance: decimal.Zero},
	}

	for _, asset := range all {
		key := resolveAssetKey(asset)
		qty, err := decimal.NewFromString(asset.Quantity)
		if err != nil {
			continue
		}

		switch {
		case key.Equal(m.preferredKey):
			summary.Preferred.Balance = summary.Preferred.Balance.Add(qty)
		case key.Equal(m.gasKey):
			summary.Gas.Balance = summary.Gas.Balance.Add(qty)
		default:
			summary.Other = append(summary.Other, types.TokenBalance{Key: key, Balance: qty})
		}
	}

	summary.TotalTokenCount = 2 + len(summary.Other)
	return summary, nil
}

// resolveAssetKey implements the dynamic-shape parse named in spec.md §9:
// prefer the nested tokenClassKey, then the flattened fields, then fall
// back to (symbol, Unit, none, none).
func resolveAssetKey(asset types.UserAsset) types.TokenKey {
	if asset.TokenClassKey != nil {
		return types.TokenKey{
			Collection:    asset.TokenClassKey.Collection,
			Category:      asset.TokenClassKey.Category,
			Type:          asset.TokenClassKey.Type,
			AdditionalKey: asset.TokenClassKey.AdditionalKey,
		}
	}
	if asset.Collection != "" {
		return types.TokenKey{
			Collection:    asset.Collection,
			Category:      orDefault(asset.Category, "Unit"),
			Type:          orDefault(asset.Type, "none"),
			AdditionalKey: orDefault(asset.AdditionalKey, "none"),
		}
	}
	return types.WellKnownTokenKey(asset.Symbol)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// DeriveIntents builds the prioritized trade intent list per spec.md
// §4.7: gas refill, then DCA to preferred, then spend excess gas. Amounts
// below the dust threshold are dropped.
func (m *Manager) DeriveIntents(summary types.BalanceSummary) []types.TradeIntent {
	var intents []types.TradeIntent

	preferredEqualsGas := m.preferredKey.Equal(m.gasKey)

	if summary.Gas.Balance.LessThan(m.minGasBalance) {
		for _, other := range summary.Other {
			amount := other.Balance.Mul(m.tradeAmountPct).Div(decimal.NewFromInt(100))
			if amount.LessThan(dustThresholdDecimal) {
				continue
			}
			intents = append(intents, types.TradeIntent{
				SourceToken: other.Key,
				TargetToken: m.gasKey,
				Amount:      amount,
				Reason:      types.ReasonRefillGas,
			})
		}
	}

	for _, other := range summary.Other {
		amount := other.Balance.Mul(m.tradeAmountPct).Div(decimal.NewFromInt(100))
		if amount.LessThan(dustThresholdDecimal) {
			continue
		}
		intents = append(intents, types.TradeIntent{
			SourceToken: other.Key,
			TargetToken: m.preferredKey,
			Amount:      amount,
			Reason:      types.ReasonDCAToPreferred,
		})
	}

	// Threshold resolved as "gas > minGasBalance", not "gas > 2x minGasBalance":
	// the literal worked example (GALA:150, minGas:100) fires this branch, which
	// only a 1x threshold admits.
	if summary.Gas.Balance.GreaterThan(m.minGasBalance) && !preferredEqualsGas {
		excess := summary.Gas.Balance.Sub(m.minGasBalance)
		amount := excess.Mul(m.tradeAmountPct).Div(decimal.NewFromInt(100)).Mul(decimal.NewFromFloat(0.5))
		if amount.GreaterThanOrEqual(dustThresholdDecimal) {
			intents = append(intents, types.TradeIntent{
				SourceToken: m.gasKey,
				TargetToken: m.preferredKey,
				Amount:      amount,
				Reason:      types.ReasonSpendExcessGas,
			})
		}
	}

	return intents
}

// SortForExecution re-sorts intents so gas-refill intents come first
// regardless of detector ordering, per spec.md §4.7, without disturbing
// relative order within each reason (stable sort).
func SortForExecution(intents []types.TradeIntent) []types.TradeIntent {
	out := make([]types.TradeIntent, len(intents))
	copy(out, intents)

	var refill, rest []types.TradeIntent
	for _, i := range out {
		if i.Reason == types.ReasonRefillGas {
			refill = append(refill, i)
		} else {
			rest = append(rest, i)
		}
	}
	return append(refill, rest...)
}

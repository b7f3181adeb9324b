// Package transport implements the HTTP+JSON gateway client and the
// push-style transaction-notification channel — the two external
// collaborators the trading engine drives but does not own the protocol
// for. Every request is rate-limited via a TokenBucket and retried on 5xx
// errors, mirroring the teacher's exchange client.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"galaswap-agent/internal/config"
	"galaswap-agent/internal/errs"
	"galaswap-agent/pkg/types"
)

// Gateway is the HTTP+JSON client for pool, quote, and asset queries plus
// swap submission. It never signs payloads itself; signing is delegated to
// the configured signer (an external collaborator out of scope here).
type Gateway struct {
	http                *resty.Client
	bundlerHTTP         *resty.Client
	dexContractBasePath string
	walletAddress       string
	rl                  *TokenBucket
	dryRun              bool
	logger              *slog.Logger
}

// NewGateway creates a rate-limited, retrying client against the gateway
// and bundler base URLs.
func NewGateway(cfg *config.Config, logger *slog.Logger) *Gateway {
	newClient := func(baseURL string) *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r.StatusCode() >= 500
			}).
			SetHeader("Content-Type", "application/json")
	}

	return &Gateway{
		http:                newClient(cfg.GatewayBaseURL),
		bundlerHTTP:         newClient(cfg.BundlerBaseURL),
		dexContractBasePath: cfg.DexContractBasePath,
		walletAddress:       cfg.WalletAddress,
		rl:                  NewTokenBucket(60, 10),
		dryRun:              !cfg.EnableTrading,
		logger:              logger.With("component", "gateway"),
	}
}

// GetCompositePool fetches the full pool state — sqrt price, liquidity,
// tick map — for a single pool. Returns *errs.Error with KindTransport on
// any HTTP failure or a missing Data field.
func (g *Gateway) GetCompositePool(ctx context.Context, t0, t1 types.TokenKey, fee types.FeeTier) (*types.PoolSnapshot, error) {
	if err := g.rl.Wait(ctx); err != nil {
		return nil, errs.Cancelled(err, "GetCompositePool wait")
	}

	var result types.CompositePoolResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"token0": t0.String(),
			"token1": t1.String(),
			"fee":    int(fee),
		}).
		SetResult(&result).
		Post(g.dexContractBasePath + "/GetCompositePool")
	if err != nil {
		return nil, errs.Transport(err, "GetCompositePool")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errs.Transport(nil, "GetCompositePool: status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Data == nil {
		return nil, errs.Transport(nil, "GetCompositePool: response missing Data field")
	}

	return parseCompositePool(result.Data)
}

func parseCompositePool(d *types.CompositePoolData) (*types.PoolSnapshot, error) {
	t0, err := types.ParseTokenKey(d.Token0)
	if err != nil {
		return nil, errs.Transport(err, "GetCompositePool: token0")
	}
	t1, err := types.ParseTokenKey(d.Token1)
	if err != nil {
		return nil, errs.Transport(err, "GetCompositePool: token1")
	}
	sqrtPrice, err := decimal.NewFromString(d.SqrtPrice)
	if err != nil {
		return nil, errs.Transport(err, "GetCompositePool: sqrtPrice")
	}
	liquidity, err := decimal.NewFromString(d.Liquidity)
	if err != nil {
		return nil, errs.Transport(err, "GetCompositePool: liquidity")
	}

	ticks := make(map[int]types.TickData, len(d.Ticks))
	for _, wt := range d.Ticks {
		net, err := decimal.NewFromString(wt.NetLiquidity)
		if err != nil {
			return nil, errs.Transport(err, "GetCompositePool: tick %d liquidityNet", wt.Index)
		}
		gross, err := decimal.NewFromString(wt.GrossLiquidity)
		if err != nil {
			return nil, errs.Transport(err, "GetCompositePool: tick %d liquidityGross", wt.Index)
		}
		feeGrowth := decimal.Zero
		if wt.FeeGrowthOutside != "" {
			feeGrowth, err = decimal.NewFromString(wt.FeeGrowthOutside)
			if err != nil {
				return nil, errs.Transport(err, "GetCompositePool: tick %d feeGrowthOutside", wt.Index)
			}
		}
		ticks[wt.Index] = types.TickData{NetLiquidity: net, GrossLiquidity: gross, FeeGrowthOutside: feeGrowth}
	}

	return &types.PoolSnapshot{
		Token0:      t0,
		Token1:      t1,
		Fee:         types.FeeTier(d.Fee),
		Decimals0:   d.Decimals0,
		Decimals1:   d.Decimals1,
		SqrtPrice:   sqrtPrice,
		Liquidity:   liquidity,
		TickSpacing: d.TickSpacing,
		Ticks:       ticks,
		FetchedAt:   time.Now(),
	}, nil
}

// GetPoolData fetches a pool's composite snapshot (tick map included) for a
// fee tier, used to probe fee tiers in ExecuteDirect. Returns nil without
// error on any transport-kind failure, a missing pool included.
func (g *Gateway) GetPoolData(ctx context.Context, t0, t1 types.TokenKey, fee types.FeeTier) (*types.PoolSnapshot, error) {
	snap, err := g.GetCompositePool(ctx, t0, t1, fee)
	if err != nil {
		if errs.KindOf(err) == errs.KindTransport {
			return nil, nil
		}
		return nil, err
	}
	return snap, nil
}

// Quote requests an exact-input swap quote from the gateway (online quoting,
// used by C8 for the fresh number it needs before each swap and for
// arbitrage pre-validation and mid-cycle re-quotes — the offline engine in
// internal/quote handles all bulk simulation).
func (g *Gateway) Quote(ctx context.Context, tokenIn, tokenOut types.TokenKey, fee types.FeeTier, amountIn decimal.Decimal) (*types.QuoteResponse, error) {
	if err := g.rl.Wait(ctx); err != nil {
		return nil, errs.Cancelled(err, "Quote wait")
	}

	var result types.QuoteResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"tokenIn":  tokenIn.String(),
			"tokenOut": tokenOut.String(),
			"fee":      int(fee),
			"amountIn": amountIn.String(),
		}).
		SetResult(&result).
		Post(g.dexContractBasePath + "/QuoteExactInput")
	if err != nil {
		return nil, errs.Quote(err, "Quote")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errs.Quote(nil, "Quote: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

// GetUserAssets fetches one page of the wallet's asset inventory.
func (g *Gateway) GetUserAssets(ctx context.Context, address string, page, pageSize int) (*types.UserAssetsResponse, error) {
	if err := g.rl.Wait(ctx); err != nil {
		return nil, errs.Cancelled(err, "GetUserAssets wait")
	}

	var result types.UserAssetsResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"address":  address,
			"page":     fmt.Sprintf("%d", page),
			"pageSize": fmt.Sprintf("%d", pageSize),
		}).
		SetResult(&result).
		Get("/v1/trade/assets")
	if err != nil {
		return nil, errs.Transport(err, "GetUserAssets")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errs.Transport(nil, "GetUserAssets: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

// SubmitSwap submits a signed exact-input swap to the bundler, returning
// the pending transaction id immediately. Dry-run mode (enableTrading =
// false) never calls this; callers in internal/executor short-circuit
// before reaching here.
func (g *Gateway) SubmitSwap(ctx context.Context, sub types.SwapSubmission) (string, error) {
	if err := g.rl.Wait(ctx); err != nil {
		return "", errs.Cancelled(err, "SubmitSwap wait")
	}

	var result types.SwapSubmissionResponse
	resp, err := g.bundlerHTTP.R().
		SetContext(ctx).
		SetBody(sub).
		SetResult(&result).
		Post("/v1/trade/swap")
	if err != nil {
		return "", errs.Submission(err, "SubmitSwap")
	}
	if resp.StatusCode() != http.StatusOK {
		return "", errs.Submission(nil, "SubmitSwap: status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.TransactionID == "" {
		return "", errs.Submission(nil, "SubmitSwap: response missing transactionId")
	}
	return result.TransactionID, nil
}

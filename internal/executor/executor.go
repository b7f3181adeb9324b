// Package executor implements the trade router/executor (C8): direct and
// two-hop swap execution with quoting, slippage bounds, and submission.
// Grounded on the teacher's exchange.Client dry-run short-circuit and
// internal/strategy/maker.go's reconciliation control flow. ExecuteArbitrage
// additionally recovers jonasrmichel-gswap-arb__executor.go's
// preValidateQuotes/calculateRemainingProfit pair: a fresh-quote
// re-validation before committing the first hop, and a remaining-path
// re-quote between hops that flags (but, matching the reference, does not
// reverse) a cycle whose live profitability has decayed mid-flight.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/errs"
	"galaswap-agent/internal/registry"
	"galaswap-agent/pkg/types"
)

const interTradeDelay = 5 * time.Second

// dryRunOutputFactor matches spec.md §4.8's synthetic dry-run output.
var dryRunOutputFactor = decimal.NewFromFloat(0.98)

// Gateway is the transport surface the executor drives.
type Gateway interface {
	GetPoolData(ctx context.Context, t0, t1 types.TokenKey, fee types.FeeTier) (*types.PoolSnapshot, error)
	Quote(ctx context.Context, tokenIn, tokenOut types.TokenKey, fee types.FeeTier, amountIn decimal.Decimal) (*types.QuoteResponse, error)
	SubmitSwap(ctx context.Context, sub types.SwapSubmission) (string, error)
}

// NotificationWaiter awaits the terminal outcome of a submitted transaction.
type NotificationWaiter interface {
	AwaitTransaction(ctx context.Context, txID string, timeout time.Duration) (*types.TransactionNotification, error)
}

// Signer identifies the configured signer's address, used only to stamp
// the submission payload; actual signing happens outside this process.
type Signer interface {
	Address() string
}

// staticSigner is the minimal in-process stand-in for the external
// private-key signer named in spec.md §1 — it carries an address string
// and performs no cryptographic operation.
type staticSigner struct{ address string }

func (s staticSigner) Address() string { return s.address }

// NewStaticSigner wraps a wallet address string as a Signer.
func NewStaticSigner(address string) Signer { return staticSigner{address: address} }

// Executor runs trade intents and arbitrage opportunities against the
// gateway and notification channel.
type Executor struct {
	gateway      Gateway
	notifier     NotificationWaiter
	signer       Signer
	registry     *registry.Registry
	gasKey       types.TokenKey
	maxSlippage  decimal.Decimal
	txTimeout    time.Duration
	enableTrading bool
	logger       *slog.Logger
}

// New creates an Executor. enableTrading=false puts every execute path
// into dry-run mode per spec.md §4.8.
func New(gateway Gateway, notifier NotificationWaiter, signer Signer, reg *registry.Registry, gasKey types.TokenKey, maxSlippage decimal.Decimal, txTimeout time.Duration, enableTrading bool, logger *slog.Logger) *Executor {
	return &Executor{
		gateway:       gateway,
		notifier:      notifier,
		signer:        signer,
		registry:      reg,
		gasKey:        gasKey,
		maxSlippage:   maxSlippage,
		txTimeout:     txTimeout,
		enableTrading: enableTrading,
		logger:        logger.With("component", "executor"),
	}
}

// ExecuteDirect performs a single direct swap. If feeOpt is nil, probes all
// three fee tiers and picks the highest-liquidity pool.
func (e *Executor) ExecuteDirect(ctx context.Context, src, dst types.TokenKey, amount decimal.Decimal, feeOpt *types.FeeTier) types.TradeResult {
	now := time.Now()

	fee, err := e.resolveFeeTier(ctx, src, dst, feeOpt)
	if err != nil {
		return failResult(src, dst, amount, err, now)
	}

	quoted, err := e.gateway.Quote(ctx, src, dst, fee, amount)
	if err != nil {
		return failResult(src, dst, amount, errs.Quote(err, "ExecuteDirect: quote"), now)
	}
	expectedOut, err := decimal.NewFromString(quoted.AmountOut)
	if err != nil {
		return failResult(src, dst, amount, errs.Quote(err, "ExecuteDirect: parse quoted amountOut"), now)
	}

	minOut := minimumOutput(expectedOut, e.maxSlippage)

	if !e.enableTrading {
		return e.dryRunResult(src, dst, amount, now)
	}

	sub := types.SwapSubmission{
		TokenIn:          src.String(),
		TokenOut:         dst.String(),
		Fee:              int(fee),
		AmountIn:         amount.String(),
		AmountOutMinimum: minOut.String(),
		Signer:           e.signer.Address(),
	}

	txID, err := e.gateway.SubmitSwap(ctx, sub)
	if err != nil {
		return failResult(src, dst, amount, err, now)
	}

	notif, err := e.notifier.AwaitTransaction(ctx, txID, e.txTimeout)
	if err != nil {
		return failResult(src, dst, amount, err, now)
	}
	if notif.Status != types.NotificationProcessed {
		return failResult(src, dst, amount, errs.Submission(nil, "transaction %s failed on-chain", txID), now)
	}

	return types.TradeResult{
		Success:      true,
		Source:       src,
		Target:       dst,
		AmountIn:     amount,
		AmountOut:    expectedOut,
		HasAmountOut: true,
		TxID:         txID,
		Timestamp:    now,
	}
}

// resolveFeeTier probes all three fee tiers when feeOpt is absent, keeping
// only those with positive liquidity, and returns the highest-liquidity
// pool's fee.
func (e *Executor) resolveFeeTier(ctx context.Context, src, dst types.TokenKey, feeOpt *types.FeeTier) (types.FeeTier, error) {
	if feeOpt != nil {
		return *feeOpt, nil
	}

	var bestFee types.FeeTier
	var bestLiquidity decimal.Decimal
	found := false

	for _, fee := range types.ValidFeeTiers {
		snap, err := e.gateway.GetPoolData(ctx, src, dst, fee)
		if err != nil || snap == nil {
			continue
		}
		if snap.Liquidity.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if !found || snap.Liquidity.GreaterThan(bestLiquidity) {
			bestFee = fee
			bestLiquidity = snap.Liquidity
			found = true
		}
	}

	if !found {
		return 0, errs.NoRoute(nil, "no liquid pool for %s/%s at any fee tier", src, dst)
	}
	return bestFee, nil
}

// ExecuteRouted attempts a direct swap; on failure, falls back to a
// two-hop route through a well-known intermediate (the gas token or a
// major stablecoin) drawn from the registry.
func (e *Executor) ExecuteRouted(ctx context.Context, src, dst types.TokenKey, amount decimal.Decimal) types.TradeResult {
	direct := e.ExecuteDirect(ctx, src, dst, amount, nil)
	if direct.Success {
		return direct
	}

	for _, intermediate := range e.candidateIntermediates(src, dst) {
		hop1 := e.ExecuteDirect(ctx, src, intermediate, amount, nil)
		if !hop1.Success {
			continue
		}

		hopAmount := amount
		if hop1.HasAmountOut {
			hopAmount = hop1.AmountOut
		}

		hop2 := e.ExecuteDirect(ctx, intermediate, dst, hopAmount, nil)
		if !hop2.Success {
			// Hop 1 succeeded; the intermediate balance is now real and
			// will surface on the next rebalance cycle. No automatic
			// unwinding, per spec.md §4.8.
			return hop2
		}

		return hop2
	}

	return failResult(src, dst, amount, errs.NoRoute(nil, "no direct or two-hop route from %s to %s", src, dst), time.Now())
}

// candidateIntermediates returns well-known tokens (the gas token, plus
// any registry token that has pools against both src and dst) to try as
// the middle hop of a routed swap.
func (e *Executor) candidateIntermediates(src, dst types.TokenKey) []types.TokenKey {
	seen := map[string]bool{src.String(): true, dst.String(): true}
	var out []types.TokenKey

	if !seen[e.gasKey.String()] {
		out = append(out, e.gasKey)
		seen[e.gasKey.String()] = true
	}

	for _, pool := range e.registry.PoolsForToken(src) {
		candidate := pool.Token0
		if candidate.Equal(src) {
			candidate = pool.Token1
		}
		if seen[candidate.String()] {
			continue
		}
		hasDstPool := false
		for _, p2 := range e.registry.PoolsForToken(candidate) {
			if p2.Token0.Equal(dst) || p2.Token1.Equal(dst) {
				hasDstPool = true
				break
			}
		}
		if hasDstPool {
			seen[candidate.String()] = true
			out = append(out, candidate)
		}
	}

	return out
}

// ExecuteArbitrage re-validates opportunity against fresh quotes, then
// executes each hop in sequence as a direct swap, stopping and reporting
// failure on the first failing hop. minProfitPct is the same threshold the
// detector used to rank the opportunity; it governs both the pre-execution
// abort and the mid-cycle bailout check below.
func (e *Executor) ExecuteArbitrage(ctx context.Context, opportunity types.ArbitrageOpportunity, minProfitPct decimal.Decimal) types.ArbitrageResult {
	now := time.Now()
	path := opportunity.Path

	livePct, err := e.preValidateQuotes(ctx, path, opportunity.InputAmount, minProfitPct)
	if err != nil {
		e.logger.Warn("arbitrage pre-validation aborted cycle", "error", err, "livePct", livePct, "minProfitPct", minProfitPct)
		return types.ArbitrageResult{
			Opportunity: opportunity,
			Success:     false,
			FailedAtHop: -1,
			Error:       err.Error(),
			Timestamp:   now,
		}
	}

	hopResults := make([]types.TradeResult, 0, len(path.Pools))
	current := opportunity.InputAmount
	bailoutNote := ""

	for i, pool := range path.Pools {
		src := path.Tokens[i]
		dst := path.Tokens[i+1]
		fee := pool.Fee

		result := e.ExecuteDirect(ctx, src, dst, current, &fee)
		hopResults = append(hopResults, result)

		if !result.Success {
			return types.ArbitrageResult{
				Opportunity: opportunity,
				Success:     false,
				HopResults:  hopResults,
				FailedAtHop: i,
				Error:       result.Error,
				Timestamp:   now,
			}
		}

		if result.HasAmountOut {
			current = result.AmountOut
		}

		if bailoutNote == "" && i < len(path.Pools)-1 {
			bailoutNote = e.checkMidCycleBailout(ctx, path, i+1, current, minProfitPct)
		}
	}

	return types.ArbitrageResult{
		Opportunity: opportunity,
		Success:     true,
		HopResults:  hopResults,
		FailedAtHop: -1,
		Error:       bailoutNote,
		Timestamp:   now,
	}
}

// preValidateQuotes re-quotes every hop of path at inputAmount immediately
// before committing the first swap, chaining each hop's quoted output into
// the next hop's input the same way pathfinder.SimulatePath does offline.
// It returns the live profit percent and an error if that percent has
// decayed below minProfitPct since the opportunity was detected, or if any
// hop can no longer be quoted at all.
func (e *Executor) preValidateQuotes(ctx context.Context, path types.CircularPath, inputAmount, minProfitPct decimal.Decimal) (decimal.Decimal, error) {
	current := inputAmount

	for i, pool := range path.Pools {
		src := path.Tokens[i]
		dst := path.Tokens[i+1]

		quoted, err := e.gateway.Quote(ctx, src, dst, pool.Fee, current)
		if err != nil {
			return decimal.Zero, errs.Quote(err, "pre-validation: hop %d (%s->%s)", i, src, dst)
		}
		out, err := decimal.NewFromString(quoted.AmountOut)
		if err != nil {
			return decimal.Zero, errs.Quote(err, "pre-validation: hop %d (%s->%s): parse amountOut", i, src, dst)
		}
		current = out
	}

	livePct := profitPercent(inputAmount, current)
	if livePct.LessThan(minProfitPct) {
		return livePct, errs.NoRoute(nil, "pre-validation: live profit %s%% has decayed below minimum %s%%", livePct, minProfitPct)
	}
	return livePct, nil
}

// checkMidCycleBailout re-quotes the unexecuted tail of path starting at
// fromHop with the amount actually produced so far, and logs (rather than
// reverses, matching the reference: on-chain swaps already submitted cannot
// be unwound) a warning when the projected remaining profit has fallen
// below the negative of minProfitPct. The returned string is empty unless
// the bailout threshold was crossed, in which case it becomes the cycle's
// result note.
func (e *Executor) checkMidCycleBailout(ctx context.Context, path types.CircularPath, fromHop int, amount, minProfitPct decimal.Decimal) string {
	remainingPct, err := e.remainingPathProfit(ctx, path, fromHop, amount)
	if err != nil {
		e.logger.Warn("mid-cycle bailout check could not re-quote remaining path", "fromHop", fromHop, "error", err)
		return ""
	}

	bailoutThreshold := minProfitPct.Neg()
	if remainingPct.GreaterThanOrEqual(bailoutThreshold) {
		return ""
	}

	e.logger.Warn("mid-cycle bailout threshold triggered", "fromHop", fromHop, "remainingPct", remainingPct, "thresholdPct", bailoutThreshold)
	return fmt.Sprintf("mid-cycle bailout: remaining path profit %s%% fell below threshold %s%% after hop %d; continuing (cannot reverse on-chain swaps)", remainingPct, bailoutThreshold, fromHop-1)
}

// remainingPathProfit re-quotes path[fromHop:] starting from amount,
// returning the projected profit percent of finishing the cycle from here.
func (e *Executor) remainingPathProfit(ctx context.Context, path types.CircularPath, fromHop int, amount decimal.Decimal) (decimal.Decimal, error) {
	current := amount

	for i := fromHop; i < len(path.Pools); i++ {
		src := path.Tokens[i]
		dst := path.Tokens[i+1]
		pool := path.Pools[i]

		quoted, err := e.gateway.Quote(ctx, src, dst, pool.Fee, current)
		if err != nil {
			return decimal.Zero, errs.Quote(err, "mid-cycle: hop %d (%s->%s)", i, src, dst)
		}
		out, err := decimal.NewFromString(quoted.AmountOut)
		if err != nil {
			return decimal.Zero, errs.Quote(err, "mid-cycle: hop %d (%s->%s): parse amountOut", i, src, dst)
		}
		current = out
	}

	return profitPercent(amount, current), nil
}

// profitPercent computes the gross (out-in)/in*100; unlike
// pathfinder.SimulatePath's profitPct it applies no fee haircut. Returns
// zero for a non-positive base rather than dividing by it.
func profitPercent(in, out decimal.Decimal) decimal.Decimal {
	if in.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return out.Sub(in).Div(in).Mul(decimal.NewFromInt(100))
}

// ExecuteBatch runs intents serially, gas-refill intents first, inserting
// interTradeDelay between trades to avoid rate limiting.
func (e *Executor) ExecuteBatch(ctx context.Context, intents []types.TradeIntent) []types.TradeResult {
	ordered := sortRefillFirst(intents)
	results := make([]types.TradeResult, 0, len(ordered))

	for i, intent := range ordered {
		result := e.ExecuteRouted(ctx, intent.SourceToken, intent.TargetToken, intent.Amount)
		results = append(results, result)

		if i < len(ordered)-1 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(interTradeDelay):
			}
		}
	}

	return results
}

func sortRefillFirst(intents []types.TradeIntent) []types.TradeIntent {
	var refill, rest []types.TradeIntent
	for _, i := range intents {
		if i.Reason == types.ReasonRefillGas {
			refill = append(refill, i)
		} else {
			rest = append(rest, i)
		}
	}
	return append(refill, rest...)
}

func (e *Executor) dryRunResult(src, dst types.TokenKey, amount decimal.Decimal, now time.Time) types.TradeResult {
	amountOut := amount.Mul(dryRunOutputFactor)
	return types.TradeResult{
		Success:      true,
		Source:       src,
		Target:       dst,
		AmountIn:     amount,
		AmountOut:    amountOut,
		HasAmountOut: true,
		TxID:         fmt.Sprintf("dry-run-%d", now.UnixNano()),
		Timestamp:    now,
	}
}

func failResult(src, dst types.TokenKey, amount decimal.Decimal, err error, now time.Time) types.TradeResult {
	return types.TradeResult{
		Success:   false,
		Source:    src,
		Target:    dst,
		AmountIn:  amount,
		Error:     err.Error(),
		Timestamp: now,
	}
}

// minimumOutput computes expected * (1 - maxSlippage/100).
func minimumOutput(expected, maxSlippagePercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(maxSlippagePercent.Div(decimal.NewFromInt(100)))
	return expected.Mul(factor)
}

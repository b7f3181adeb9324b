// Package quote implements the offline exact-input swap simulator (C3): a
// local reproduction of the AMM's tick-walking behavior over a cached pool
// snapshot. No network calls occur here — everything operates on the
// snapshot already resident in memory, and every arithmetic step uses
// shopspring/decimal so no IEEE-754 float enters the hot path.
package quote

import (
	"sort"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/errs"
	"galaswap-agent/pkg/types"
)

// hundred is used repeatedly for percent conversions.
var hundred = decimal.NewFromInt(100)

// feeDenominator matches the on-chain convention: fee tiers are expressed
// in hundredths of a basis point out of 1,000,000.
var feeDenominator = decimal.NewFromInt(1_000_000)

// Result is the outcome of simulating one exact-input swap.
type Result struct {
	AmountIn           decimal.Decimal
	AmountOut          decimal.Decimal
	CurrentSqrtPrice   decimal.Decimal
	NewSqrtPrice       decimal.Decimal
	PriceImpactPercent decimal.Decimal
}

// SimulateExactInput computes the output of an exact-input swap against
// snapshot, starting from tokenIn, consuming amountIn. Walks the snapshot's
// sparse tick map in the swap direction, applying the pool's fee tier per
// step and updating sqrt price as liquidity is consumed. Fails with
// *errs.Error (KindQuote) when the snapshot lacks enough liquidity to
// absorb the full input.
func SimulateExactInput(snapshot *types.PoolSnapshot, tokenIn types.TokenKey, amountIn decimal.Decimal) (*Result, error) {
	if !snapshot.HasToken(tokenIn) {
		return nil, errs.Quote(nil, "token %s is not part of pool %s/%s", tokenIn, snapshot.Token0, snapshot.Token1)
	}
	if amountIn.LessThanOrEqual(decimal.Zero) {
		return nil, errs.Quote(nil, "amountIn must be positive")
	}

	zeroForOne := snapshot.Token0.Equal(tokenIn)
	currentSqrtPrice := snapshot.SqrtPrice

	ticks := sortedTickIndices(snapshot.Ticks, zeroForOne, currentSqrtPrice)

	remainingIn := amountIn
	sqrtPrice := currentSqrtPrice
	liquidity := snapshot.Liquidity
	amountOut := decimal.Zero

	feeFraction := decimal.NewFromInt(int64(snapshot.Fee)).Div(feeDenominator)
	oneMinusFee := decimal.NewFromInt(1).Sub(feeFraction)

	for _, tickIdx := range ticks {
		if remainingIn.LessThanOrEqual(decimal.Zero) {
			break
		}
		if liquidity.LessThanOrEqual(decimal.Zero) {
			continue
		}

		tick := snapshot.Ticks[tickIdx]
		boundarySqrtPrice := tickToSqrtPrice(tickIdx)

		inStep, outStep, nextSqrtPrice, consumed := stepSwap(sqrtPrice, boundarySqrtPrice, liquidity, remainingIn, oneMinusFee, zeroForOne)

		remainingIn = remainingIn.Sub(inStep)
		amountOut = amountOut.Add(outStep)
		sqrtPrice = nextSqrtPrice

		if consumed {
			if zeroForOne {
				liquidity = liquidity.Sub(tick.NetLiquidity)
			} else {
				liquidity = liquidity.Add(tick.NetLiquidity)
			}
		}
	}

	if remainingIn.GreaterThan(decimal.Zero) {
		if liquidity.GreaterThan(decimal.Zero) {
			inStep, outStep, nextSqrtPrice, _ := stepSwapUnbounded(sqrtPrice, liquidity, remainingIn, oneMinusFee, zeroForOne)
			remainingIn = remainingIn.Sub(inStep)
			amountOut = amountOut.Add(outStep)
			sqrtPrice = nextSqrtPrice
		}
	}

	if remainingIn.GreaterThan(decimal.Zero) {
		return nil, errs.Quote(nil, "insufficient liquidity to absorb input: %s remaining of %s", remainingIn, amountIn)
	}
	if amountOut.LessThanOrEqual(decimal.Zero) {
		return nil, errs.Quote(nil, "insufficient liquidity: zero output")
	}

	priceImpact := priceImpactPercent(currentSqrtPrice, sqrtPrice)

	return &Result{
		AmountIn:           amountIn,
		AmountOut:          amountOut,
		CurrentSqrtPrice:   currentSqrtPrice,
		NewSqrtPrice:       sqrtPrice,
		PriceImpactPercent: priceImpact,
	}, nil
}

// priceImpactPercent computes |(new² - current²) / current²| × 100.
func priceImpactPercent(currentSqrtPrice, newSqrtPrice decimal.Decimal) decimal.Decimal {
	if currentSqrtPrice.IsZero() {
		return decimal.Zero
	}
	currentSq := currentSqrtPrice.Mul(currentSqrtPrice)
	newSq := newSqrtPrice.Mul(newSqrtPrice)
	diff := newSq.Sub(currentSq).Abs()
	return diff.Div(currentSq).Mul(hundred)
}

// sortedTickIndices returns the snapshot's initialized tick indices that
// lie in the swap direction from currentSqrtPrice, ordered so the walk
// proceeds monotonically: descending when selling token0 (price falls),
// ascending when selling token1 (price rises).
func sortedTickIndices(ticks map[int]types.TickData, zeroForOne bool, currentSqrtPrice decimal.Decimal) []int {
	currentTick := sqrtPriceToTick(currentSqrtPrice)

	out := make([]int, 0, len(ticks))
	for idx := range ticks {
		if zeroForOne && idx <= currentTick {
			out = append(out, idx)
		} else if !zeroForOne && idx >= currentTick {
			out = append(out, idx)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if zeroForOne {
			return out[i] > out[j]
		}
		return out[i] < out[j]
	})
	return out
}

// stepSwap advances the swap from sqrtPrice toward boundarySqrtPrice,
// consuming up to remainingIn. Returns the portion of input consumed, the
// output produced, the resulting sqrt price, and whether the boundary was
// reached (tick fully crossed).
func stepSwap(sqrtPrice, boundarySqrtPrice, liquidity, remainingIn, oneMinusFee decimal.Decimal, zeroForOne bool) (inStep, outStep, nextSqrtPrice decimal.Decimal, consumed bool) {
	netIn := remainingIn.Mul(oneMinusFee)

	maxInForBoundary := amountInForSqrtPriceDelta(liquidity, sqrtPrice, boundarySqrtPrice, zeroForOne)

	if netIn.GreaterThanOrEqual(maxInForBoundary) && maxInForBoundary.GreaterThan(decimal.Zero) {
		outStep = amountOutForSqrtPriceDelta(liquidity, sqrtPrice, boundarySqrtPrice, zeroForOne)
		inStep = maxInForBoundary.Div(oneMinusFee)
		return inStep, outStep, boundarySqrtPrice, true
	}

	nextSqrtPrice = nextSqrtPriceFromInput(sqrtPrice, liquidity, netIn, zeroForOne)
	outStep = amountOutForSqrtPriceDelta(liquidity, sqrtPrice, nextSqrtPrice, zeroForOne)
	return remainingIn, outStep, nextSqrtPrice, false
}

// stepSwapUnbounded consumes all of remainingIn against the current
// liquidity with no tick boundary limit (used past the last initialized
// tick, approximating an infinite-liquidity tail rather than failing the
// quote outright when the snapshot's tick map is sparse).
func stepSwapUnbounded(sqrtPrice, liquidity, remainingIn, oneMinusFee decimal.Decimal, zeroForOne bool) (inStep, outStep, nextSqrtPrice decimal.Decimal, consumed bool) {
	netIn := remainingIn.Mul(oneMinusFee)
	nextSqrtPrice = nextSqrtPriceFromInput(sqrtPrice, liquidity, netIn, zeroForOne)
	outStep = amountOutForSqrtPriceDelta(liquidity, sqrtPrice, nextSqrtPrice, zeroForOne)
	return remainingIn, outStep, nextSqrtPrice, false
}

// nextSqrtPriceFromInput applies the constant-liquidity swap formula to
// find the resulting sqrt price after adding netIn of the input token.
//
// zeroForOne (selling token0): 1/sqrtP' = 1/sqrtP + netIn/L  =>  sqrtP' = L*sqrtP / (L + netIn*sqrtP)
// oneForZero (selling token1): sqrtP' = sqrtP + netIn/L
func nextSqrtPriceFromInput(sqrtPrice, liquidity, netIn decimal.Decimal, zeroForOne bool) decimal.Decimal {
	if zeroForOne {
		denom := liquidity.Add(netIn.Mul(sqrtPrice))
		if denom.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero
		}
		return liquidity.Mul(sqrtPrice).Div(denom)
	}
	return sqrtPrice.Add(netIn.Div(liquidity))
}

// amountInForSqrtPriceDelta returns the (fee-free) input required to move
// from sqrtPrice to boundarySqrtPrice at the given liquidity.
func amountInForSqrtPriceDelta(liquidity, sqrtPrice, boundarySqrtPrice decimal.Decimal, zeroForOne bool) decimal.Decimal {
	if zeroForOne {
		if boundarySqrtPrice.LessThanOrEqual(decimal.Zero) || sqrtPrice.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero
		}
		// L * (1/sqrtP' - 1/sqrtP)
		invBoundary := decimal.NewFromInt(1).Div(boundarySqrtPrice)
		invCurrent := decimal.NewFromInt(1).Div(sqrtPrice)
		return liquidity.Mul(invBoundary.Sub(invCurrent)).Abs()
	}
	return liquidity.Mul(boundarySqrtPrice.Sub(sqrtPrice)).Abs()
}

// amountOutForSqrtPriceDelta returns the output produced moving from
// sqrtPrice to newSqrtPrice at the given liquidity.
func amountOutForSqrtPriceDelta(liquidity, sqrtPrice, newSqrtPrice decimal.Decimal, zeroForOne bool) decimal.Decimal {
	if zeroForOne {
		// output is token1: L * (sqrtP - sqrtP')
		return liquidity.Mul(sqrtPrice.Sub(newSqrtPrice)).Abs()
	}
	// output is token0: L * (1/sqrtP - 1/sqrtP')
	if sqrtPrice.LessThanOrEqual(decimal.Zero) || newSqrtPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	invCurrent := decimal.NewFromInt(1).Div(sqrtPrice)
	invNew := decimal.NewFromInt(1).Div(newSqrtPrice)
	return liquidity.Mul(invCurrent.Sub(invNew)).Abs()
}

// tickBase is the per-tick price ratio, 1.0001, matching the standard
// concentrated-liquidity tick spacing convention.
var tickBase = decimal.NewFromFloat(1.0001)

// tickToSqrtPrice approximates sqrt(1.0001^tick) via repeated squaring
// (exponentiation by squaring), avoiding floating point.
func tickToSqrtPrice(tick int) decimal.Decimal {
	price := decimal.NewFromInt(1)
	base := tickBase
	exp := tick
	neg := exp < 0
	if neg {
		exp = -exp
	}
	for exp > 0 {
		if exp&1 == 1 {
			price = price.Mul(base)
		}
		base = base.Mul(base)
		exp >>= 1
	}
	if neg {
		price = decimal.NewFromInt(1).Div(price)
	}
	return sqrtDecimal(price)
}

// sqrtPriceToTick is the inverse of tickToSqrtPrice via bisection; exact
// tick identity does not matter here, only that it orders ticks correctly
// relative to the current price.
func sqrtPriceToTick(sqrtPrice decimal.Decimal) int {
	lo, hi := -887272, 887272
	for lo < hi {
		mid := (lo + hi) / 2
		if tickToSqrtPrice(mid).LessThan(sqrtPrice) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// sqrtDecimal computes a square root via Newton's method; decimal.Decimal
// has no built-in Sqrt. Each quotient is rounded to decimal.Div's default
// 16 decimal places, so the result is accurate to about 16 places; the loop
// stops when two iterates differ by less than 1e-18 or after 64 steps.
func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	x := d
	two := decimal.NewFromInt(2)
	for i := 0; i < 64; i++ {
		next := x.Add(d.Div(x)).Div(two)
		if next.Sub(x).Abs().LessThan(decimal.New(1, -18)) {
			return next
		}
		x = next
	}
	return x
}

package quote

import (
	"testing"

	"github.com/shopspring/decimal"

	"galaswap-agent/pkg/types"
)

var (
	tokenIn  = types.WellKnownTokenKey("IN")
	tokenOut = types.WellKnownTokenKey("OUT")
)

func flatSnapshot(liquidity string) *types.PoolSnapshot {
	return &types.PoolSnapshot{
		Token0:    tokenIn,
		Token1:    tokenOut,
		Fee:       types.FeeTierMedium,
		SqrtPrice: decimal.NewFromInt(1),
		Liquidity: decimal.RequireFromString(liquidity),
		Ticks:     map[int]types.TickData{},
	}
}

func TestSimulateExactInput_Deterministic(t *testing.T) {
	t.Parallel()

	snap := flatSnapshot("1000000")
	amountIn := decimal.NewFromInt(1000)

	first, err := SimulateExactInput(snap, tokenIn, amountIn)
	if err != nil {
		t.Fatalf("first simulation: %v", err)
	}
	second, err := SimulateExactInput(snap, tokenIn, amountIn)
	if err != nil {
		t.Fatalf("second simulation: %v", err)
	}

	if !first.AmountOut.Equal(second.AmountOut) {
		t.Errorf("AmountOut differs across runs: %s vs %s", first.AmountOut, second.AmountOut)
	}
	if !first.NewSqrtPrice.Equal(second.NewSqrtPrice) {
		t.Errorf("NewSqrtPrice differs across runs: %s vs %s", first.NewSqrtPrice, second.NewSqrtPrice)
	}
}

func TestSimulateExactInput_RejectsUnknownToken(t *testing.T) {
	t.Parallel()

	snap := flatSnapshot("1000000")
	other := types.WellKnownTokenKey("OTHER")

	if _, err := SimulateExactInput(snap, other, decimal.NewFromInt(100)); err == nil {
		t.Fatal("expected an error for a token not part of the pool")
	}
}

func TestSimulateExactInput_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	snap := flatSnapshot("1000000")

	if _, err := SimulateExactInput(snap, tokenIn, decimal.Zero); err == nil {
		t.Fatal("expected an error for a zero amountIn")
	}
	if _, err := SimulateExactInput(snap, tokenIn, decimal.NewFromInt(-5)); err == nil {
		t.Fatal("expected an error for a negative amountIn")
	}
}

func TestSimulateExactInput_ProducesPositiveOutput(t *testing.T) {
	t.Parallel()

	snap := flatSnapshot("1000000")

	result, err := SimulateExactInput(snap, tokenIn, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("SimulateExactInput: %v", err)
	}
	if !result.AmountOut.GreaterThan(decimal.Zero) {
		t.Errorf("AmountOut = %s, want > 0", result.AmountOut)
	}
	if !result.AmountIn.Equal(decimal.NewFromInt(100)) {
		t.Errorf("AmountIn = %s, want 100", result.AmountIn)
	}
}

func TestSimulateExactInput_InsufficientLiquidityErrors(t *testing.T) {
	t.Parallel()

	snap := flatSnapshot("0")

	if _, err := SimulateExactInput(snap, tokenIn, decimal.NewFromInt(100)); err == nil {
		t.Fatal("expected an error when the pool has no liquidity at all")
	}
}

func TestTickToSqrtPrice_RoundTripsThroughBisection(t *testing.T) {
	t.Parallel()

	for _, tick := range []int{0, 100, -100, 5000, -5000} {
		sqrtPrice := tickToSqrtPrice(tick)
		recovered := sqrtPriceToTick(sqrtPrice)
		if recovered < tick-1 || recovered > tick+1 {
			t.Errorf("tick %d round-tripped to %d (outside +/-1 tolerance)", tick, recovered)
		}
	}
}

func TestSqrtDecimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input decimal.Decimal
		want  decimal.Decimal
	}{
		{decimal.NewFromInt(4), decimal.NewFromInt(2)},
		{decimal.NewFromInt(9), decimal.NewFromInt(3)},
		{decimal.Zero, decimal.Zero},
	}

	for _, tt := range tests {
		got := sqrtDecimal(tt.input)
		diff := got.Sub(tt.want).Abs()
		if diff.GreaterThan(decimal.New(1, -9)) {
			t.Errorf("sqrtDecimal(%s) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

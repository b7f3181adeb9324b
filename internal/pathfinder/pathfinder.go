// Package pathfinder implements the circular path finder (C4) and the
// profit calculator (C5). They share a package because C5 always operates
// on C4's output and both are pure, CPU-only, non-suspending computations
// over a snapshot already held in memory, per spec.md §5.
package pathfinder

import (
	"sort"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/quote"
	"galaswap-agent/pkg/types"
)

// adjacency maps a token to every (neighbor, pool) edge reachable from it.
type adjacency map[string][]edge

type edge struct {
	neighbor types.TokenKey
	pool     *types.PoolSnapshot
}

// buildAdjacency constructs an undirected adjacency map from pools whose
// liquidity exceeds minLiquidity. Input order is preserved within each
// token's edge list so traversal order — and hence output order — is
// deterministic.
func buildAdjacency(pools []*types.PoolSnapshot, minLiquidity decimal.Decimal) adjacency {
	adj := make(adjacency)
	for _, p := range pools {
		if p.Liquidity.LessThanOrEqual(minLiquidity) {
			continue
		}
		k0 := p.Token0.String()
		k1 := p.Token1.String()
		adj[k0] = append(adj[k0], edge{neighbor: p.Token1, pool: p})
		adj[k1] = append(adj[k1], edge{neighbor: p.Token0, pool: p})
	}
	return adj
}

// FindCycles enumerates every simple cycle of length 2..maxHops that
// begins and ends at base, over pools whose liquidity exceeds minLiquidity.
// Ordering is deterministic given the same pools input order.
func FindCycles(base types.TokenKey, maxHops int, pools []*types.PoolSnapshot, minLiquidity decimal.Decimal) []types.CircularPath {
	if maxHops < 2 {
		maxHops = 2
	}
	if maxHops > 4 {
		maxHops = 4
	}

	adj := buildAdjacency(pools, minLiquidity)
	baseKey := base.String()

	var results []types.CircularPath

	var walk func(current types.TokenKey, visited map[string]bool, tokenPath []types.TokenKey, poolPath []*types.PoolSnapshot, usedPools map[*types.PoolSnapshot]bool)
	walk = func(current types.TokenKey, visited map[string]bool, tokenPath []types.TokenKey, poolPath []*types.PoolSnapshot, usedPools map[*types.PoolSnapshot]bool) {
		for _, e := range adj[current.String()] {
			if usedPools[e.pool] {
				continue
			}

			if e.neighbor.Equal(base) {
				if len(poolPath) >= 1 {
					newTokens := append(append([]types.TokenKey{}, tokenPath...), base)
					newPools := append(append([]*types.PoolSnapshot{}, poolPath...), e.pool)
					results = append(results, types.CircularPath{Tokens: newTokens, Pools: newPools})
				}
				continue
			}

			if len(tokenPath) >= maxHops {
				continue
			}
			if visited[e.neighbor.String()] {
				continue
			}

			visited[e.neighbor.String()] = true
			usedPools[e.pool] = true
			walk(e.neighbor, visited, append(tokenPath, e.neighbor), append(poolPath, e.pool), usedPools)
			delete(visited, e.neighbor.String())
			delete(usedPools, e.pool)
		}
	}

	visited := map[string]bool{baseKey: true}
	usedPools := map[*types.PoolSnapshot]bool{}
	walk(base, visited, []types.TokenKey{base}, nil, usedPools)

	// keep only cycles whose hop count fits the requested bound; the walk
	// above already enforces it, this is a defensive filter for 2-cycles
	// (which bypass the maxHops check in the base-return branch).
	var filtered []types.CircularPath
	for _, p := range results {
		if p.HopCount() <= maxHops {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// approximateFeeHaircut is the fixed multiplicative haircut applied to
// gross profit in lieu of a correct gas-to-preferred-token fee conversion.
// Documented as an approximation — see spec.md §9.
var approximateFeeHaircut = decimal.NewFromFloat(0.98)

// Opportunity pairs a CircularPath with its simulated profitability, prior
// to conversion into types.ArbitrageOpportunity (which additionally stamps
// DetectedAt).
type Opportunity struct {
	Path              types.CircularPath
	InputAmount       decimal.Decimal
	ExpectedOut       decimal.Decimal
	GrossProfit       decimal.Decimal
	FeeAdjustedProfit decimal.Decimal
	ProfitPct         decimal.Decimal
	PriceImpacts      []decimal.Decimal
}

// SimulatePath chains the offline quote engine across every hop of path,
// feeding each hop's output into the next hop's input. Returns an error if
// any hop fails to quote (insufficient liquidity, token mismatch).
func SimulatePath(path types.CircularPath, inputAmount decimal.Decimal) (*Opportunity, error) {
	current := inputAmount
	impacts := make([]decimal.Decimal, 0, len(path.Pools))

	for i, pool := range path.Pools {
		tokenIn := path.Tokens[i]
		result, err := quote.SimulateExactInput(pool, tokenIn, current)
		if err != nil {
			return nil, err
		}
		current = result.AmountOut
		impacts = append(impacts, result.PriceImpactPercent)
	}

	grossProfit := current.Sub(inputAmount)
	feeAdjusted := grossProfit
	if grossProfit.GreaterThan(decimal.Zero) {
		feeAdjusted = grossProfit.Mul(approximateFeeHaircut)
	}

	profitPct := decimal.Zero
	if inputAmount.GreaterThan(decimal.Zero) {
		profitPct = feeAdjusted.Div(inputAmount).Mul(decimal.NewFromInt(100))
	}

	return &Opportunity{
		Path:              path,
		InputAmount:       inputAmount,
		ExpectedOut:       current,
		GrossProfit:       grossProfit,
		FeeAdjustedProfit: feeAdjusted,
		ProfitPct:         profitPct,
		PriceImpacts:      impacts,
	}, nil
}

// FilterAndRank drops opportunities with non-positive net profit or profit
// percent below minProfitPct, then sorts by descending profit percent,
// breaking ties by fewer hops and then by detection order (input order,
// since opportunities here carry no independent timestamp yet).
func FilterAndRank(opportunities []*Opportunity, minProfitPct decimal.Decimal) []*Opportunity {
	var kept []*Opportunity
	for _, o := range opportunities {
		if o.FeeAdjustedProfit.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if o.ProfitPct.LessThan(minProfitPct) {
			continue
		}
		kept = append(kept, o)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].ProfitPct.Equal(kept[j].ProfitPct) {
			return kept[i].ProfitPct.GreaterThan(kept[j].ProfitPct)
		}
		return kept[i].Path.HopCount() < kept[j].Path.HopCount()
	})

	return kept
}

// Package registry implements the static token/pool catalog (C1): the
// agent's starting knowledge of what exists, loaded once at startup from
// CSV files with a built-in fallback when the files are absent.
package registry

import (
	"encoding/csv"
	"io"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"galaswap-agent/internal/errs"
	"galaswap-agent/pkg/types"
)

// defaultTokens is the built-in fallback used when tokens.csv is missing
// or unreadable.
var defaultTokens = []types.TokenInfo{
	{Symbol: "GALA", Key: types.WellKnownTokenKey("GALA"), Decimals: 8, Description: "Gala"},
	{Symbol: "GUSDC", Key: types.WellKnownTokenKey("GUSDC"), Decimals: 6, Description: "Wrapped USDC"},
	{Symbol: "GWETH", Key: types.WellKnownTokenKey("GWETH"), Decimals: 18, Description: "Wrapped ETH"},
	{Symbol: "GWBTC", Key: types.WellKnownTokenKey("GWBTC"), Decimals: 8, Description: "Wrapped BTC"},
	{Symbol: "SILK", Key: types.WellKnownTokenKey("SILK"), Decimals: 8, Description: "Silk"},
}

// Registry holds the static catalog of known tokens and candidate pools.
// Safe for concurrent reads; it is never mutated after Load.
type Registry struct {
	mu sync.RWMutex

	tokensByKey    map[string]types.TokenInfo
	tokensBySymbol map[string]types.TokenInfo
	pools          []types.PoolRegistration
}

// Load reads tokensPath and poolsPath. A missing or unreadable token file
// falls back to the built-in default list; a missing pool file is
// non-fatal and leaves the registry's pool set empty. Fails with
// *errs.Error (KindConfig) only on malformed well-known lines.
func Load(tokensPath, poolsPath string) (*Registry, error) {
	r := &Registry{
		tokensByKey:    make(map[string]types.TokenInfo),
		tokensBySymbol: make(map[string]types.TokenInfo),
	}

	tokens, err := loadTokens(tokensPath)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		r.tokensByKey[t.Key.String()] = t
		r.tokensBySymbol[t.Symbol] = t
	}

	pools, err := loadPools(poolsPath, r)
	if err != nil {
		return nil, err
	}
	r.pools = pools

	return r, nil
}

func loadTokens(path string) ([]types.TokenInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return defaultTokens, nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// header row
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return defaultTokens, nil
		}
		return defaultTokens, nil
	}

	var out []types.TokenInfo
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Config(err, "tokens.csv: read row")
		}
		if len(record) < 4 {
			return nil, errs.Config(nil, "tokens.csv: malformed row, expected at least 4 fields, got %d", len(record))
		}

		symbol := record[0]
		key, err := types.ParseTokenKey(record[1])
		if err != nil {
			key = types.WellKnownTokenKey(symbol)
		}
		decimals := 8
		if len(record) > 2 {
			if d, err := parseInt(record[2]); err == nil {
				decimals = d
			}
		}
		description := ""
		if len(record) > 3 {
			description = record[3]
		}

		out = append(out, types.TokenInfo{
			Symbol:      symbol,
			Key:         key,
			Decimals:    decimals,
			Description: description,
		})
	}

	if len(out) == 0 {
		return defaultTokens, nil
	}
	return out, nil
}

func loadPools(path string, r *Registry) ([]types.PoolRegistration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, nil
	}

	var out []types.PoolRegistration
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Config(err, "pools.csv: read row")
		}
		if len(record) < 4 {
			return nil, errs.Config(nil, "pools.csv: malformed row, expected at least 4 fields, got %d", len(record))
		}

		t0 := r.resolveSymbol(record[0])
		t1 := r.resolveSymbol(record[1])

		feeInt, err := parseInt(record[2])
		if err != nil {
			return nil, errs.Config(err, "pools.csv: fee")
		}
		fee := types.FeeTier(feeInt)
		if !types.IsValidFeeTier(fee) {
			return nil, errs.Config(nil, "pools.csv: fee %d not in {500,3000,10000}", feeInt)
		}

		liquidity, err := decimal.NewFromString(record[3])
		if err != nil {
			liquidity = decimal.Zero
		}

		out = append(out, types.PoolRegistration{
			Token0:            t0,
			Token1:            t1,
			Fee:               fee,
			ObservedLiquidity: liquidity,
		})
	}

	return out, nil
}

// resolveSymbol expands a CSV symbol into a full token key using any
// already-loaded token info, falling back to the well-known template.
func (r *Registry) resolveSymbol(symbol string) types.TokenKey {
	if t, ok := r.tokensBySymbol[symbol]; ok {
		return t.Key
	}
	return types.WellKnownTokenKey(symbol)
}

func parseInt(s string) (int, error) {
	n := 0
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, errs.Config(nil, "not an integer: %q", s)
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

// TokenByKey looks up a token by its canonical key.
func (r *Registry) TokenByKey(key types.TokenKey) (types.TokenInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokensByKey[key.String()]
	return t, ok
}

// TokenBySymbol looks up a token by its display symbol.
func (r *Registry) TokenBySymbol(symbol string) (types.TokenInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokensBySymbol[symbol]
	return t, ok
}

// AllPools returns every registered candidate pool.
func (r *Registry) AllPools() []types.PoolRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.PoolRegistration, len(r.pools))
	copy(out, r.pools)
	return out
}

// PoolsForToken returns every registered pool that includes key.
func (r *Registry) PoolsForToken(key types.TokenKey) []types.PoolRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.PoolRegistration
	for _, p := range r.pools {
		if p.Token0.Equal(key) || p.Token1.Equal(key) {
			out = append(out, p)
		}
	}
	return out
}

// PoolsAboveLiquidity returns every registered pool whose observed
// liquidity exceeds threshold.
func (r *Registry) PoolsAboveLiquidity(threshold decimal.Decimal) []types.PoolRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.PoolRegistration
	for _, p := range r.pools {
		if p.ObservedLiquidity.GreaterThan(threshold) {
			out = append(out, p)
		}
	}
	return out
}

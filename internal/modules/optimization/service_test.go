package optimization

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/foliolab/folio/internal/marketdata"
	testingpkg "github.com/foliolab/folio/internal/testing"
)

// geometricSeries builds a deterministic daily price walk with the given
// drift and volatility (daily fractions).
func geometricSeries(seed int64, days int, drift, vol float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	prices := make([]float64, days)
	price := 100.0
	for i := 0; i < days; i++ {
		prices[i] = price
		price *= 1 + drift + vol*rng.NormFloat64()
	}
	return prices
}

func newTestService(t *testing.T, provider marketdata.PriceProvider) *Service {
	t.Helper()
	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	svc := NewService(builder, provider, nil, zerolog.Nop())
	svc.rng = rand.New(rand.NewSource(1))
	return svc
}

func fixtureProvider(t *testing.T) *testingpkg.StaticProvider {
	t.Helper()
	start := time.Now().AddDate(-1, 0, 0)
	provider := testingpkg.NewStaticProvider()
	provider.AddSeries("AAA", start, geometricSeries(11, 252, 0.0006, 0.008))
	provider.AddSeries("BBB", start, geometricSeries(22, 252, 0.0004, 0.007))
	provider.AddSeries("CCC", start, geometricSeries(33, 252, 0.0005, 0.009))
	return provider
}

func TestOptimize_SingleSymbol(t *testing.T) {
	svc := newTestService(t, fixtureProvider(t))

	for _, profile := range []RiskProfile{ProfileConservative, ProfileModerate, ProfileAggressive, ProfileUltraAggressive} {
		result, err := svc.Optimize(OptimizeRequest{
			Symbols: []string{"AAA"},
			Profile: profile,
			Period:  "1y",
		})
		require.NoError(t, err)
		require.Len(t, result.Weights, 1)
		assert.InDelta(t, 1.0, result.Weights["AAA"], 1e-9, "single symbol gets full weight under %s", profile)
		assert.True(t, result.Converged)
	}
}

func TestOptimize_WeightsSumToOne(t *testing.T) {
	svc := newTestService(t, fixtureProvider(t))

	result, err := svc.Optimize(OptimizeRequest{
		Symbols: []string{"AAA", "BBB", "CCC"},
		Period:  "1y",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Weights)

	sum := 0.0
	for _, w := range result.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestOptimize_BoxConstraints(t *testing.T) {
	svc := newTestService(t, fixtureProvider(t))
	minWeight := 0.02

	result, err := svc.Optimize(OptimizeRequest{
		Symbols:   []string{"AAA", "BBB", "CCC"},
		Profile:   ProfileModerate,
		MinWeight: minWeight,
		Period:    "1y",
	})
	require.NoError(t, err)

	limits := DefaultRiskLimits()[ProfileModerate]
	for symbol, w := range result.Weights {
		assert.GreaterOrEqual(t, w, minWeight-1e-3, "weight of %s below floor", symbol)
		assert.LessOrEqual(t, w, limits.MaxSingle+1e-2, "weight of %s above ceiling", symbol)
	}
}

func TestOptimize_FloorKeepsDominatedAsset(t *testing.T) {
	start := time.Now().AddDate(-1, 0, 0)
	provider := testingpkg.NewStaticProvider()
	provider.AddSeries("GOODA", start, geometricSeries(41, 252, 0.0008, 0.008))
	provider.AddSeries("GOODB", start, geometricSeries(52, 252, 0.0007, 0.007))
	provider.AddSeries("BADDD", start, geometricSeries(63, 252, -0.0005, 0.012))

	svc := newTestService(t, provider)
	result, err := svc.Optimize(OptimizeRequest{
		Symbols:   []string{"GOODA", "GOODB", "BADDD"},
		Profile:   ProfileUltraAggressive,
		MinWeight: 0.05,
		Period:    "1y",
	})
	require.NoError(t, err)
	assert.True(t, result.Converged)

	// The floor is a solver bound, not a post-filter: even a losing asset
	// stays invested at the floor instead of being driven to zero and
	// silently dropped
	require.Contains(t, result.Weights, "BADDD")
	for symbol, w := range result.Weights {
		assert.GreaterOrEqual(t, w, 0.05-1e-3, "weight of %s", symbol)
	}
}

func TestOptimize_VolatilityConstraint(t *testing.T) {
	svc := newTestService(t, fixtureProvider(t))

	result, err := svc.Optimize(OptimizeRequest{
		Symbols: []string{"AAA", "BBB", "CCC"},
		Profile: ProfileModerate,
		Period:  "1y",
	})
	require.NoError(t, err)

	limits := DefaultRiskLimits()[ProfileModerate]
	assert.LessOrEqual(t, result.Volatility, limits.MaxVolatility*100+2.0,
		"portfolio volatility should respect the profile ceiling within solver tolerance")
}

func TestOptimize_EqualWeightFallbackOnDegenerateData(t *testing.T) {
	start := time.Now().AddDate(-1, 0, 0)
	provider := testingpkg.NewStaticProvider()
	// Constant prices: zero returns, zero covariance everywhere
	flat := make([]float64, 200)
	for i := range flat {
		flat[i] = 100
	}
	provider.AddSeries("AAA", start, flat)
	provider.AddSeries("BBB", start, flat)
	provider.AddSeries("CCC", start, flat)

	svc := newTestService(t, provider)
	result, err := svc.Optimize(OptimizeRequest{
		Symbols: []string{"AAA", "BBB", "CCC"},
		Period:  "1y",
	})
	require.NoError(t, err)

	assert.False(t, result.Converged)
	for symbol, w := range result.Weights {
		assert.InDelta(t, 1.0/3.0, w, 1e-3, "fallback weight for %s", symbol)
	}
}

func TestOptimize_InsufficientData(t *testing.T) {
	svc := newTestService(t, testingpkg.NewStaticProvider())

	_, err := svc.Optimize(OptimizeRequest{Symbols: []string{"NOPE", "NADA"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, marketdata.ErrInsufficientData))
}

func TestOptimize_ExcludesUnfetchableSymbols(t *testing.T) {
	provider := fixtureProvider(t)
	provider.FailSymbols["BAD"] = true
	svc := newTestService(t, provider)

	result, err := svc.Optimize(OptimizeRequest{
		Symbols: []string{"AAA", "BBB", "BAD"},
		Period:  "1y",
	})
	require.NoError(t, err)
	assert.NotContains(t, result.Weights, "BAD")
}

func TestOptimize_AllocationsSized(t *testing.T) {
	svc := newTestService(t, fixtureProvider(t))

	result, err := svc.Optimize(OptimizeRequest{
		Symbols:          []string{"AAA", "BBB", "CCC"},
		InvestmentAmount: 50000,
		Period:           "1y",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Allocations)

	for _, alloc := range result.Allocations {
		require.Greater(t, alloc.Price, 0.0)
		// Integer shares via floor division; amount and price are rounded
		// to cents, so allow that much slack
		assert.LessOrEqual(t, float64(alloc.Shares)*alloc.Price, alloc.Amount+2.0)
	}

	// Sorted by weight descending
	for i := 1; i < len(result.Allocations); i++ {
		assert.GreaterOrEqual(t, result.Allocations[i-1].Weight, result.Allocations[i].Weight)
	}
}

func TestEfficientFrontier(t *testing.T) {
	svc := newTestService(t, fixtureProvider(t))

	frontier, err := svc.EfficientFrontier([]string{"AAA", "BBB", "CCC"}, 30, "1y")
	require.NoError(t, err)
	require.NotEmpty(t, frontier)
	assert.LessOrEqual(t, len(frontier), 30)

	for i := 1; i < len(frontier); i++ {
		assert.GreaterOrEqual(t, frontier[i].Volatility, frontier[i-1].Volatility,
			"frontier must be sorted by volatility")
		assert.Greater(t, frontier[i].Return, frontier[i-1].Return,
			"return must be strictly increasing along the frontier")
	}
}

func TestEfficientFrontier_NoData(t *testing.T) {
	svc := newTestService(t, testingpkg.NewStaticProvider())

	frontier, err := svc.EfficientFrontier([]string{"NOPE"}, 20, "1y")
	require.NoError(t, err)
	assert.Empty(t, frontier)
}

func TestRebalance_NoOpWhenAtTarget(t *testing.T) {
	provider := fixtureProvider(t)
	svc := newTestService(t, provider)

	quoteA, err := provider.Quote("AAA")
	require.NoError(t, err)
	quoteB, err := provider.Quote("BBB")
	require.NoError(t, err)

	// Construct holdings whose values are exactly 50/50
	sharesA := 1000.0
	valueA := sharesA * quoteA.Price
	sharesB := valueA / quoteB.Price

	trades := svc.Rebalance(
		map[string]float64{"AAA": sharesA, "BBB": sharesB},
		map[string]float64{"AAA": 0.5, "BBB": 0.5},
		0,
	)
	assert.Empty(t, trades)
}

func TestRebalance_GeneratesBuysAndSells(t *testing.T) {
	provider := fixtureProvider(t)
	svc := newTestService(t, provider)

	quoteA, err := provider.Quote("AAA")
	require.NoError(t, err)

	// All value in AAA, target is an even split with BBB
	trades := svc.Rebalance(
		map[string]float64{"AAA": 100},
		map[string]float64{"AAA": 0.5, "BBB": 0.5},
		0,
	)
	require.Len(t, trades, 2)

	byAction := map[string]Trade{}
	for _, trade := range trades {
		byAction[trade.Action] = trade
	}
	require.Contains(t, byAction, "SELL")
	require.Contains(t, byAction, "BUY")
	assert.Equal(t, "AAA", byAction["SELL"].Symbol)
	assert.Equal(t, "BBB", byAction["BUY"].Symbol)
	assert.InDelta(t, 100*quoteA.Price/2, byAction["SELL"].Amount, 1.0)
}

func TestRebalance_SuppressesSmallTrades(t *testing.T) {
	provider := fixtureProvider(t)
	svc := newTestService(t, provider)

	quoteA, err := provider.Quote("AAA")
	require.NoError(t, err)
	quoteB, err := provider.Quote("BBB")
	require.NoError(t, err)

	// Holdings already at target; new cash splits into two legs each
	// below the trade threshold
	sharesA := 1000.0
	valueA := sharesA * quoteA.Price

	trades := svc.Rebalance(
		map[string]float64{"AAA": sharesA, "BBB": valueA / quoteB.Price},
		map[string]float64{"AAA": 0.5, "BBB": 0.5},
		MinTradeAmount,
	)
	assert.Empty(t, trades)
}

func TestParseRiskProfile(t *testing.T) {
	assert.Equal(t, ProfileAggressive, ParseRiskProfile("aggressive"))
	assert.Equal(t, ProfileModerate, ParseRiskProfile("unknown"))
	assert.Equal(t, ProfileModerate, ParseRiskProfile(""))
}

func TestLoadRiskLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := "conservative:\n  max_volatility: 0.08\n  max_single: 0.10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	limits, err := LoadRiskLimits(path)
	require.NoError(t, err)

	assert.Equal(t, RiskLimits{MaxVolatility: 0.08, MaxSingle: 0.10}, limits[ProfileConservative])
	// Untouched profiles keep defaults
	assert.Equal(t, DefaultRiskLimits()[ProfileModerate], limits[ProfileModerate])
}

func TestLoadRiskLimits_RejectsUnknownProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := "reckless:\n  max_volatility: 2.0\n  max_single: 1.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadRiskLimits(path)
	assert.Error(t, err)
}

func TestSolveMaxSharpe_PrefersHigherSharpeAsset(t *testing.T) {
	// Asset A strictly dominates: higher return, same variance
	mu := []float64{0.15, 0.05}
	sigma := newSigma([][]float64{
		{0.02, 0.005},
		{0.005, 0.02},
	})

	weights, converged := solveMaxSharpe(mu, sigma, RiskFreeRate, 0.50, 0.0, 1.0, zerolog.Nop())
	require.True(t, converged)
	assert.Greater(t, weights[0], weights[1])
}

func TestSolveMaxSharpe_IterationCapTerminates(t *testing.T) {
	mu := []float64{0.10, 0.08, 0.12, 0.06}
	sigma := newSigma([][]float64{
		{0.04, 0.01, 0.005, 0.002},
		{0.01, 0.03, 0.008, 0.001},
		{0.005, 0.008, 0.05, 0.003},
		{0.002, 0.001, 0.003, 0.02},
	})

	done := make(chan struct{})
	go func() {
		solveMaxSharpe(mu, sigma, RiskFreeRate, 0.35, 0.02, 0.35, zerolog.Nop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("solver did not terminate within the iteration cap")
	}
}

func newSigma(rows [][]float64) *mat.Dense {
	n := len(rows)
	m := mat.NewDense(n, n, nil)
	for i := range rows {
		for j := range rows[i] {
			m.Set(i, j, rows[i][j])
		}
	}
	return m
}

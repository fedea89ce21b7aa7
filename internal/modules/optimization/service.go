package optimization

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/foliolab/folio/internal/marketdata"
	"github.com/foliolab/folio/pkg/formulas"
)

// weightFloorTolerance bounds how far below the weight floor a position may
// sit before it is treated as dust and dropped.
const weightFloorTolerance = 1e-3

// Service performs portfolio optimization against an injected price
// provider. Every call is stateless; all matrices are allocated per
// invocation.
type Service struct {
	matrix   *marketdata.MatrixBuilder
	provider marketdata.PriceProvider
	limits   map[RiskProfile]RiskLimits
	rng      *rand.Rand
	log      zerolog.Logger
}

// NewService creates a new optimizer service. A nil limits map selects the
// built-in risk-profile table.
func NewService(
	matrix *marketdata.MatrixBuilder,
	provider marketdata.PriceProvider,
	limits map[RiskProfile]RiskLimits,
	log zerolog.Logger,
) *Service {
	if limits == nil {
		limits = DefaultRiskLimits()
	}
	return &Service{
		matrix:   matrix,
		provider: provider,
		limits:   limits,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      log.With().Str("service", "optimization").Logger(),
	}
}

// Optimize computes the max-Sharpe weight vector for the requested symbols
// under the risk profile's volatility and position-size constraints, then
// sizes dollar allocations from the investment amount.
//
// Symbols without usable price history are excluded from the optimization;
// if none remain the call fails with marketdata.ErrInsufficientData. Solver
// non-convergence is not an error: the equal-weight vector is substituted
// and Converged is reported false.
func (s *Service) Optimize(req OptimizeRequest) (*OptimizationResult, error) {
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	applyOptimizeDefaults(&req)
	if req.InvestmentAmount <= 0 {
		return nil, fmt.Errorf("investment amount must be positive")
	}

	limits, ok := s.limits[req.Profile]
	if !ok {
		limits = s.limits[ProfileModerate]
	}

	returns, err := s.matrix.ReturnsMatrix(req.Symbols, req.Period)
	if err != nil {
		return nil, err
	}
	if returns.Empty() {
		return nil, fmt.Errorf("optimize %v over %s: %w", req.Symbols, req.Period, marketdata.ErrInsufficientData)
	}

	symbols := returns.Symbols
	n := len(symbols)

	mu, sigma := annualizedMoments(returns)

	var weights []float64
	converged := true
	if n == 1 {
		// Nothing to optimize with one asset
		weights = []float64{1.0}
	} else {
		weights, converged = solveMaxSharpe(mu, sigma, RiskFreeRate, limits.MaxVolatility, req.MinWeight, limits.MaxSingle, s.log)
	}

	// Renormalize so weights sum exactly to 1 (floating-point safety)
	normalize(weights)

	// A converged solve respects the floor through its box bounds; the
	// filter only drops genuine dust, such as an equal-weight fallback
	// whose 1/n lands below the floor. The tolerance absorbs the small
	// dip renormalization can introduce. If everything falls below the
	// floor, keep the full vector.
	if n > 1 {
		filtered := append([]float64(nil), weights...)
		sum := 0.0
		for i, w := range filtered {
			if w < req.MinWeight-weightFloorTolerance {
				filtered[i] = 0
			}
			sum += filtered[i]
		}
		if sum > 0 {
			weights = filtered
			normalize(weights)
		}
	}

	portReturn, portVol := portfolioMoments(weights, mu, sigma)
	sharpe := 0.0
	if portVol > 0 {
		sharpe = (portReturn - RiskFreeRate) / portVol
	}

	weightsOut := make(map[string]float64)
	var allocations []Allocation
	for i, symbol := range symbols {
		w := weights[i]
		if w == 0 {
			continue
		}
		weightsOut[symbol] = round4(w)

		name, price := s.quoteFor(symbol)
		amount := req.InvestmentAmount * w
		shares := 0
		if price > 0 {
			shares = int(amount / price)
		}

		allocations = append(allocations, Allocation{
			Symbol: symbol,
			Name:   name,
			Weight: round2(w * 100),
			Amount: round2(amount),
			Shares: shares,
			Price:  round2(price),
		})
	}

	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].Weight > allocations[j].Weight
	})

	s.log.Info().
		Int("symbols", n).
		Str("profile", string(req.Profile)).
		Bool("converged", converged).
		Float64("sharpe", sharpe).
		Msg("Optimization completed")

	return &OptimizationResult{
		Weights:        weightsOut,
		ExpectedReturn: round2(portReturn * 100),
		Volatility:     round2(portVol * 100),
		SharpeRatio:    round2(sharpe),
		Converged:      converged,
		Allocations:    allocations,
	}, nil
}

// EfficientFrontier samples random portfolios and keeps the Pareto-efficient
// prefix: sorted by volatility, only points with strictly increasing return
// survive. This is a visualization aid, not an exact frontier.
func (s *Service) EfficientFrontier(symbols []string, nPortfolios int, period string) ([]FrontierPoint, error) {
	if nPortfolios <= 0 {
		nPortfolios = 50
	}
	if period == "" {
		period = "2y"
	}

	returns, err := s.matrix.ReturnsMatrix(symbols, period)
	if err != nil {
		return nil, err
	}
	if returns.Empty() {
		return []FrontierPoint{}, nil
	}

	mu, sigma := annualizedMoments(returns)
	n := len(returns.Symbols)

	samples := make([]FrontierPoint, 0, nPortfolios*10)
	for k := 0; k < nPortfolios*10; k++ {
		w := make([]float64, n)
		for i := range w {
			w[i] = s.rng.Float64()
		}
		normalize(w)

		ret, vol := portfolioMoments(w, mu, sigma)
		sharpe := 0.0
		if vol > 0 {
			sharpe = (ret - RiskFreeRate) / vol
		}

		samples = append(samples, FrontierPoint{
			Return:     round2(ret * 100),
			Volatility: round2(vol * 100),
			Sharpe:     round2(sharpe),
		})
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Volatility < samples[j].Volatility
	})

	efficient := make([]FrontierPoint, 0, nPortfolios)
	maxReturn := math.Inf(-1)
	for _, p := range samples {
		if p.Return > maxReturn {
			efficient = append(efficient, p)
			maxReturn = p.Return
		}
	}

	if len(efficient) > nPortfolios {
		efficient = efficient[:nPortfolios]
	}
	return efficient, nil
}

// Rebalance computes the BUY/SELL trades that move current holdings to the
// target weights, ignoring adjustments below MinTradeAmount. Symbols whose
// quote cannot be fetched are skipped rather than failing the batch.
func (s *Service) Rebalance(
	currentHoldings map[string]float64, // symbol -> shares
	targetWeights map[string]float64, // symbol -> fractional weight
	investmentAmount float64, // additional cash to deploy
) []Trade {
	currentValues := make(map[string]float64)
	currentTotal := 0.0
	for symbol, shares := range currentHoldings {
		_, price := s.quoteFor(symbol)
		value := shares * price
		currentValues[symbol] = value
		currentTotal += value
	}

	totalAmount := currentTotal + investmentAmount

	symbols := make([]string, 0, len(targetWeights))
	for symbol := range targetWeights {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var trades []Trade
	for _, symbol := range symbols {
		targetValue := totalAmount * targetWeights[symbol]
		diff := targetValue - currentValues[symbol]

		_, price := s.quoteFor(symbol)
		if math.Abs(diff) <= MinTradeAmount || price <= 0 {
			continue
		}

		action := "BUY"
		if diff < 0 {
			action = "SELL"
		}

		trades = append(trades, Trade{
			Symbol: symbol,
			Action: action,
			Shares: int(math.Abs(diff) / price),
			Amount: round2(math.Abs(diff)),
			Price:  round2(price),
		})
	}

	return trades
}

// quoteFor fetches a symbol's quote, degrading to a zero price on failure so
// callers can skip sizing instead of aborting.
func (s *Service) quoteFor(symbol string) (name string, price float64) {
	quote, err := s.provider.Quote(symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote unavailable")
		return symbol, 0
	}
	if quote.Name == "" {
		return symbol, quote.Price
	}
	return quote.Name, quote.Price
}

func applyOptimizeDefaults(req *OptimizeRequest) {
	if req.InvestmentAmount == 0 {
		req.InvestmentAmount = 10000
	}
	if req.Profile == "" {
		req.Profile = ProfileModerate
	}
	if req.MinWeight == 0 {
		req.MinWeight = 0.02
	}
	if req.Period == "" {
		req.Period = "2y"
	}
}

// annualizedMoments computes per-asset annualized mean returns and the
// annualized covariance matrix from a daily returns matrix.
func annualizedMoments(returns *marketdata.Matrix) ([]float64, *mat.Dense) {
	n := len(returns.Symbols)

	cols := make([][]float64, n)
	for j, symbol := range returns.Symbols {
		cols[j] = returns.Column(symbol)
	}

	mu := make([]float64, n)
	for j := range cols {
		mu[j] = formulas.Mean(cols[j]) * formulas.TradingDaysPerYear
	}

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, formulas.Covariance(cols[i], cols[j])*formulas.TradingDaysPerYear)
		}
	}

	return mu, sigma
}

// portfolioMoments returns the annualized expected return and volatility of
// a weight vector.
func portfolioMoments(weights, mu []float64, sigma *mat.Dense) (ret, vol float64) {
	n := len(weights)
	var variance float64
	for i := 0; i < n; i++ {
		ret += mu[i] * weights[i]
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * sigma.At(i, j)
		}
	}
	return ret, math.Sqrt(math.Max(variance, 0))
}

func normalize(w []float64) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range w {
		w[i] /= sum
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliolab/folio/internal/marketdata"
)

// Service runs portfolio backtests against an injected price provider.
// Every call is stateless.
type Service struct {
	matrix *marketdata.MatrixBuilder
	log    zerolog.Logger
}

// NewService creates a new backtest service.
func NewService(matrix *marketdata.MatrixBuilder, log zerolog.Logger) *Service {
	return &Service{
		matrix: matrix,
		log:    log.With().Str("service", "backtest").Logger(),
	}
}

// Run simulates the portfolio described by req and returns its equity curve
// and statistics.
//
// Portfolio and benchmark prices are aligned on a single shared date index,
// so beta and alpha are computed over identical-length return series; the
// (beta=1, alpha=0) fallback remains only for the case where no benchmark
// data exists at all. Symbols without usable history are dropped and the
// remaining weights renormalized; if none remain the run fails with
// marketdata.ErrInsufficientData.
func (s *Service) Run(req Request) (*Result, error) {
	if len(req.Weights) == 0 {
		return nil, fmt.Errorf("no weights provided")
	}
	applyRunDefaults(&req)
	if req.InitialValue <= 0 {
		return nil, fmt.Errorf("initial value must be positive")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, fmt.Errorf("end date must be after start date")
	}

	symbols := make([]string, 0, len(req.Weights))
	for symbol := range req.Weights {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	fetchSet := symbols
	if !contains(symbols, req.Benchmark) {
		fetchSet = append(append([]string(nil), symbols...), req.Benchmark)
	}

	prices, err := s.matrix.PriceMatrix(fetchSet, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	// A benchmark with zero date overlap against the portfolio empties
	// the joint join. Rebuild portfolio-only in that case; the benchmark
	// stats then take their defensive defaults.
	if prices.Rows() < 2 && len(fetchSet) > len(symbols) {
		s.log.Warn().
			Str("benchmark", req.Benchmark).
			Msg("Joint alignment with benchmark is empty, retrying portfolio-only")
		prices, err = s.matrix.PriceMatrix(symbols, req.StartDate, req.EndDate)
		if err != nil {
			return nil, err
		}
	}

	// Keep only portfolio symbols that survived alignment
	var kept []string
	var targets []float64
	for _, symbol := range symbols {
		if prices.Column(symbol) != nil {
			kept = append(kept, symbol)
			targets = append(targets, req.Weights[symbol])
		}
	}
	if len(kept) == 0 || prices.Rows() < 2 {
		return nil, fmt.Errorf("backtest %v from %s to %s: %w",
			symbols, req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"),
			marketdata.ErrInsufficientData)
	}
	if len(kept) < len(symbols) {
		s.log.Warn().
			Int("requested", len(symbols)).
			Int("usable", len(kept)).
			Msg("Dropped symbols without price history")
	}
	targets = normalizeWeights(targets)

	returns := prices.Returns()
	rows := make([][]float64, returns.Rows())
	cols := make([][]float64, len(kept))
	for j, symbol := range kept {
		cols[j] = returns.Column(symbol)
	}
	for t := range rows {
		row := make([]float64, len(kept))
		for j := range kept {
			row[j] = cols[j][t]
		}
		rows[t] = row
	}

	flags := rebalanceFlags(prices.Dates, req.Frequency)
	values := simulate(rows, targets, flags, req.InitialValue)

	// Benchmark: 100% weight rebalanced daily collapses to a scaled price path
	var benchValues []float64
	if benchCol := prices.Column(req.Benchmark); benchCol != nil && benchCol[0] != 0 {
		benchValues = make([]float64, len(benchCol))
		for i, p := range benchCol {
			benchValues[i] = req.InitialValue * p / benchCol[0]
		}
	} else {
		s.log.Warn().Str("benchmark", req.Benchmark).Msg("Benchmark history unavailable, skipping beta/alpha")
	}

	result := &Result{
		StartDate:   prices.Dates[0].Format("2006-01-02"),
		EndDate:     prices.Dates[len(prices.Dates)-1].Format("2006-01-02"),
		TradingDays: prices.Rows(),
		EquityCurve: buildEquityCurve(prices.Dates, values, benchValues),
	}
	computeStats(values, benchValues, result)

	s.log.Info().
		Int("symbols", len(kept)).
		Int("trading_days", result.TradingDays).
		Str("frequency", string(req.Frequency)).
		Float64("total_return", result.TotalReturn).
		Msg("Backtest completed")

	return result, nil
}

// CompareStrategies runs one backtest per named weight vector over the same
// window. Strategies are evaluated independently; a failure in one is
// reported as its error message and does not abort the others.
func (s *Service) CompareStrategies(strategies map[string]map[string]float64, base Request) map[string]ComparisonEntry {
	outcomes := make(map[string]ComparisonEntry, len(strategies))
	for name, weights := range strategies {
		req := base
		req.Weights = weights

		result, err := s.Run(req)
		if err != nil {
			s.log.Warn().Err(err).Str("strategy", name).Msg("Strategy backtest failed")
			outcomes[name] = ComparisonEntry{Error: err.Error()}
			continue
		}
		outcomes[name] = ComparisonEntry{Result: result}
	}
	return outcomes
}

func buildEquityCurve(dates []time.Time, values, benchValues []float64) []EquityPoint {
	curve := make([]EquityPoint, len(dates))
	for i, date := range dates {
		point := EquityPoint{
			Date:           date.Format("2006-01-02"),
			PortfolioValue: round2(values[i]),
		}
		if benchValues != nil {
			point.BenchmarkValue = round2(benchValues[i])
		}
		curve[i] = point
	}
	return curve
}

func applyRunDefaults(req *Request) {
	if req.InitialValue == 0 {
		req.InitialValue = DefaultInitialValue
	}
	if req.Benchmark == "" {
		req.Benchmark = DefaultBenchmark
	}
	if req.Frequency == "" {
		req.Frequency = FrequencyMonthly
	}
	if req.EndDate.IsZero() {
		req.EndDate = time.Now()
	}
	if req.StartDate.IsZero() {
		req.StartDate = req.EndDate.AddDate(-1, 0, 0)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

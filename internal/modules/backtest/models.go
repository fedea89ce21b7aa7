// Package backtest simulates historical portfolio value under a fixed
// target weight vector with periodic rebalancing, and derives performance
// statistics versus a benchmark.
package backtest

import "time"

// riskFreeRate is the fixed annual risk-free rate used for Sharpe, Sortino
// and alpha calculations.
const riskFreeRate = 0.05

// DefaultInitialValue is the starting portfolio value when the caller does
// not supply one.
const DefaultInitialValue = 10000.0

// DefaultBenchmark is the broad-market proxy used when no benchmark symbol
// is given.
const DefaultBenchmark = "SPY"

// Frequency identifies how often the simulation resets weights back to
// their targets.
type Frequency string

// Rebalance frequencies.
const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// ParseFrequency maps a string to a rebalance frequency, falling back to
// monthly for unknown values.
func ParseFrequency(s string) Frequency {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return Frequency(s)
	default:
		return FrequencyMonthly
	}
}

// Request carries the inputs for one backtest run.
type Request struct {
	Weights      map[string]float64 // symbol -> target weight, normalized by the engine
	StartDate    time.Time          // zero value defaults to one year ago
	EndDate      time.Time          // zero value defaults to today
	InitialValue float64            // defaults to DefaultInitialValue
	Benchmark    string             // defaults to DefaultBenchmark
	Frequency    Frequency          // defaults to monthly
}

// EquityPoint is one trading day on the equity curve.
type EquityPoint struct {
	Date           string  `json:"date"`
	PortfolioValue float64 `json:"portfolio_value"`
	BenchmarkValue float64 `json:"benchmark_value"`
}

// Result holds the simulated equity curve and its derived statistics. All
// percentage fields are percent, not fractions.
type Result struct {
	StartDate       string        `json:"start_date"`
	EndDate         string        `json:"end_date"`
	TradingDays     int           `json:"trading_days"`
	TotalReturn     float64       `json:"total_return"`
	CAGR            float64       `json:"cagr"`
	Volatility      float64       `json:"volatility"`
	SharpeRatio     float64       `json:"sharpe_ratio"`
	SortinoRatio    float64       `json:"sortino_ratio"`
	MaxDrawdown     float64       `json:"max_drawdown"`
	BenchmarkReturn float64       `json:"benchmark_return"`
	Alpha           float64       `json:"alpha"`
	Beta            float64       `json:"beta"`
	EquityCurve     []EquityPoint `json:"equity_curve"`
}

// ComparisonEntry is one strategy's outcome in a comparison run: either a
// full result or an error message, never both.
type ComparisonEntry struct {
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

package backtest

import (
	"math"

	"github.com/foliolab/folio/pkg/formulas"
)

// computeStats derives the performance statistics of a simulated value
// series versus an aligned benchmark value series. benchValues may be nil
// when no benchmark data was available; beta and alpha then keep their
// defensive defaults of (1, 0).
func computeStats(values, benchValues []float64, result *Result) {
	first, last := values[0], values[len(values)-1]
	result.TotalReturn = round2((last/first - 1) * 100)
	result.CAGR = round2(formulas.CAGRFromValues(values) * 100)

	portReturns := formulas.DailyReturns(values)
	result.Volatility = round2(formulas.AnnualizedVolatility(portReturns) * 100)
	result.SharpeRatio = round2(formulas.SharpeRatio(portReturns, riskFreeRate))
	result.SortinoRatio = round2(formulas.SortinoRatio(portReturns, riskFreeRate))
	result.MaxDrawdown = round2(formulas.MaxDrawdown(values) * 100)

	result.Beta = 1
	result.Alpha = 0
	if len(benchValues) < 2 {
		return
	}

	benchFirst, benchLast := benchValues[0], benchValues[len(benchValues)-1]
	result.BenchmarkReturn = round2((benchLast/benchFirst - 1) * 100)

	benchReturns := formulas.DailyReturns(benchValues)
	beta := formulas.Beta(portReturns, benchReturns)

	portExcess := formulas.Mean(portReturns)*formulas.TradingDaysPerYear - riskFreeRate
	benchExcess := formulas.Mean(benchReturns)*formulas.TradingDaysPerYear - riskFreeRate

	result.Beta = round2(beta)
	result.Alpha = round2((portExcess - beta*benchExcess) * 100)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

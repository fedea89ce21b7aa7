// Package formulas provides the shared statistical building blocks used by
// the optimizer and the backtest engine.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor used throughout.
const TradingDaysPerYear = 252.0

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values.
// Fewer than two samples yields 0 (the sample deviation is undefined there,
// and callers require finite outputs).
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the covariance between two equal-length datasets
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// DailyReturns converts a price series to simple fractional returns.
// Returns[i] = Price[i+1]/Price[i] - 1. A zero price produces a zero return.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = prices[i]/prices[i-1] - 1
		}
	}
	return returns
}

// AnnualizedVolatility calculates annualized volatility from daily returns
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// SharpeRatio calculates the annualized Sharpe ratio from daily returns.
// A zero-volatility series yields 0 rather than a division by zero.
func SharpeRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	vol := AnnualizedVolatility(dailyReturns)
	if vol == 0 {
		return 0
	}
	excess := Mean(dailyReturns)*TradingDaysPerYear - riskFreeRate
	return excess / vol
}

// SortinoRatio calculates the annualized Sortino ratio from daily returns.
// Only negative returns contribute to the denominator; a series with no
// losing days yields 0.
func SortinoRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	var downside []float64
	for _, r := range dailyReturns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	downsideVol := AnnualizedVolatility(downside)
	if downsideVol == 0 {
		return 0
	}

	excess := Mean(dailyReturns)*TradingDaysPerYear - riskFreeRate
	return excess / downsideVol
}

// MaxDrawdown calculates the largest peak-to-trough decline of a value
// series as a fraction. The result is always <= 0; a monotonically
// non-decreasing series yields exactly 0.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Beta calculates the portfolio's sensitivity to benchmark returns:
// cov(portfolio, benchmark) / var(benchmark). Mismatched lengths or a
// degenerate benchmark variance yield the neutral value 1.
func Beta(portfolioReturns, benchmarkReturns []float64) float64 {
	if len(portfolioReturns) != len(benchmarkReturns) || len(portfolioReturns) < 2 {
		return 1
	}

	benchVar := Variance(benchmarkReturns)
	if benchVar == 0 {
		return 1
	}
	return Covariance(portfolioReturns, benchmarkReturns) / benchVar
}

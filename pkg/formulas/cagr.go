package formulas

import "math"

// CAGRFromValues calculates the compound annual growth rate of a daily value
// series, using trading days / 252 as the elapsed year count.
//
// Formula: (Ending Value / Beginning Value)^(1/years) - 1
//
// For very short windows (under 3 trading days) the simple total return is
// returned instead, to avoid extreme annualization.
func CAGRFromValues(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	start := values[0]
	end := values[len(values)-1]
	if start <= 0 || end <= 0 {
		return 0
	}

	numDays := float64(len(values))
	if numDays < 3 {
		return end/start - 1
	}

	years := numDays / TradingDaysPerYear
	return math.Pow(end/start, 1/years) - 1
}

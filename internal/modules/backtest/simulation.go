package backtest

// simulate walks the price matrix day by day and returns the portfolio value
// series: one value per trading date, starting at initialValue on the first
// date.
//
// Between rebalance dates weights drift with relative asset performance and
// are not renormalized; on a flagged date the weight state resets to target
// before that day's return is applied.
//
// returns holds per-day fractional asset returns (row t is the move from
// date t to date t+1 of the price index), target the normalized target
// weights in column order, and flags one entry per price date.
func simulate(returns [][]float64, target []float64, flags []bool, initialValue float64) []float64 {
	values := make([]float64, len(returns)+1)
	values[0] = initialValue

	weights := append([]float64(nil), target...)
	value := initialValue

	for t, row := range returns {
		if flags[t+1] {
			copy(weights, target)
		}

		dayReturn := 0.0
		for i, r := range row {
			dayReturn += weights[i] * r
		}

		value *= 1 + dayReturn
		values[t+1] = value

		// Drift: winners grow their share of the portfolio
		if growth := 1 + dayReturn; growth != 0 {
			for i, r := range row {
				weights[i] = weights[i] * (1 + r) / growth
			}
		}
	}

	return values
}

// normalizeWeights returns a copy of w scaled to sum to 1. A zero-sum input
// is returned unchanged.
func normalizeWeights(w []float64) []float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	out := append([]float64(nil), w...)
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

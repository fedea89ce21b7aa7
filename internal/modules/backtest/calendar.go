package backtest

import "time"

// rebalanceFlags marks the dates on which the simulation resets weights to
// their targets: the first trading day of each new period under the chosen
// frequency. The first date is never flagged since the simulation starts at
// the target weights.
//
// Pure function over the date index; no calendar library involved.
func rebalanceFlags(dates []time.Time, freq Frequency) []bool {
	flags := make([]bool, len(dates))
	for i := 1; i < len(dates); i++ {
		flags[i] = newPeriod(dates[i-1], dates[i], freq)
	}
	return flags
}

// newPeriod reports whether cur falls in a later period than prev.
func newPeriod(prev, cur time.Time, freq Frequency) bool {
	switch freq {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		py, pw := prev.ISOWeek()
		cy, cw := cur.ISOWeek()
		return py != cy || pw != cw
	case FrequencyQuarterly:
		return prev.Year() != cur.Year() || quarterOf(prev) != quarterOf(cur)
	default: // monthly
		return prev.Year() != cur.Year() || prev.Month() != cur.Month()
	}
}

func quarterOf(t time.Time) int {
	return (int(t.Month()) - 1) / 3
}

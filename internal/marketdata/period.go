package marketdata

import (
	"fmt"
	"time"
)

// periodDays maps lookback descriptors to calendar day spans.
var periodDays = map[string]int{
	"1mo": 30,
	"1m":  30,
	"3mo": 90,
	"3m":  90,
	"6mo": 180,
	"6m":  180,
	"1y":  365,
	"2y":  730,
	"5y":  1825,
	"10y": 3650,
}

// ParsePeriod converts a lookback descriptor such as "2y" or "6mo" into a
// calendar duration.
func ParsePeriod(period string) (time.Duration, error) {
	days, ok := periodDays[period]
	if !ok {
		return 0, fmt.Errorf("unknown period %q", period)
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// PeriodRange resolves a lookback descriptor into a [start, end] window
// ending now.
func PeriodRange(period string) (time.Time, time.Time, error) {
	d, err := ParsePeriod(period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := time.Now()
	return end.Add(-d), end, nil
}

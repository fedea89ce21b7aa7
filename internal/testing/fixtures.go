// Package testing provides shared test doubles for the service packages.
package testing

import (
	"fmt"
	"time"

	"github.com/foliolab/folio/internal/marketdata"
)

// StaticProvider is an in-memory PriceProvider backed by fixture series.
// Symbols without fixture data behave like symbols with no history (empty
// result, nil error), matching the real provider contract.
type StaticProvider struct {
	Series map[string][]marketdata.Bar
	Names  map[string]string

	// FailSymbols simulates infrastructure failures per symbol.
	FailSymbols map[string]bool
}

// NewStaticProvider creates an empty fixture provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		Series:      make(map[string][]marketdata.Bar),
		Names:       make(map[string]string),
		FailSymbols: make(map[string]bool),
	}
}

// AddSeries registers a daily price series for a symbol, one bar per weekday
// starting at the given date.
func (p *StaticProvider) AddSeries(symbol string, start time.Time, closes []float64) {
	bars := make([]marketdata.Bar, 0, len(closes))
	date := start
	for _, close := range closes {
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
		bars = append(bars, marketdata.Bar{Date: date, Close: close})
		date = date.AddDate(0, 0, 1)
	}
	p.Series[symbol] = bars
}

// PriceHistory implements marketdata.PriceProvider.
func (p *StaticProvider) PriceHistory(symbol string, start, end time.Time) ([]marketdata.Bar, error) {
	if p.FailSymbols[symbol] {
		return nil, fmt.Errorf("simulated fetch failure for %s", symbol)
	}

	var out []marketdata.Bar
	for _, bar := range p.Series[symbol] {
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

// Quote implements marketdata.PriceProvider using the last bar of the
// fixture series.
func (p *StaticProvider) Quote(symbol string) (marketdata.Quote, error) {
	bars := p.Series[symbol]
	if p.FailSymbols[symbol] || len(bars) == 0 {
		return marketdata.Quote{}, fmt.Errorf("no quote for symbol %s", symbol)
	}

	name := p.Names[symbol]
	if name == "" {
		name = symbol
	}
	return marketdata.Quote{
		Symbol: symbol,
		Name:   name,
		Price:  bars[len(bars)-1].Close,
	}, nil
}

// Package marketdata defines the price-history collaborator interface and the
// shared matrix preparation used by the optimizer and the backtest engine.
package marketdata

import (
	"errors"
	"time"
)

// ErrInsufficientData is returned when no usable price history remains after
// fetching and alignment. It is the only hard failure the computation core
// surfaces; per-symbol fetch problems are soft exclusions.
var ErrInsufficientData = errors.New("insufficient price history")

// Bar is a single daily closing price observation.
type Bar struct {
	Date  time.Time `json:"date" msgpack:"date"`
	Close float64   `json:"close" msgpack:"close"`
}

// Quote is the latest known price for a symbol, used for allocation sizing.
type Quote struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// PriceProvider supplies historical closing prices and latest quotes.
//
// Implementations must return an empty slice (not an error) when a symbol
// simply has no data for the requested window; errors are reserved for
// infrastructure failures. Both cases are treated as soft exclusions by the
// matrix builder.
type PriceProvider interface {
	PriceHistory(symbol string, start, end time.Time) ([]Bar, error)
	Quote(symbol string) (Quote, error)
}

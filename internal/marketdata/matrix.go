package marketdata

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Matrix is a date-aligned table of values: one row per trading date
// (ascending), one column per symbol. Every row is gap-free; dates where any
// symbol lacks data are dropped during alignment.
type Matrix struct {
	Dates   []time.Time
	Symbols []string
	Data    [][]float64 // rows indexed by date, columns by symbol
}

// Empty reports whether the matrix has no usable rows or columns.
func (m *Matrix) Empty() bool {
	return m == nil || len(m.Dates) == 0 || len(m.Symbols) == 0
}

// Rows returns the number of trading dates in the matrix.
func (m *Matrix) Rows() int {
	if m == nil {
		return 0
	}
	return len(m.Dates)
}

// Column returns the value series for one symbol, or nil if the symbol is
// not present.
func (m *Matrix) Column(symbol string) []float64 {
	for j, s := range m.Symbols {
		if s != symbol {
			continue
		}
		col := make([]float64, len(m.Data))
		for i, row := range m.Data {
			col[i] = row[j]
		}
		return col
	}
	return nil
}

// Returns converts a price matrix into a matrix of simple fractional daily
// returns: r[t] = p[t]/p[t-1] - 1. The first date has no return and is
// dropped.
func (m *Matrix) Returns() *Matrix {
	if m.Empty() || len(m.Dates) < 2 {
		return &Matrix{Symbols: append([]string(nil), m.symbolsOrNil()...)}
	}

	rows := make([][]float64, len(m.Dates)-1)
	for i := 1; i < len(m.Dates); i++ {
		row := make([]float64, len(m.Symbols))
		for j := range m.Symbols {
			prev := m.Data[i-1][j]
			if prev != 0 {
				row[j] = m.Data[i][j]/prev - 1
			}
		}
		rows[i-1] = row
	}

	return &Matrix{
		Dates:   append([]time.Time(nil), m.Dates[1:]...),
		Symbols: append([]string(nil), m.Symbols...),
		Data:    rows,
	}
}

func (m *Matrix) symbolsOrNil() []string {
	if m == nil {
		return nil
	}
	return m.Symbols
}

// MatrixBuilder turns per-symbol price series from a PriceProvider into
// aligned matrices.
type MatrixBuilder struct {
	provider PriceProvider
	log      zerolog.Logger
}

// NewMatrixBuilder creates a matrix builder backed by the given provider.
func NewMatrixBuilder(provider PriceProvider, log zerolog.Logger) *MatrixBuilder {
	return &MatrixBuilder{
		provider: provider,
		log:      log.With().Str("component", "matrix_builder").Logger(),
	}
}

const dateKeyLayout = "2006-01-02"

// PriceMatrix fetches closing prices for all symbols over [start, end] and
// inner-joins them on date. Symbols whose history cannot be fetched or is
// empty are excluded rather than failing the whole batch; a symbol with a
// sparse history shrinks the usable date range for every column. When no
// symbol has usable data the result is an empty matrix with a nil error —
// callers decide whether that is fatal.
func (b *MatrixBuilder) PriceMatrix(symbols []string, start, end time.Time) (*Matrix, error) {
	series := make(map[string]map[string]float64)
	var usable []string

	for _, symbol := range symbols {
		if _, seen := series[symbol]; seen {
			continue
		}

		bars, err := b.provider.PriceHistory(symbol, start, end)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("Excluding symbol: history fetch failed")
			continue
		}
		if len(bars) == 0 {
			b.log.Warn().Str("symbol", symbol).Msg("Excluding symbol: no price history")
			continue
		}

		byDate := make(map[string]float64, len(bars))
		for _, bar := range bars {
			byDate[bar.Date.Format(dateKeyLayout)] = bar.Close
		}
		series[symbol] = byDate
		usable = append(usable, symbol)
	}

	if len(usable) == 0 {
		return &Matrix{}, nil
	}

	// Intersect date keys across all usable symbols
	var common []string
	for key := range series[usable[0]] {
		present := true
		for _, symbol := range usable[1:] {
			if _, ok := series[symbol][key]; !ok {
				present = false
				break
			}
		}
		if present {
			common = append(common, key)
		}
	}
	sort.Strings(common)

	if len(common) == 0 {
		b.log.Warn().Strs("symbols", usable).Msg("No overlapping trading dates across symbols")
		return &Matrix{}, nil
	}

	dates := make([]time.Time, len(common))
	rows := make([][]float64, len(common))
	for i, key := range common {
		date, err := time.Parse(dateKeyLayout, key)
		if err != nil {
			continue
		}
		dates[i] = date
		row := make([]float64, len(usable))
		for j, symbol := range usable {
			row[j] = series[symbol][key]
		}
		rows[i] = row
	}

	return &Matrix{Dates: dates, Symbols: usable, Data: rows}, nil
}

// ReturnsMatrix builds the aligned daily-returns matrix for a lookback
// period descriptor such as "2y".
func (b *MatrixBuilder) ReturnsMatrix(symbols []string, period string) (*Matrix, error) {
	start, end, err := PeriodRange(period)
	if err != nil {
		return nil, err
	}

	prices, err := b.PriceMatrix(symbols, start, end)
	if err != nil {
		return nil, err
	}
	return prices.Returns(), nil
}

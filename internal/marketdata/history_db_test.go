package marketdata

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSymbolDB(t *testing.T, dir, symbol string, rows map[string]float64) {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(dir, symbol+".db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE daily_prices (date TEXT PRIMARY KEY, close_price REAL)`)
	require.NoError(t, err)

	for date, close := range rows {
		_, err = db.Exec(`INSERT INTO daily_prices (date, close_price) VALUES (?, ?)`, date, close)
		require.NoError(t, err)
	}
}

func writeSecuritiesDB(t *testing.T, dir string, names map[string]string) {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(dir, "securities.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE securities (symbol TEXT PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)

	for symbol, name := range names {
		_, err = db.Exec(`INSERT INTO securities (symbol, name) VALUES (?, ?)`, symbol, name)
		require.NoError(t, err)
	}
}

func TestHistoryDB_PriceHistory(t *testing.T) {
	dir := t.TempDir()
	writeSymbolDB(t, dir, "AAPL", map[string]float64{
		"2024-01-02": 185.0,
		"2024-01-03": 184.2,
		"2024-01-04": 181.9,
		"2024-02-01": 186.9,
	})

	h := NewHistoryDB(dir, zerolog.Nop())
	bars, err := h.PriceHistory("AAPL",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, bars, 3, "February row is outside the window")
	assert.Equal(t, 185.0, bars[0].Close)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Date.After(bars[i-1].Date), "bars must be ascending")
	}
}

func TestHistoryDB_MissingSymbolIsSoft(t *testing.T) {
	h := NewHistoryDB(t.TempDir(), zerolog.Nop())

	bars, err := h.PriceHistory("GHOST", time.Now().AddDate(-1, 0, 0), time.Now())
	require.NoError(t, err, "missing database file is not an error")
	assert.Empty(t, bars)
}

func TestHistoryDB_Quote(t *testing.T) {
	dir := t.TempDir()
	writeSymbolDB(t, dir, "AAPL", map[string]float64{
		"2024-01-02": 185.0,
		"2024-01-03": 184.2,
	})
	writeSecuritiesDB(t, dir, map[string]string{"AAPL": "Apple Inc."})

	h := NewHistoryDB(dir, zerolog.Nop())
	quote, err := h.Quote("AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, "Apple Inc.", quote.Name)
	assert.Equal(t, 184.2, quote.Price, "latest close wins")
}

func TestHistoryDB_QuoteWithoutSecuritiesDB(t *testing.T) {
	dir := t.TempDir()
	writeSymbolDB(t, dir, "MSFT", map[string]float64{"2024-01-02": 370.0})

	h := NewHistoryDB(dir, zerolog.Nop())
	quote, err := h.Quote("MSFT")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", quote.Name, "name falls back to the symbol")
}

func TestHistoryDB_QuoteMissingSymbol(t *testing.T) {
	h := NewHistoryDB(t.TempDir(), zerolog.Nop())

	_, err := h.Quote("GHOST")
	assert.Error(t, err)
}

package marketdata

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

// HistoryDB serves price history from per-symbol SQLite databases stored
// under a history directory (one <SYMBOL>.db file per symbol, each with a
// daily_prices table). A securities.db alongside them maps symbols to
// display names for quotes.
//
// A missing database file means the symbol has no data: PriceHistory returns
// an empty slice with a nil error, which the matrix builder treats as a soft
// exclusion.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// PriceHistory fetches daily closing prices for a symbol over [start, end],
// ascending by date.
func (h *HistoryDB) PriceHistory(symbol string, start, end time.Time) ([]Bar, error) {
	db, ok, err := h.openSymbolDB(symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	defer db.Close()

	query := `
		SELECT date, close_price
		FROM daily_prices
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := db.Query(query, start.Format(dateKeyLayout), end.Format(dateKeyLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		var dateStr string
		var closePrice float64
		if err := rows.Scan(&dateStr, &closePrice); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		date, err := time.Parse(dateKeyLayout, dateStr)
		if err != nil {
			h.log.Warn().Str("symbol", symbol).Str("date", dateStr).Msg("Skipping row with unparseable date")
			continue
		}
		bars = append(bars, Bar{Date: date, Close: closePrice})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return bars, nil
}

// Quote returns the most recent closing price for a symbol, with the display
// name from securities.db when available.
func (h *HistoryDB) Quote(symbol string) (Quote, error) {
	db, ok, err := h.openSymbolDB(symbol)
	if err != nil {
		return Quote{}, err
	}
	if !ok {
		return Quote{}, fmt.Errorf("no price history for symbol %s", symbol)
	}
	defer db.Close()

	var dateStr string
	var closePrice float64
	err = db.QueryRow(`
		SELECT date, close_price
		FROM daily_prices
		ORDER BY date DESC
		LIMIT 1
	`).Scan(&dateStr, &closePrice)
	if err == sql.ErrNoRows {
		return Quote{}, fmt.Errorf("no price history for symbol %s", symbol)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("failed to query latest price for %s: %w", symbol, err)
	}

	return Quote{
		Symbol: symbol,
		Name:   h.securityName(symbol),
		Price:  closePrice,
	}, nil
}

// securityName looks up the display name for a symbol, falling back to the
// symbol itself.
func (h *HistoryDB) securityName(symbol string) string {
	path := filepath.Join(h.historyDir, "securities.db")
	if _, err := os.Stat(path); err != nil {
		return symbol
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return symbol
	}
	defer db.Close()

	var name string
	err = db.QueryRow("SELECT name FROM securities WHERE symbol = ?", symbol).Scan(&name)
	if err != nil || name == "" {
		return symbol
	}
	return name
}

// openSymbolDB opens the per-symbol database. The boolean result is false
// when no database file exists for the symbol.
func (h *HistoryDB) openSymbolDB(symbol string) (*sql.DB, bool, error) {
	path := filepath.Join(h.historyDir, symbol+".db")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat history db for %s: %w", symbol, err)
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, false, fmt.Errorf("failed to open history db for %s: %w", symbol, err)
	}
	return db, true, nil
}

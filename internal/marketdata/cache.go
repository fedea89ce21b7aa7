package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// CachedProvider wraps a PriceProvider with a SQLite-backed series cache.
// Fetched series are stored msgpack-encoded and served from the cache until
// they expire. Quotes are passed through uncached — they must reflect the
// latest close.
type CachedProvider struct {
	inner PriceProvider
	db    *sql.DB
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedProvider opens (creating if needed) the cache database at the
// given path and wraps the inner provider.
func NewCachedProvider(inner PriceProvider, cachePath string, ttl time.Duration, log zerolog.Logger) (*CachedProvider, error) {
	db, err := sql.Open("sqlite3", cachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS series_cache (
			cache_key  TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &CachedProvider{
		inner: inner,
		db:    db,
		ttl:   ttl,
		log:   log.With().Str("component", "price_cache").Logger(),
	}, nil
}

// Close releases the cache database.
func (c *CachedProvider) Close() error {
	return c.db.Close()
}

// PriceHistory serves a cached series when fresh, otherwise fetches from the
// inner provider and stores the result. Cache failures degrade to direct
// fetches; they are never fatal.
func (c *CachedProvider) PriceHistory(symbol string, start, end time.Time) ([]Bar, error) {
	key := fmt.Sprintf("%s|%s|%s", symbol, start.Format(dateKeyLayout), end.Format(dateKeyLayout))

	if bars, ok := c.lookup(key); ok {
		return bars, nil
	}

	bars, err := c.inner.PriceHistory(symbol, start, end)
	if err != nil {
		return nil, err
	}

	c.store(key, bars)
	return bars, nil
}

// Quote delegates to the inner provider.
func (c *CachedProvider) Quote(symbol string) (Quote, error) {
	return c.inner.Quote(symbol)
}

// Purge deletes cache entries created before the cutoff and returns the
// number of rows removed.
func (c *CachedProvider) Purge(olderThan time.Time) (int64, error) {
	res, err := c.db.Exec("DELETE FROM series_cache WHERE created_at < ?", olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge series cache: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		c.log.Info().Int64("removed", removed).Msg("Purged expired cache entries")
	}
	return removed, nil
}

func (c *CachedProvider) lookup(key string) ([]Bar, bool) {
	var payload []byte
	var createdAt int64
	err := c.db.QueryRow(
		"SELECT payload, created_at FROM series_cache WHERE cache_key = ?", key,
	).Scan(&payload, &createdAt)
	if err != nil {
		if err != sql.ErrNoRows {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		}
		return nil, false
	}

	if time.Since(time.Unix(createdAt, 0)) > c.ttl {
		return nil, false
	}

	var bars []Bar
	if err := msgpack.Unmarshal(payload, &bars); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	return bars, true
}

func (c *CachedProvider) store(key string, bars []Bar) {
	payload, err := msgpack.Marshal(bars)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode series for cache")
		return
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO series_cache (cache_key, payload, created_at) VALUES (?, ?, ?)",
		key, payload, time.Now().Unix(),
	)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to store series in cache")
	}
}

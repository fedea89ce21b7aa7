package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/foliolab/folio/internal/marketdata"
)

// CachePurgeJob evicts expired entries from the price-series cache.
type CachePurgeJob struct {
	cache  *marketdata.CachedProvider
	maxAge time.Duration
	log    zerolog.Logger
}

// NewCachePurgeJob creates a purge job that removes cache entries older than
// maxAge.
func NewCachePurgeJob(cache *marketdata.CachedProvider, maxAge time.Duration, log zerolog.Logger) *CachePurgeJob {
	return &CachePurgeJob{
		cache:  cache,
		maxAge: maxAge,
		log:    log.With().Str("job", "cache_purge").Logger(),
	}
}

// Name returns the job name
func (j *CachePurgeJob) Name() string {
	return "cache_purge"
}

// Run removes expired cache entries
func (j *CachePurgeJob) Run() error {
	removed, err := j.cache.Purge(time.Now().Add(-j.maxAge))
	if err != nil {
		return err
	}
	j.log.Info().Int64("removed", removed).Msg("Cache purge completed")
	return nil
}

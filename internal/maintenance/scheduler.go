// Package maintenance runs the low-frequency cache housekeeping timers.
package maintenance

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"payment-bridge-service/internal/cache"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const keepAliveKey = "keepalive"

// CacheMaintainer is the slice of the cache protocol the scheduler needs.
type CacheMaintainer interface {
	Stats(ctx context.Context) (cache.Stats, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Flush(ctx context.Context) error
}

// Scheduler periodically flushes the cache past a utilization high-water mark
// and writes a keep-alive entry so the hosted cache tier is not reclaimed for
// inactivity. All failures are logged only; the request path never waits on
// it.
type Scheduler struct {
	cache       CacheMaintainer
	budgetBytes int64
	highWater   float64

	flushInterval     time.Duration
	keepAliveInterval time.Duration
}

func NewScheduler(c CacheMaintainer, budgetBytes int64) *Scheduler {
	return &Scheduler{
		cache:             c,
		budgetBytes:       budgetBytes,
		highWater:         0.8,
		flushInterval:     12 * time.Hour,
		keepAliveInterval: 7 * 24 * time.Hour,
	}
}

// Run blocks until ctx is cancelled. Start it on its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	flushTicker := time.NewTicker(s.flushInterval)
	defer flushTicker.Stop()
	keepAliveTicker := time.NewTicker(s.keepAliveInterval)
	defer keepAliveTicker.Stop()

	// An immediate keep-alive covers deployments that restart less often
	// than the ticker fires.
	s.keepAlive(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-flushTicker.C:
			s.checkUtilization(ctx)
		case <-keepAliveTicker.C:
			s.keepAlive(ctx)
		}
	}
}

// checkUtilization flushes the whole cache once used memory crosses the
// high-water mark. Blunt, but the cache holds only short-lived dedup markers.
func (s *Scheduler) checkUtilization(ctx context.Context) {
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Cache stats unavailable")
		return
	}

	threshold := int64(float64(s.budgetBytes) * s.highWater)
	if stats.UsedMemoryBytes < threshold {
		return
	}

	logger.Info().Int64("used_bytes", stats.UsedMemoryBytes).Int64("threshold", threshold).Msg("Cache past high-water mark, flushing")
	if err := s.cache.Flush(ctx); err != nil {
		logger.Error().Err(err).Msg("Cache flush failed")
	}
}

func (s *Scheduler) keepAlive(ctx context.Context) {
	err := s.cache.Set(ctx, keepAliveKey, time.Now().Format(time.RFC3339), 8*24*time.Hour)
	if err != nil {
		logger.Error().Err(err).Msg("Keep-alive write failed")
	}
}

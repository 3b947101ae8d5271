package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const sweepTimeout = 2 * time.Minute

// GarbageCollector sweeps dead-lettered enrichment jobs older than retention,
// once at start and then every interval.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	purged    atomic.Int64
}

// NewGarbageCollector creates a collector around purger. A nil purger makes every sweep a no-op.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start sweeps until ctx is cancelled and returns ctx.Err().
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			gc.logger.Info("dlq_gc_stopped", zap.Int64("purged_total", gc.Purged()))
			return err
		}
		if err := gc.sweep(ctx); err != nil {
			gc.logger.Error("dlq_gc_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// Purged reports how many messages this collector has removed.
func (gc *GarbageCollector) Purged() int64 {
	return gc.purged.Load()
}

func (gc *GarbageCollector) sweep(ctx context.Context) error {
	if gc.purger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("purge dead letters: %w", err)
	}
	if n > 0 {
		gc.purged.Add(int64(n))
		gc.logger.Info("dlq_gc_purged",
			zap.Int("purged", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return nil
}

package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredEntryRemover defines the registry capability the sweeper consumes
type ExpiredEntryRemover interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// BlocklistSweeper periodically removes expired entries from the IP registry.
// The login path only ever checks for entry presence, so expiry takes effect
// when a sweep deletes the row, not at the expires_at instant.
type BlocklistSweeper struct {
	registry ExpiredEntryRemover
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewBlocklistSweeper creates a new blocklist sweeper
func NewBlocklistSweeper(registry ExpiredEntryRemover, logger *slog.Logger, interval time.Duration) *BlocklistSweeper {
	return &BlocklistSweeper{
		registry: registry,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (bs *BlocklistSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(bs.interval)
	defer ticker.Stop()

	// Run immediately on startup
	bs.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			bs.runSweep(ctx)
		case <-bs.stopCh:
			bs.logger.Info("blocklist sweeper stopped")
			return
		case <-ctx.Done():
			bs.logger.Info("blocklist sweeper context cancelled")
			return
		}
	}
}

// runSweep removes entries whose expires_at has passed
func (bs *BlocklistSweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := bs.registry.DeleteExpired(sweepCtx, time.Now().UTC())
	if err != nil {
		bs.logger.Error("failed to sweep expired blocklist entries", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		bs.logger.Info("expired blocklist entries removed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the sweeper to stop
func (bs *BlocklistSweeper) Stop() {
	close(bs.stopCh)
}

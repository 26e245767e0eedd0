package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// runJanitor purges old synced buffer entries and reclaims old terminal events
// every JanitorInterval until ctx is done.
func (p *Pipeline) runJanitor(ctx context.Context) error {
	if p.config.JanitorInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(p.config.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.cleanup(ctx)
		}
	}
}

func (p *Pipeline) cleanup(ctx context.Context) {
	purged, err := p.buffer.PurgeSynced(ctx, p.config.SyncedRetention, false)
	if err != nil && ctx.Err() == nil && p.logger != nil {
		p.logger.Error("failed to purge synced entries", slog.Any("error", err))
	}

	cleared := p.events.ClearOld(ctx, p.config.EventRetention)

	if p.logger != nil && (purged > 0 || cleared > 0) {
		p.logger.Info("janitor run completed",
			slog.Int64("purged_entries", purged),
			slog.Int("cleared_events", cleared),
		)
	}
}

package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/store"
)

// DefaultHeartbeatInterval is how often the heartbeat reports progress.
const DefaultHeartbeatInterval = 5 * time.Minute

// Heartbeat periodically logs the identity total until the context is
// cancelled. It only reads, so it runs safely alongside the walker, the
// live handler and maintenance reads.
func Heartbeat(ctx context.Context, st *store.Store, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			total, err := st.CountIdentities()
			if err != nil {
				logger.Warn("heartbeat count failed", "error", err)
				continue
			}
			logger.Info("heartbeat", "identities", total)
		}
	}
}

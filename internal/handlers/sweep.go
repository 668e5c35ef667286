package handlers

import (
	"context"
	"log/slog"
	"time"
)

// Sweep evicts sessions idle for longer than idle, checking every interval,
// until ctx is done. Evicted sessions release their images; a returning
// browser gets a fresh session under the same cookie.
func (h *Handler) Sweep(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := h.sessionStore.EvictIdle(now.Add(-idle)); n > 0 {
				slog.Info("Evicted idle sessions", "count", n, "remaining", h.sessionStore.Len())
			}
		}
	}
}

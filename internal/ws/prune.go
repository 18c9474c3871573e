package ws

import (
	"context"
	"log/slog"
	"time"
)

// Run starts the prune loop. It blocks until ctx is cancelled, then closes
// all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.opts.PruneInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case now := <-t.C:
			if removed, pinged := h.Prune(now); removed > 0 || pinged > 0 {
				slog.Debug("ws: prune sweep", "removed", removed, "pinged", pinged, "total", h.Len())
			}
		}
	}
}

// Prune removes peers whose transport is closed and pings peers that have
// been idle longer than the threshold. It returns how many peers were
// removed and how many pings were requested.
func (h *Hub) Prune(now time.Time) (removed, pinged int) {
	var dead []*Peer
	h.registry.Each(func(p *Peer) {
		if !p.Open() {
			dead = append(dead, p)
			return
		}
		if now.Sub(p.LastActivity()) > h.opts.IdleThreshold && p.requestPing() {
			pinged++
		}
	})
	for _, p := range dead {
		if h.disconnect(p) {
			removed++
		}
	}
	h.stats.idlePings.Add(float64(pinged))
	return removed, pinged
}

// closeAll stops admitting peers and drops every registered one without
// presence frames. Used on shutdown only.
func (h *Hub) closeAll() {
	for _, p := range h.registry.Close() {
		p.shutdown()
	}
}

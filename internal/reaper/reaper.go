// Package reaper implements the idle-client eviction background task,
// grounded on the teacher's Hub.StartCleanupRoutine / Manager.cleanupUnusedHubs
// ticker-loop idiom, generalized from "idle hub" to "idle client".
package reaper

import (
	"context"
	"time"

	"github.com/tanmaysharma2001/textconf/internal/registry"
	"github.com/tanmaysharma2001/textconf/pkg/logger"
)

// Reaper periodically evicts clients whose last-activity timestamp is
// older than the configured timeout.
type Reaper struct {
	regs     *registry.Registries
	interval time.Duration
	timeout  time.Duration
	// now is a seam for deterministic tests; defaults to time.Now.
	now func() time.Time
}

func New(regs *registry.Registries, interval, timeout time.Duration) *Reaper {
	return &Reaper{regs: regs, interval: interval, timeout: timeout, now: time.Now}
}

// Run ticks every r.interval until ctx is cancelled, evicting any
// client idle longer than r.timeout.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	r.regs.Lock()
	defer r.regs.Unlock()

	now := r.now()
	for _, cid := range r.regs.ActiveClientIDs() {
		c, ok := r.regs.FindByID(cid)
		if !ok {
			continue
		}
		if now.Sub(c.LastActivity) > r.timeout {
			r.regs.RemoveClientFromAllSessions(cid)
			r.regs.Deactivate(cid)
			logger.With(map[string]interface{}{"client": cid}).Info("reaper: evicted idle client")
		}
	}
}

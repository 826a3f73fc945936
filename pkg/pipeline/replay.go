package pipeline

import (
	"sync"
	"time"
)

// replayGuard rejects a request ID seen again within the replay window.
// Entries are evicted lazily on Seen, the same lazy-eviction style as
// pkg/ratelimit and pkg/anomaly.
type replayGuard struct {
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

func newReplayGuard(window time.Duration) *replayGuard {
	return &replayGuard{window: window, seen: make(map[string]time.Time)}
}

// Seen records id at now and reports whether it was already present
// within the replay window (a replay), evicting expired entries first.
func (g *replayGuard) Seen(id string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.window)
	for k, t := range g.seen {
		if t.Before(cutoff) {
			delete(g.seen, k)
		}
	}

	if _, replay := g.seen[id]; replay {
		return true
	}
	g.seen[id] = now
	return false
}

package imageserver

import (
	"context"
	"time"

	"github.com/pyropy/imgserve/lib/cache"
)

type StatsMonitor struct {
	interval time.Duration
	server   *ImageServer
}

func NewStatsMonitor(server *ImageServer, interval time.Duration) *StatsMonitor {
	return &StatsMonitor{
		interval: interval,
		server:   server,
	}
}

// Start reports cache stats on every tick until ctx is done. A zero interval
// disables reporting.
func (m *StatsMonitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Report()
		case <-ctx.Done():
			log.Infow("shutdown", "statsMonitor", "shutting down stats monitor")
			return
		}
	}
}

func (m *StatsMonitor) Report() cache.Stats {
	s := m.server.Stats()
	log.Infow("stats",
		"entries", s.Len,
		"capacity", s.Cap,
		"hits", s.Hits,
		"misses", s.Misses,
		"failures", s.Failures,
		"evictions", s.Evictions,
	)

	return s
}

package metrics

import (
	"context"
	"runtime"
	"time"
)

// CollectSystem samples runtime memory, goroutine and GC statistics every
// refresh interval until ctx is done.
func (m *Manager) CollectSystem(ctx context.Context) {
	if !m.enabled {
		return
	}
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	var lastPause uint64
	var lastGC uint32
	for {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		m.systemMemoryUsage.Set(float64(ms.HeapAlloc))
		m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
		if ms.NumGC > lastGC {
			avg := float64(ms.PauseTotalNs-lastPause) / float64(ms.NumGC-lastGC)
			m.systemGCPauseTime.Observe(avg / float64(time.Millisecond))
			lastPause, lastGC = ms.PauseTotalNs, ms.NumGC
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// StartSystemCollector runs CollectSystem for the global manager on a new
// goroutine.
func StartSystemCollector(ctx context.Context) {
	if m := globalManager; m != nil {
		go m.CollectSystem(ctx)
	}
}

package cache

import (
	"sync/atomic"

	"github.com/diskwise-ai/diskwise/pkg/models"
)

// statsCollector tracks cache counters with atomics so concurrent
// lookups never serialize on a lock just to count themselves. The
// snapshot is approximate across counters, which is fine for a
// monitoring signal.
type statsCollector struct {
	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	invalidations atomic.Int64
}

func (s *statsCollector) recordHit()  { s.hits.Add(1) }
func (s *statsCollector) recordMiss() { s.misses.Add(1) }

func (s *statsCollector) recordEvictions(n int) {
	if n > 0 {
		s.evictions.Add(int64(n))
	}
}

func (s *statsCollector) recordInvalidations(n int) {
	if n > 0 {
		s.invalidations.Add(int64(n))
	}
}

func (s *statsCollector) reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.evictions.Store(0)
	s.invalidations.Store(0)
}

func (s *statsCollector) snapshot(entries int, sizeBytes int64) models.CacheStats {
	st := models.CacheStats{
		Entries:       int64(entries),
		SizeBytes:     sizeBytes,
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		Evictions:     s.evictions.Load(),
		Invalidations: s.invalidations.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

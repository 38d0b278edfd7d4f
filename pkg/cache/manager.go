package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
)

// ErrEntryTooLarge is returned when a single result exceeds the cache
// size limit. Such an entry is declined outright instead of being
// admitted and immediately evicted.
var ErrEntryTooLarge = errors.New("cache entry exceeds max size")

const snapshotName = "analysis_cache.json"

// Manager is the analysis result cache. It keys results by a
// fingerprint of file identities plus analysis parameters, validates
// hits against TTL and metadata drift, evicts least-recently-used
// entries when over capacity, and persists the entry set to disk with
// crash-safe semantics.
//
// Persistence failures are logged and absorbed: the in-memory cache
// keeps operating, trading durability for availability. Only an
// unusable cache directory fails construction.
type Manager struct {
	cfg     config.CacheConfig
	store   *store
	persist *persister
	stats   statsCollector

	now func() time.Time

	lastCleanup atomic.Int64 // unix nanoseconds

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a Manager, loads any previous snapshot, and starts the
// periodic cleanup loop.
func New(cfg config.CacheConfig) (*Manager, error) {
	if cfg.Directory == "" {
		return nil, errors.New("cache directory not configured")
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	m := &Manager{
		cfg:   cfg,
		store: newStore(),
		persist: &persister{
			path:     filepath.Join(cfg.Directory, snapshotName),
			compress: cfg.Compression,
		},
		now:  time.Now,
		done: make(chan struct{}),
	}
	m.lastCleanup.Store(m.now().UnixNano())

	loaded := m.persist.load()
	for _, e := range loaded {
		m.store.put(e)
	}
	if len(loaded) > 0 {
		log.Debug().Int("entries", len(loaded)).Str("dir", cfg.Directory).Msg("cache snapshot loaded")
	}
	// Drop anything that expired or overflowed while we were gone.
	m.sweep(m.now())

	if cfg.CleanupInterval > 0 {
		m.wg.Add(1)
		go m.cleanupLoop()
	}
	return m, nil
}

// GetCachedResult returns the cached result for the given file set and
// parameters, if present and still valid. Stale entries are removed and
// counted as invalidations; both stale and absent entries are misses.
func (m *Manager) GetCachedResult(files []models.FileMetadata, params models.AnalysisParameters) ([]byte, bool) {
	now := m.now()
	fp := Compute(files, params)

	e := m.store.get(fp, now)
	if e == nil {
		m.stats.recordMiss()
		return nil, false
	}

	switch checkValidity(e, SourceHash(files), now) {
	case valid:
		m.stats.recordHit()
		return e.Result, true
	case expired:
		log.Debug().Str("fingerprint", string(fp)).Msg("cache entry expired")
	case drifted:
		log.Debug().Str("fingerprint", string(fp)).Msg("cache entry invalidated by file changes")
	}

	m.store.remove(fp)
	m.stats.recordInvalidations(1)
	m.stats.recordMiss()
	m.flush()
	return nil, false
}

// CacheResult stores a fresh analysis result. A zero ttl uses the
// configured default. The result blob is treated as opaque.
func (m *Manager) CacheResult(files []models.FileMetadata, params models.AnalysisParameters, result []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	paths := make([]string, 0, len(files))
	size := int64(len(result))
	for _, f := range files {
		paths = append(paths, f.Path)
		size += int64(len(f.Path))
	}
	if m.cfg.MaxSizeBytes > 0 && size > m.cfg.MaxSizeBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrEntryTooLarge, size, m.cfg.MaxSizeBytes)
	}

	now := m.now()
	e := &Entry{
		Fingerprint: Compute(files, params),
		Result:      result,
		Paths:       paths,
		SourceHash:  SourceHash(files),
		CreatedAt:   now,
		TTL:         ttl,
		SizeBytes:   size,
	}
	e.touch(now)

	m.store.put(e)
	m.evict()
	m.flush()
	return nil
}

// InvalidateFile removes every cached entry whose file set contains the
// given path.
func (m *Manager) InvalidateFile(path string) int {
	n := m.store.removeByPath(path)
	if n > 0 {
		m.stats.recordInvalidations(n)
		m.flush()
		log.Debug().Str("path", path).Int("entries", n).Msg("cache entries invalidated for file")
	}
	return n
}

// InvalidateAll clears the cache and persists the empty state. Calling
// it on an already-empty cache is a no-op.
func (m *Manager) InvalidateAll() int {
	n := m.store.clear()
	if n > 0 {
		m.stats.recordInvalidations(n)
	}
	m.flush()
	return n
}

// Cleanup sweeps expired entries and enforces capacity limits, and
// returns the number of entries removed. Unless forced, it only runs
// once per configured cleanup interval.
func (m *Manager) Cleanup(force bool) int {
	now := m.now()
	if !force && m.cfg.CleanupInterval > 0 {
		last := time.Unix(0, m.lastCleanup.Load())
		if now.Sub(last) < m.cfg.CleanupInterval {
			return 0
		}
	}
	removed := m.sweep(now)
	m.lastCleanup.Store(now.UnixNano())
	if removed > 0 {
		m.flush()
	}
	return removed
}

// ResetStats zeroes the hit/miss/eviction/invalidation counters.
func (m *Manager) ResetStats() { m.stats.reset() }

// Stats returns the current cache counters.
func (m *Manager) Stats() models.CacheStats {
	return m.stats.snapshot(m.store.count(), m.store.totalSize())
}

// Info returns the stats plus an entries-by-age breakdown.
func (m *Manager) Info() models.CacheInfo {
	now := m.now()
	byAge := map[string]int{}
	entries := m.store.all()
	for _, e := range entries {
		byAge[ageBucket(now.Sub(e.CreatedAt))]++
	}
	return models.CacheInfo{
		Directory:    m.cfg.Directory,
		Entries:      len(entries),
		SizeBytes:    m.store.totalSize(),
		EntriesByAge: byAge,
		Stats:        m.stats.snapshot(len(entries), m.store.totalSize()),
	}
}

// Close stops the cleanup loop and writes a final snapshot.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
	return m.persist.save(m.store.all())
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Cleanup(false); n > 0 {
				log.Debug().Int("removed", n).Msg("cache cleanup")
			}
		case <-m.done:
			return
		}
	}
}

// sweep removes expired entries, then applies the eviction policy.
func (m *Manager) sweep(now time.Time) int {
	swept := m.store.removeWhere(func(e *Entry) bool { return e.expired(now) })
	m.stats.recordEvictions(swept)
	return swept + m.evict()
}

// evict enforces the count and size limits, least recently used first.
func (m *Manager) evict() int {
	fps := victims(m.store.all(), m.cfg.MaxEntries, m.cfg.MaxSizeBytes)
	if len(fps) == 0 {
		return 0
	}
	n := m.store.removeBatch(fps)
	m.stats.recordEvictions(n)
	return n
}

// flush persists the current entry set. Failures are logged, never
// propagated: losing the cache must not block the tool.
func (m *Manager) flush() {
	if err := m.persist.save(m.store.all()); err != nil {
		log.Warn().Err(err).Msg("cache persist failed, continuing in memory")
	}
}

func ageBucket(age time.Duration) string {
	switch {
	case age < time.Hour:
		return "<1h"
	case age < 6*time.Hour:
		return "1-6h"
	case age < 24*time.Hour:
		return "6-24h"
	case age < 7*24*time.Hour:
		return "1-7d"
	default:
		return ">7d"
	}
}

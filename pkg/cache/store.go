package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry is one cached analysis result. Entries are replaced whole, never
// mutated in place; the only field updated after insert is the access
// time, which uses an atomic so reads can stay concurrent.
type Entry struct {
	Fingerprint Fingerprint
	Result      []byte
	Paths       []string
	SourceHash  string
	CreatedAt   time.Time
	TTL         time.Duration
	SizeBytes   int64

	lastAccess atomic.Int64 // unix nanoseconds
}

// LastAccessed reports when the entry was last returned from a lookup.
func (e *Entry) LastAccessed() time.Time {
	return time.Unix(0, e.lastAccess.Load())
}

func (e *Entry) touch(now time.Time) {
	e.lastAccess.Store(now.UnixNano())
}

func (e *Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

// store is the in-memory index of cache entries. It is the single owner
// of entry lifetime; every mutation goes through it so eviction and
// persistence observe a consistent view. A reverse path index makes
// per-file invalidation cheap.
type store struct {
	mu      sync.RWMutex
	entries map[Fingerprint]*Entry
	byPath  map[string]map[Fingerprint]struct{}
	size    int64
}

func newStore() *store {
	return &store{
		entries: make(map[Fingerprint]*Entry),
		byPath:  make(map[string]map[Fingerprint]struct{}),
	}
}

// get returns the entry for fp, bumping its access time. A missing key
// is a plain nil, never an error.
func (s *store) get(fp Fingerprint, now time.Time) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entries[fp]
	if e != nil {
		e.touch(now)
	}
	return e
}

// put inserts or replaces an entry. Replacement is a whole-entry swap.
func (s *store) put(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old := s.entries[e.Fingerprint]; old != nil {
		s.dropLocked(old)
	}
	s.entries[e.Fingerprint] = e
	s.size += e.SizeBytes
	for _, p := range e.Paths {
		set := s.byPath[p]
		if set == nil {
			set = make(map[Fingerprint]struct{})
			s.byPath[p] = set
		}
		set[e.Fingerprint] = struct{}{}
	}
}

func (s *store) remove(fp Fingerprint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[fp]
	if e == nil {
		return false
	}
	s.dropLocked(e)
	return true
}

func (s *store) removeBatch(fps []Fingerprint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, fp := range fps {
		if e := s.entries[fp]; e != nil {
			s.dropLocked(e)
			n++
		}
	}
	return n
}

// removeByPath removes every entry whose file set contains path.
func (s *store) removeByPath(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for fp := range s.byPath[path] {
		if e := s.entries[fp]; e != nil {
			s.dropLocked(e)
			n++
		}
	}
	return n
}

// removeWhere removes every entry matching pred and returns the count.
func (s *store) removeWhere(pred func(*Entry) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if pred(e) {
			s.dropLocked(e)
			n++
		}
	}
	return n
}

func (s *store) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[Fingerprint]*Entry)
	s.byPath = make(map[string]map[Fingerprint]struct{})
	s.size = 0
	return n
}

// all returns a snapshot of the current entries.
func (s *store) all() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

func (s *store) totalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// dropLocked unlinks an entry from the index and the size total.
// Caller holds the write lock.
func (s *store) dropLocked(e *Entry) {
	delete(s.entries, e.Fingerprint)
	s.size -= e.SizeBytes
	for _, p := range e.Paths {
		if set := s.byPath[p]; set != nil {
			delete(set, e.Fingerprint)
			if len(set) == 0 {
				delete(s.byPath, p)
			}
		}
	}
}

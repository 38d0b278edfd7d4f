package cache

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, mutate func(*config.CacheConfig)) (*Manager, *fakeClock) {
	t.Helper()
	cfg := config.CacheConfig{
		Directory:    t.TempDir(),
		DefaultTTL:   time.Hour,
		MaxSizeBytes: 1 << 20,
		MaxEntries:   100,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Close() })

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m.now = clock.now
	return m, clock
}

func filesNamed(name string) []models.FileMetadata {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return []models.FileMetadata{
		{Path: "/data/" + name + "/a.tmp", SizeBytes: 100, ModifiedAt: base},
		{Path: "/data/" + name + "/b.log", SizeBytes: 200, ModifiedAt: base},
	}
}

func TestRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, nil)
	files := filesNamed("rt")
	result := []byte(`{"recommendations":[{"path":"/data/rt/a.tmp","recommendation":"delete"}]}`)

	if err := m.CacheResult(files, testParams(), result, 0); err != nil {
		t.Fatal(err)
	}

	got, ok := m.GetCachedResult(files, testParams())
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !bytes.Equal(got, result) {
		t.Errorf("result changed through the cache: %s", got)
	}

	stats := m.Stats()
	if stats.Hits != 1 || stats.Misses != 0 {
		t.Errorf("hits=%d misses=%d", stats.Hits, stats.Misses)
	}
}

func TestMissOnUnknownSet(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if _, ok := m.GetCachedResult(filesNamed("nope"), testParams()); ok {
		t.Error("expected miss")
	}
	if stats := m.Stats(); stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestParameterSensitiveKey(t *testing.T) {
	m, _ := newTestManager(t, nil)
	files := filesNamed("params")

	params := testParams()
	params.Model = "m1"
	if err := m.CacheResult(files, params, []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}

	params.Model = "m2"
	if _, ok := m.GetCachedResult(files, params); ok {
		t.Error("expected miss for different model")
	}
}

func TestTTLExpiry(t *testing.T) {
	m, clock := newTestManager(t, nil)
	files := filesNamed("ttl")

	if err := m.CacheResult(files, testParams(), []byte(`{}`), time.Second); err != nil {
		t.Fatal(err)
	}

	clock.advance(2 * time.Second)

	if _, ok := m.GetCachedResult(files, testParams()); ok {
		t.Error("expected miss after TTL elapsed")
	}
	stats := m.Stats()
	if stats.Invalidations != 1 {
		t.Errorf("expected 1 invalidation, got %d", stats.Invalidations)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	// The stale entry is gone: a second lookup is a plain miss.
	if _, ok := m.GetCachedResult(files, testParams()); ok {
		t.Error("stale entry should have been removed")
	}
	if stats = m.Stats(); stats.Invalidations != 1 {
		t.Errorf("plain miss should not count as invalidation, got %d", stats.Invalidations)
	}
}

func TestMetadataDriftInvalidation(t *testing.T) {
	m, _ := newTestManager(t, nil)
	files := filesNamed("drift")

	if err := m.CacheResult(files, testParams(), []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}

	// Same paths, one file grew. TTL has not elapsed.
	changed := filesNamed("drift")
	changed[0].SizeBytes = 999

	// The fingerprint differs too, so force the interesting case: a
	// matching fingerprint with drifted source metadata, as happens
	// when an entry is looked up through a stale reverse mapping.
	fp := Compute(files, testParams())
	e := m.store.get(fp, m.now())
	if e == nil {
		t.Fatal("entry missing")
	}
	if got := checkValidity(e, SourceHash(changed), m.now()); got != drifted {
		t.Errorf("expected drifted, got %v", got)
	}

	if _, ok := m.GetCachedResult(changed, testParams()); ok {
		t.Error("expected miss for changed file set")
	}
}

func TestEvictionBound(t *testing.T) {
	m, clock := newTestManager(t, func(cfg *config.CacheConfig) {
		cfg.MaxEntries = 3
	})

	for i := 0; i < 4; i++ {
		files := filesNamed(fmt.Sprintf("set%d", i))
		if err := m.CacheResult(files, testParams(), []byte(`{}`), 0); err != nil {
			t.Fatal(err)
		}
		clock.advance(time.Minute)
	}

	if got := m.store.count(); got != 3 {
		t.Fatalf("expected exactly 3 entries, got %d", got)
	}
	// The least recently used entry (set0) was the victim.
	if _, ok := m.GetCachedResult(filesNamed("set0"), testParams()); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := m.GetCachedResult(filesNamed("set3"), testParams()); !ok {
		t.Error("newest entry should survive")
	}
	if stats := m.Stats(); stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestOversizeEntryRejected(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *config.CacheConfig) {
		cfg.MaxSizeBytes = 1000
	})

	big := make([]byte, 1200)
	err := m.CacheResult(filesNamed("big"), testParams(), big, 0)
	if !errors.Is(err, ErrEntryTooLarge) {
		t.Fatalf("expected ErrEntryTooLarge, got %v", err)
	}
	if m.store.count() != 0 {
		t.Error("oversize entry must not be admitted")
	}
}

func TestInvalidateFile(t *testing.T) {
	m, _ := newTestManager(t, nil)
	shared := filesNamed("shared")
	other := filesNamed("other")

	if err := m.CacheResult(shared, testParams(), []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}
	if err := m.CacheResult(other, testParams(), []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}

	if n := m.InvalidateFile(shared[0].Path); n != 1 {
		t.Fatalf("expected 1 invalidated entry, got %d", n)
	}
	if _, ok := m.GetCachedResult(shared, testParams()); ok {
		t.Error("entry containing the path should be gone")
	}
	if _, ok := m.GetCachedResult(other, testParams()); !ok {
		t.Error("unrelated entry should survive")
	}
}

func TestInvalidateAllIdempotent(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if err := m.CacheResult(filesNamed("x"), testParams(), []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}

	if n := m.InvalidateAll(); n != 1 {
		t.Errorf("expected 1 cleared entry, got %d", n)
	}
	if n := m.InvalidateAll(); n != 0 {
		t.Errorf("second clear should remove nothing, got %d", n)
	}
	if m.store.count() != 0 {
		t.Error("cache should be empty")
	}
}

func TestCleanupSweepsExpired(t *testing.T) {
	m, clock := newTestManager(t, nil)

	if err := m.CacheResult(filesNamed("short"), testParams(), []byte(`{}`), time.Second); err != nil {
		t.Fatal(err)
	}
	if err := m.CacheResult(filesNamed("long"), testParams(), []byte(`{}`), time.Hour); err != nil {
		t.Fatal(err)
	}

	clock.advance(time.Minute)

	if n := m.Cleanup(true); n != 1 {
		t.Fatalf("expected 1 swept entry, got %d", n)
	}
	if _, ok := m.GetCachedResult(filesNamed("long"), testParams()); !ok {
		t.Error("unexpired entry should survive the sweep")
	}
}

func TestCleanupRespectsInterval(t *testing.T) {
	m, clock := newTestManager(t, func(cfg *config.CacheConfig) {
		cfg.CleanupInterval = time.Hour
	})
	// Only close stops the loop; give the test manager its fake clock
	// before any tick work matters.
	if err := m.CacheResult(filesNamed("s"), testParams(), []byte(`{}`), time.Second); err != nil {
		t.Fatal(err)
	}
	clock.advance(time.Minute)

	if n := m.Cleanup(false); n != 0 {
		t.Errorf("unforced cleanup inside the interval should be a no-op, got %d", n)
	}
	if n := m.Cleanup(true); n != 1 {
		t.Errorf("forced cleanup should sweep, got %d", n)
	}
}

func TestPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CacheConfig{
		Directory:    dir,
		DefaultTTL:   time.Hour,
		MaxSizeBytes: 1 << 20,
		MaxEntries:   100,
		Compression:  true,
	}

	m1, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	files := filesNamed("restart")
	result := []byte(`{"recommendations":[]}`)
	if err := m1.CacheResult(files, testParams(), result, 0); err != nil {
		t.Fatal(err)
	}
	if err := m1.Close(); err != nil {
		t.Fatal(err)
	}

	m2, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer m2.Close()

	got, ok := m2.GetCachedResult(files, testParams())
	if !ok {
		t.Fatal("expected hit after restart")
	}
	if !bytes.Equal(got, result) {
		t.Errorf("result changed across restart: %s", got)
	}
}

func TestStatsAndInfo(t *testing.T) {
	m, _ := newTestManager(t, nil)
	files := filesNamed("stats")

	m.GetCachedResult(files, testParams()) // miss
	if err := m.CacheResult(files, testParams(), []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}
	m.GetCachedResult(files, testParams()) // hit

	stats := m.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits=%d misses=%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", stats.HitRate)
	}

	info := m.Info()
	if info.Entries != 1 {
		t.Errorf("expected 1 entry in info, got %d", info.Entries)
	}
	if info.EntriesByAge["<1h"] != 1 {
		t.Errorf("expected entry in <1h bucket, got %v", info.EntriesByAge)
	}

	m.ResetStats()
	if stats = m.Stats(); stats.Hits != 0 || stats.Misses != 0 {
		t.Error("reset should zero counters")
	}
}

package cache

import (
	"testing"
	"time"
)

func accessedAt(fp Fingerprint, size int64, created, accessed time.Time) *Entry {
	e := &Entry{Fingerprint: fp, CreatedAt: created, SizeBytes: size, TTL: time.Hour}
	e.touch(accessed)
	return e
}

func TestVictimsUnderLimits(t *testing.T) {
	now := time.Now()
	entries := []*Entry{
		accessedAt("a", 10, now, now),
		accessedAt("b", 10, now, now),
	}
	if got := victims(entries, 5, 1000); got != nil {
		t.Errorf("no victims expected under limits, got %v", got)
	}
}

func TestVictimsLRUOrder(t *testing.T) {
	now := time.Now()
	entries := []*Entry{
		accessedAt("new", 10, now, now),
		accessedAt("old", 10, now.Add(-2*time.Hour), now.Add(-2*time.Hour)),
		accessedAt("mid", 10, now.Add(-time.Hour), now.Add(-time.Hour)),
	}

	got := victims(entries, 2, 0)
	if len(got) != 1 || got[0] != "old" {
		t.Errorf("expected [old], got %v", got)
	}

	got = victims(entries, 1, 0)
	if len(got) != 2 || got[0] != "old" || got[1] != "mid" {
		t.Errorf("expected [old mid], got %v", got)
	}
}

func TestVictimsTieBreakByCreation(t *testing.T) {
	now := time.Now()
	access := now.Add(-time.Hour)
	entries := []*Entry{
		accessedAt("younger", 10, now.Add(-time.Hour), access),
		accessedAt("older", 10, now.Add(-3*time.Hour), access),
	}

	got := victims(entries, 1, 0)
	if len(got) != 1 || got[0] != "older" {
		t.Errorf("tie should evict the older creation first, got %v", got)
	}
}

func TestVictimsSizeLimit(t *testing.T) {
	now := time.Now()
	entries := []*Entry{
		accessedAt("a", 400, now, now.Add(-3*time.Minute)),
		accessedAt("b", 400, now, now.Add(-2*time.Minute)),
		accessedAt("c", 400, now, now.Add(-time.Minute)),
	}

	// 1200 bytes total, limit 900: evicting the single least recently
	// used entry is enough.
	got := victims(entries, 0, 900)
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("expected [a], got %v", got)
	}
}

func TestVictimsBothLimits(t *testing.T) {
	now := time.Now()
	entries := []*Entry{
		accessedAt("a", 500, now, now.Add(-3*time.Minute)),
		accessedAt("b", 500, now, now.Add(-2*time.Minute)),
		accessedAt("c", 300, now, now.Add(-time.Minute)),
	}

	// 1300 bytes total: the count limit alone would evict one entry,
	// but the size limit of 600 needs two gone.
	got := victims(entries, 2, 600)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

package cache

import (
	"testing"
	"time"
)

func newEntry(fp Fingerprint, size int64, paths ...string) *Entry {
	e := &Entry{
		Fingerprint: fp,
		Result:      []byte("{}"),
		Paths:       paths,
		SourceHash:  "h",
		CreatedAt:   time.Now(),
		TTL:         time.Hour,
		SizeBytes:   size,
	}
	e.touch(e.CreatedAt)
	return e
}

func TestStorePutGetRemove(t *testing.T) {
	s := newStore()

	if got := s.get("missing", time.Now()); got != nil {
		t.Error("get on unknown key should return nil")
	}

	s.put(newEntry("a", 10, "/x"))
	if s.count() != 1 || s.totalSize() != 10 {
		t.Errorf("count=%d size=%d after put", s.count(), s.totalSize())
	}

	if e := s.get("a", time.Now()); e == nil {
		t.Fatal("expected entry")
	}

	if !s.remove("a") {
		t.Error("remove should report true for present key")
	}
	if s.remove("a") {
		t.Error("remove should report false for absent key")
	}
	if s.count() != 0 || s.totalSize() != 0 {
		t.Errorf("count=%d size=%d after remove", s.count(), s.totalSize())
	}
}

func TestStoreReplaceIsWholeEntrySwap(t *testing.T) {
	s := newStore()
	s.put(newEntry("a", 10, "/x"))
	s.put(newEntry("a", 30, "/y"))

	if s.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.count())
	}
	if s.totalSize() != 30 {
		t.Errorf("size should reflect replacement, got %d", s.totalSize())
	}
	// The old path mapping must be gone.
	if n := s.removeByPath("/x"); n != 0 {
		t.Errorf("stale path index entry survived replacement: %d", n)
	}
	if n := s.removeByPath("/y"); n != 1 {
		t.Errorf("expected 1 removal via new path, got %d", n)
	}
}

func TestStoreGetBumpsAccessTime(t *testing.T) {
	s := newStore()
	e := newEntry("a", 10, "/x")
	s.put(e)

	later := time.Now().Add(time.Hour)
	s.get("a", later)
	if !e.LastAccessed().Equal(later) {
		t.Errorf("expected access time %v, got %v", later, e.LastAccessed())
	}
}

func TestStoreRemoveByPath(t *testing.T) {
	s := newStore()
	s.put(newEntry("a", 1, "/shared", "/only-a"))
	s.put(newEntry("b", 1, "/shared"))
	s.put(newEntry("c", 1, "/other"))

	if n := s.removeByPath("/shared"); n != 2 {
		t.Fatalf("expected 2 removals, got %d", n)
	}
	if s.count() != 1 {
		t.Errorf("expected 1 surviving entry, got %d", s.count())
	}
	if s.get("c", time.Now()) == nil {
		t.Error("unrelated entry should survive")
	}
}

func TestStoreRemoveWhere(t *testing.T) {
	s := newStore()
	s.put(newEntry("a", 5, "/x"))
	s.put(newEntry("b", 15, "/y"))

	n := s.removeWhere(func(e *Entry) bool { return e.SizeBytes > 10 })
	if n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if s.get("a", time.Now()) == nil {
		t.Error("non-matching entry should survive")
	}
}

func TestStoreClear(t *testing.T) {
	s := newStore()
	s.put(newEntry("a", 1, "/x"))
	s.put(newEntry("b", 1, "/y"))

	if n := s.clear(); n != 2 {
		t.Errorf("expected clear to report 2, got %d", n)
	}
	if n := s.clear(); n != 0 {
		t.Errorf("second clear should report 0, got %d", n)
	}
	if s.count() != 0 || s.totalSize() != 0 {
		t.Error("store not empty after clear")
	}
}

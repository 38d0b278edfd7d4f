package trash

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestTrash(t *testing.T) *Trash {
	t.Helper()
	return &Trash{dir: t.TempDir()}
}

func TestMove(t *testing.T) {
	tr := newTestTrash(t)
	src := filepath.Join(t.TempDir(), "junk.tmp")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest, err := tr.Move(src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone")
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "data" {
		t.Errorf("content changed: %s", data)
	}
}

func TestMoveCollision(t *testing.T) {
	tr := newTestTrash(t)
	srcDir := t.TempDir()

	var dests []string
	for i := 0; i < 2; i++ {
		src := filepath.Join(srcDir, "same.tmp")
		if err := os.WriteFile(src, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		dest, err := tr.Move(src)
		if err != nil {
			t.Fatal(err)
		}
		dests = append(dests, dest)
	}

	if dests[0] == dests[1] {
		t.Error("collision should produce distinct destinations")
	}
	for _, d := range dests {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("trashed file missing: %v", err)
		}
	}
}

func TestMoveMissingSource(t *testing.T) {
	tr := newTestTrash(t)
	if _, err := tr.Move(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing source")
	}
}

package tempfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireUnique(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)

	in := m.Acquire(KindInput, ".png")
	mid := m.Acquire(KindIntermediate, ".pbm")
	mid2 := m.Acquire(KindIntermediate, ".pbm")
	out := m.Acquire(KindOutput, ".svg")

	seen := map[string]bool{}
	for _, p := range []string{in, mid, mid2, out} {
		if seen[p] {
			t.Errorf("duplicate path %s", p)
		}
		seen[p] = true
		if filepath.Dir(p) != dir {
			t.Errorf("path %s not rooted in %s", p, dir)
		}
		if !strings.Contains(filepath.Base(p), m.ID()) {
			t.Errorf("path %s missing request id", p)
		}
	}
	if len(m.Artifacts()) != 4 {
		t.Errorf("Artifacts() = %d, want 4", len(m.Artifacts()))
	}
}

func TestManagersDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	a, b := New(dir), New(dir)
	if a.ID() == b.ID() {
		t.Fatal("managers share an id")
	}
	if a.Acquire(KindInput, ".png") == b.Acquire(KindInput, ".png") {
		t.Error("managers produced the same path")
	}
}

func TestReleaseAll(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)

	written := m.Acquire(KindInput, ".png")
	if err := os.WriteFile(written, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	_ = m.Acquire(KindOutput, ".svg") // never created

	m.ReleaseAll()
	m.ReleaseAll() // idempotent

	if _, err := os.Stat(written); !os.IsNotExist(err) {
		t.Errorf("file %s still exists", written)
	}
	if len(m.Artifacts()) != 2 {
		t.Errorf("Artifacts() = %d after ReleaseAll, want 2", len(m.Artifacts()))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("scratch dir not empty: %v", entries)
	}
}

func TestNewDefaultsToTempDir(t *testing.T) {
	m := New("")
	if got := filepath.Dir(m.Acquire(KindInput, ".png")); got != filepath.Clean(os.TempDir()) {
		t.Errorf("dir = %s, want %s", got, os.TempDir())
	}
}

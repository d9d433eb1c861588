// Package tempfile allocates per-request scratch paths and removes them.
//
// A Manager is created for exactly one conversion. Every path it hands out
// embeds the manager's random id, so concurrent requests sharing a scratch
// directory never collide. ReleaseAll deletes everything acquired so far;
// it is safe to call more than once and never fails.
package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Kind classifies a scratch artifact.
type Kind string

// Artifact kinds.
const (
	KindInput        Kind = "input"
	KindIntermediate Kind = "intermediate"
	KindOutput       Kind = "output"
)

// Artifact is one scratch file owned by a Manager.
type Artifact struct {
	Path string
	Kind Kind
}

// Manager owns the scratch files of a single request.
type Manager struct {
	dir string
	id  string

	mu        sync.Mutex
	artifacts []Artifact
	released  bool
}

// New returns a Manager rooted at dir. An empty dir selects os.TempDir().
func New(dir string) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Manager{dir: dir, id: uuid.NewString()}
}

// ID returns the random identifier embedded in every path.
func (m *Manager) ID() string { return m.id }

// Acquire reserves a path for an artifact of the given kind. The file is
// not created; the caller (or the external tool) writes it. ext includes
// the leading dot.
func (m *Manager) Acquire(kind Kind, ext string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, a := range m.artifacts {
		if a.Kind == kind {
			n++
		}
	}
	name := fmt.Sprintf("svgit-%s-%s%s", m.id, kind, ext)
	if n > 0 {
		name = fmt.Sprintf("svgit-%s-%s-%d%s", m.id, kind, n, ext)
	}
	path := filepath.Join(m.dir, name)
	m.artifacts = append(m.artifacts, Artifact{Path: path, Kind: kind})
	return path
}

// Artifacts returns a copy of the paths acquired so far.
func (m *Manager) Artifacts() []Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Artifact(nil), m.artifacts...)
}

// ReleaseAll removes every acquired path. Missing files and removal errors
// are ignored. Calls after the first are no-ops.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return
	}
	m.released = true
	for _, a := range m.artifacts {
		_ = os.Remove(a.Path)
	}
}

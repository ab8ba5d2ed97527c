// Package output mirrors text artifacts to files so they can be picked up
// from disk as well as from the returned result.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonathan/job-hunter/internal/types"
)

// DefaultDir is the directory text artifacts are written to
const DefaultDir = "output"

// fileNames maps text artifact kinds to their mirror file
var fileNames = map[types.ArtifactKind]string{
	types.KindResumeDraft:     "rewritten_resume.md",
	types.KindCompanyResearch: "company_research.md",
	types.KindInterviewPrep:   "interview_prep.md",
}

// FileName returns the mirror file name for a text kind.
func FileName(kind types.ArtifactKind) (string, bool) {
	name, ok := fileNames[kind]
	return name, ok
}

// Mirror writes text artifacts into a directory, overwriting earlier runs.
type Mirror struct {
	dir string
	mu  sync.Mutex
}

// NewMirror creates a mirror rooted at dir. An empty dir means DefaultDir.
func NewMirror(dir string) *Mirror {
	if dir == "" {
		dir = DefaultDir
	}
	return &Mirror{dir: dir}
}

// Dir returns the directory files are written to.
func (m *Mirror) Dir() string {
	return m.dir
}

// Save writes text to the file for kind. Concurrent runs write whole files
// one at a time; the last writer wins.
func (m *Mirror) Save(kind types.ArtifactKind, text string) error {
	name, ok := fileNames[kind]
	if !ok {
		return fmt.Errorf("artifact kind %s is not mirrored", kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", m.dir, err)
	}
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

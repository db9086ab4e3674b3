package pullengine

import (
	"os"
	"path/filepath"
	"time"

	"github.com/eykd/outlinesync/internal/model"
)

// osIO implements IO against the real filesystem rooted at root.
type osIO struct {
	root string
}

// NewOSIO returns the default IO implementation, rooted at root.
func NewOSIO(root string) IO {
	return &osIO{root: root}
}

func (o *osIO) abs(relPath string) string {
	return filepath.Join(o.root, filepath.FromSlash(relPath))
}

func (o *osIO) ReadFile(relPath string) ([]byte, error) {
	data, err := os.ReadFile(o.abs(relPath))
	if err != nil {
		return nil, &model.IOError{Path: relPath, Err: err}
	}
	return data, nil
}

func (o *osIO) WriteFile(relPath string, content []byte) error {
	if err := os.WriteFile(o.abs(relPath), content, 0644); err != nil {
		return &model.IOError{Path: relPath, Err: err}
	}
	return nil
}

func (o *osIO) SetMTime(relPath string, t time.Time) error {
	if err := os.Chtimes(o.abs(relPath), t, t); err != nil {
		return &model.IOError{Path: relPath, Err: err}
	}
	return nil
}

func (o *osIO) Remove(relPath string) error {
	if err := os.Remove(o.abs(relPath)); err != nil {
		return &model.IOError{Path: relPath, Err: err}
	}
	return nil
}

func (o *osIO) Rename(oldRelPath, newRelPath string) error {
	if err := os.Rename(o.abs(oldRelPath), o.abs(newRelPath)); err != nil {
		return &model.IOError{Path: oldRelPath, Err: err}
	}
	return nil
}

func (o *osIO) MkdirAll(relPath string) error {
	if relPath == "." || relPath == "" {
		return nil
	}
	if err := os.MkdirAll(o.abs(relPath), 0755); err != nil {
		return &model.IOError{Path: relPath, Err: err}
	}
	return nil
}

// RemoveEmptyDirs removes startDir and each empty ancestor up to (but not
// including) the sync root, matching spec.md §4.9.4's cleanup rule.
func (o *osIO) RemoveEmptyDirs(startDir string) error {
	dir := startDir
	for dir != "." && dir != "" && dir != "/" {
		abs := o.abs(dir)
		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(abs); err != nil {
			return &model.IOError{Path: dir, Err: err}
		}
		dir = filepath.ToSlash(filepath.Dir(dir))
	}
	return nil
}

// Package convert implements the structural rewrite between a standalone
// file and a folder-with-index-file that a document's parenthood change
// requires on disk.
package convert

import (
	"os"
	"path/filepath"

	"github.com/eykd/outlinesync/internal/frontmatter"
	"github.com/eykd/outlinesync/internal/model"
	"github.com/eykd/outlinesync/internal/pathmap"
)

// Promote turns the standalone file at oldPath (root-relative, POSIX
// separators) into folderName/README.md, rewriting its front-matter with
// docID. It returns the new relative path.
func Promote(root, oldPath, title, docID string) (string, error) {
	dir := filepath.Dir(filepath.FromSlash(oldPath))
	folderName := pathmap.Sanitize(title)
	newDir := filepath.Join(dir, folderName)
	newRelDir := filepath.ToSlash(newDir)
	newRelPath := newRelDir + "/" + model.IndexFilename

	absOld := filepath.Join(root, filepath.FromSlash(oldPath))
	absNewDir := filepath.Join(root, newDir)
	absNew := filepath.Join(absNewDir, model.IndexFilename)

	if err := os.MkdirAll(absNewDir, 0755); err != nil {
		return "", &model.IOError{Path: absNewDir, Err: err}
	}

	content, err := os.ReadFile(absOld)
	if err != nil {
		return "", &model.IOError{Path: absOld, Err: err}
	}
	fm, body := frontmatter.Parse(content)
	fm = frontmatter.WithOutlineID(fm, docID)
	rewritten := frontmatter.Serialize(fm, body)

	if err := os.WriteFile(absNew, rewritten, 0644); err != nil {
		return "", &model.IOError{Path: absNew, Err: err}
	}
	if err := os.Remove(absOld); err != nil {
		return "", &model.IOError{Path: absOld, Err: err}
	}
	return newRelPath, nil
}

// Demote turns folderPath/README.md back into a standalone file
// folderPath.md and removes the now-empty folder. It refuses — returning
// ok=false rather than an error — when the folder contains anything other
// than the index file, since this conversion must never be destructive.
func Demote(root, indexRelPath string) (newRelPath string, ok bool, err error) {
	absIndex := filepath.Join(root, filepath.FromSlash(indexRelPath))
	dir := filepath.Dir(absIndex)

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		return "", false, &model.IOError{Path: dir, Err: readErr}
	}
	for _, e := range entries {
		if e.Name() != model.IndexFilename {
			return "", false, nil
		}
	}

	newAbs := dir + ".md"
	if err := os.Rename(absIndex, newAbs); err != nil {
		return "", false, &model.IOError{Path: absIndex, Err: err}
	}
	if err := os.Remove(dir); err != nil {
		return "", false, &model.IOError{Path: dir, Err: err}
	}

	rel, relErr := filepath.Rel(root, newAbs)
	if relErr != nil {
		return "", false, &model.IOError{Path: newAbs, Err: relErr}
	}
	return filepath.ToSlash(rel), true, nil
}

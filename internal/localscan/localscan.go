// Package localscan walks the sync root and builds the current LocalFile
// inventory the change detector compares against sidecar state.
package localscan

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eykd/outlinesync/internal/frontmatter"
	"github.com/eykd/outlinesync/internal/model"
)

// Scan walks root recursively, reading every ".md" file other than the
// sidecar itself, and returns a map keyed by POSIX-style relative path. A
// failure to walk the root at all is fatal (IOError); a failure to read one
// file is reported to onFileError and that file is skipped, matching the
// teacher's per-operation-vs-fatal split for filesystem errors.
func Scan(root string, onFileError func(path string, err error)) (map[string]model.LocalFile, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, &model.IOError{Path: root, Err: err}
	}

	out := map[string]model.LocalFile{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &model.IOError{Path: path, Err: err}
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return &model.IOError{Path: path, Err: relErr}
		}
		rel = filepath.ToSlash(rel)
		if rel == model.SidecarFilename || hasDotComponent(rel) {
			return nil
		}
		if !strings.HasSuffix(rel, ".md") {
			return nil
		}

		lf, err := scanOne(path, rel, d)
		if err != nil {
			if onFileError != nil {
				onFileError(rel, err)
			}
			return nil
		}
		out[rel] = lf
		return nil
	})
	if walkErr != nil {
		if ioErr, ok := walkErr.(*model.IOError); ok {
			return nil, ioErr
		}
		return nil, &model.IOError{Path: root, Err: walkErr}
	}
	return out, nil
}

// hasDotComponent reports whether any component of a POSIX-style relative
// path starts with '.'. The SkipDir branch in Scan already keeps the walk
// from descending into a hidden directory; this catches a hidden file
// directly (".notes.md") that SkipDir never sees.
func hasDotComponent(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func scanOne(path, rel string, d fs.DirEntry) (model.LocalFile, error) {
	info, err := d.Info()
	if err != nil {
		return model.LocalFile{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return model.LocalFile{}, err
	}

	fm, _ := frontmatter.Parse(content)
	outlineID, hasID := fm.Get(frontmatter.OutlineIDKey)

	sum := sha256.Sum256(content)

	return model.LocalFile{
		RelPath:        rel,
		MTime:          info.ModTime(),
		Size:           info.Size(),
		ContentHash:    hex.EncodeToString(sum[:]),
		OutlineID:      outlineID,
		HasFrontMatter: fm.Len() > 0 || hasID,
		IsIndex:        filepath.Base(rel) == model.IndexFilename,
	}, nil
}

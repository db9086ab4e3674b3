// Package pullengine applies a remote ChangeSet to the local file tree,
// including the structural parent<->folder conversions and the
// staleness-guarded update path spec.md §4.9 describes.
package pullengine

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/eykd/outlinesync/internal/convert"
	"github.com/eykd/outlinesync/internal/frontmatter"
	"github.com/eykd/outlinesync/internal/model"
	"github.com/eykd/outlinesync/internal/pathmap"
	"github.com/eykd/outlinesync/internal/textclean"
)

// IO is the filesystem surface PullEngine needs, kept narrow and
// dependency-injected so tests never touch a real disk.
type IO interface {
	ReadFile(relPath string) ([]byte, error)
	WriteFile(relPath string, content []byte) error
	SetMTime(relPath string, t time.Time) error
	Remove(relPath string) error
	Rename(oldRelPath, newRelPath string) error
	MkdirAll(relPath string) error
	RemoveEmptyDirs(startDir string) error
}

// Engine applies remote deltas to disk.
type Engine struct {
	Root        string
	Hierarchy   *model.Hierarchy
	PrevMapping []model.DocumentMappingEntry
	LocalFiles  map[string]model.LocalFile
	IO          IO
	Logf        func(format string, args ...any)
}

// Outcome reports the mapping rows PullEngine produced.
type Outcome struct {
	Updated []model.DocumentMappingEntry
	Removed []string // ids whose mapping row should be dropped
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
	}
}

// Run executes promotions, then deleted docs, then demotions, then new
// docs, then updated docs, in that order (spec.md §4.7's
// promotions-before-creation, demotions-after-deletion-before-creation
// rule).
func (e *Engine) Run(cs model.RemoteChangeSet) Outcome {
	var out Outcome

	promotions, demotions := e.planConversions()
	e.runPromotions(promotions, &out)

	for _, d := range cs.DeletedDocs {
		e.deleteDoc(d)
		out.Removed = append(out.Removed, d.ID)
	}

	e.runDemotions(demotions, &out)

	assignment := pathmap.Assign(e.Hierarchy)

	for _, d := range cs.NewDocs {
		if entry, ok := e.createNew(d, assignment); ok {
			out.Updated = append(out.Updated, entry)
		}
	}
	for _, d := range cs.UpdatedDocs {
		if entry, ok := e.update(d, assignment); ok {
			out.Updated = append(out.Updated, entry)
		}
	}

	return out
}

type conversion struct {
	entry model.DocumentMappingEntry
}

// planConversions implements §4.7's triggers: a previously-file mapping
// row whose doc is now a parent is promoted; a previously-folder row
// whose doc is gone or no longer a parent is demoted.
func (e *Engine) planConversions() (promote, demote []conversion) {
	for _, m := range e.PrevMapping {
		if !m.IsFolder && e.Hierarchy.IsParent(m.ID) {
			promote = append(promote, conversion{entry: m})
			continue
		}
		if m.IsFolder {
			entry := e.Hierarchy.Entry(m.ID)
			if entry == nil || !entry.IsParent {
				demote = append(demote, conversion{entry: m})
			}
		}
	}
	return promote, demote
}

func (e *Engine) runPromotions(cs []conversion, out *Outcome) {
	for _, c := range cs {
		entry := e.Hierarchy.Entry(c.entry.ID)
		title := c.entry.Title
		if entry != nil {
			title = entry.Doc.Title
		}
		newPath, err := convert.Promote(e.Root, c.entry.LocalPath, title, c.entry.ID)
		if err != nil {
			e.logf("pull: promote %s: %v", c.entry.LocalPath, err)
			continue
		}
		updated := c.entry
		updated.LocalPath = newPath
		updated.IsFolder = true
		out.Updated = append(out.Updated, updated)
	}
}

func (e *Engine) runDemotions(cs []conversion, out *Outcome) {
	for _, c := range cs {
		newPath, ok, err := convert.Demote(e.Root, c.entry.LocalPath)
		if err != nil {
			e.logf("pull: demote %s: %v", c.entry.LocalPath, err)
			continue
		}
		if !ok {
			e.logf("pull: skipped demoting %s: folder contains extra files", c.entry.LocalPath)
			continue
		}
		updated := c.entry
		updated.LocalPath = newPath
		updated.IsFolder = false
		out.Updated = append(out.Updated, updated)
	}
}

func (e *Engine) createNew(d model.RemoteDoc, assignment model.PathAssignment) (model.DocumentMappingEntry, bool) {
	relPath, ok := assignment[d.ID]
	if !ok {
		e.logf("pull: create %s: no path assignment computed", d.ID)
		return model.DocumentMappingEntry{}, false
	}
	relPath = e.avoidCollision(relPath)

	if err := e.IO.MkdirAll(path.Dir(relPath)); err != nil {
		e.logf("pull: create %s: %v", relPath, err)
		return model.DocumentMappingEntry{}, false
	}

	fm := frontmatter.New()
	id := d.ID
	if d.ShortID != "" {
		id = d.ShortID
	}
	fm.Set(frontmatter.OutlineIDKey, id)
	content := frontmatter.Serialize(fm, []byte(textclean.Normalize(d.Text)))

	if err := e.IO.WriteFile(relPath, content); err != nil {
		e.logf("pull: create %s: %v", relPath, err)
		return model.DocumentMappingEntry{}, false
	}
	if err := e.IO.SetMTime(relPath, d.UpdatedAt); err != nil {
		e.logf("pull: setting mtime for %s: %v", relPath, err)
	}

	return model.DocumentMappingEntry{
		ID:        d.ID,
		ShortID:   d.ShortID,
		Title:     d.Title,
		ParentID:  d.ParentID,
		UpdatedAt: d.UpdatedAt,
		LocalPath: relPath,
		IsFolder:  e.Hierarchy.IsParent(d.ID),
	}, true
}

// avoidCollision applies the same "-2", "-3" suffix rule as PathMapper
// when the assigned path already exists as an unrelated file on disk.
func (e *Engine) avoidCollision(relPath string) string {
	if _, exists := e.LocalFiles[relPath]; !exists {
		return relPath
	}
	ext := path.Ext(relPath)
	base := strings.TrimSuffix(relPath, ext)
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n) + ext
		if _, exists := e.LocalFiles[candidate]; !exists {
			return candidate
		}
	}
}

func (e *Engine) update(d model.RemoteDoc, assignment model.PathAssignment) (model.DocumentMappingEntry, bool) {
	currentPath, lf, found := e.findLocal(d)
	if !found {
		return e.createNew(d, assignment)
	}

	if lf.MTime.After(d.UpdatedAt) {
		return model.DocumentMappingEntry{}, false
	}

	newPath, hasAssignment := assignment[d.ID]
	if !hasAssignment {
		newPath = currentPath
	}

	if newPath != currentPath {
		if err := e.IO.MkdirAll(path.Dir(newPath)); err != nil {
			e.logf("pull: update %s: %v", currentPath, err)
			return model.DocumentMappingEntry{}, false
		}
		if err := e.IO.Rename(currentPath, newPath); err != nil {
			e.logf("pull: moving %s -> %s: %v", currentPath, newPath, err)
			return model.DocumentMappingEntry{}, false
		}
		if err := e.IO.RemoveEmptyDirs(path.Dir(currentPath)); err != nil {
			e.logf("pull: cleaning up %s: %v", path.Dir(currentPath), err)
		}
	}

	content, err := e.IO.ReadFile(newPath)
	if err != nil {
		e.logf("pull: reading %s: %v", newPath, err)
		return model.DocumentMappingEntry{}, false
	}
	fm, _ := frontmatter.Parse(content)
	id := d.ID
	if d.ShortID != "" {
		id = d.ShortID
	}
	fm = frontmatter.WithOutlineID(fm, id)
	newContent := frontmatter.Serialize(fm, []byte(textclean.Normalize(d.Text)))

	if err := e.IO.WriteFile(newPath, newContent); err != nil {
		e.logf("pull: writing %s: %v", newPath, err)
		return model.DocumentMappingEntry{}, false
	}
	if err := e.IO.SetMTime(newPath, d.UpdatedAt); err != nil {
		e.logf("pull: setting mtime for %s: %v", newPath, err)
	}

	return model.DocumentMappingEntry{
		ID:        d.ID,
		ShortID:   d.ShortID,
		Title:     d.Title,
		ParentID:  d.ParentID,
		UpdatedAt: d.UpdatedAt,
		LocalPath: newPath,
		IsFolder:  e.Hierarchy.IsParent(d.ID),
	}, true
}

// findLocal matches a remote doc to its on-disk file by comparing its id
// and shortId against the outline ids in the live local scan, per spec.md
// §4.9.3's "match against both id and shortId" rule; failing that, it
// looks up the previous mapping by id only.
func (e *Engine) findLocal(d model.RemoteDoc) (string, model.LocalFile, bool) {
	for relPath, lf := range e.LocalFiles {
		if lf.OutlineID == d.ID || (d.ShortID != "" && lf.OutlineID == d.ShortID) {
			return relPath, lf, true
		}
	}
	for _, m := range e.PrevMapping {
		if m.ID == d.ID {
			if lf, ok := e.LocalFiles[m.LocalPath]; ok {
				return m.LocalPath, lf, true
			}
		}
	}
	return "", model.LocalFile{}, false
}

func (e *Engine) deleteDoc(m model.DocumentMappingEntry) {
	if err := e.IO.Remove(m.LocalPath); err != nil {
		e.logf("pull: delete %s: %v", m.LocalPath, err)
		return
	}
	if err := e.IO.RemoveEmptyDirs(path.Dir(m.LocalPath)); err != nil {
		e.logf("pull: cleaning up after delete of %s: %v", m.LocalPath, err)
	}
}

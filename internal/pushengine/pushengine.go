// Package pushengine applies a local ChangeSet to the remote collection
// through a model.RemoteGateway, observing the staleness guard and the
// creates-then-updates-then-moves-then-deletes ordering spec.md §5 requires.
package pushengine

import (
	"context"
	"crypto/sha256"
	"path"
	"strings"
	"time"

	"github.com/eykd/outlinesync/internal/frontmatter"
	"github.com/eykd/outlinesync/internal/model"
	"github.com/eykd/outlinesync/internal/pathmap"
)

// StalenessTolerance is the clock-skew allowance for deciding whether a
// remote update already reflects a local edit.
const StalenessTolerance = 5 * time.Second

// ReadFile abstracts local file access so tests can run without touching
// disk, mirroring the dependency-injected IO interfaces the rest of this
// codebase uses for its commands.
type ReadFile func(relPath string) ([]byte, error)

// WriteFile persists a local file's full bytes (used to rewrite front
// matter with a server-assigned id after create).
type WriteFile func(relPath string, content []byte) error

// Engine applies local deltas to the remote collection.
type Engine struct {
	Gateway      model.RemoteGateway
	CollectionID string
	Hierarchy    *model.Hierarchy
	PrevMapping  []model.DocumentMappingEntry
	Read         ReadFile
	Write        WriteFile
	Logf         func(format string, args ...any)
}

// Outcome reports what Run did so the Orchestrator can fold it into the
// persisted SyncState.
type Outcome struct {
	Updated []model.DocumentMappingEntry
	Removed []string // ids whose mapping row should be dropped
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
	}
}

// Run executes every category of cs in the required order and returns the
// mapping rows that changed. Per-operation failures (TransportError,
// IOError) are logged and skipped; they never abort the run.
func (e *Engine) Run(ctx context.Context, cs model.LocalChangeSet) Outcome {
	var out Outcome

	for _, lf := range cs.NewFiles {
		if entry, ok := e.create(ctx, lf); ok {
			out.Updated = append(out.Updated, entry)
		}
	}
	for _, lf := range cs.ModifiedFiles {
		if entry, ok := e.update(ctx, lf); ok {
			out.Updated = append(out.Updated, entry)
		}
	}
	for _, mv := range cs.MovedFiles {
		if entry, ok := e.move(ctx, mv); ok {
			out.Updated = append(out.Updated, entry)
		}
	}
	for _, lf := range cs.DeletedFiles {
		if id, ok := e.delete(ctx, lf); ok {
			out.Removed = append(out.Removed, id)
		}
	}

	return out
}

// canonicalID resolves a front-matter id that may be a shortId into the
// canonical id, since local files may reference either form (spec.md §9
// "two kinds of id").
func (e *Engine) canonicalID(idOrShort string) string {
	for _, m := range e.PrevMapping {
		if m.ShortID != "" && m.ShortID == idOrShort {
			return m.ID
		}
	}
	return idOrShort
}

// resolveParentID implements §4.8.1's parent-resolution rule: read the
// containing directory's index file front matter; if absent, fall back to
// the previous mapping's record for that directory; otherwise root (nil).
func (e *Engine) resolveParentID(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return ""
	}
	indexPath := dir + "/" + model.IndexFilename

	if content, err := e.Read(indexPath); err == nil {
		fm, _ := frontmatter.Parse(content)
		if id, ok := fm.Get(frontmatter.OutlineIDKey); ok && id != "" {
			return e.canonicalID(id)
		}
	}

	for _, m := range e.PrevMapping {
		if m.LocalPath == indexPath {
			return m.ID
		}
	}
	return ""
}

func (e *Engine) create(ctx context.Context, lf model.LocalFile) (model.DocumentMappingEntry, bool) {
	title := pathmap.TitleFromPath(lf.RelPath, lf.IsIndex)
	parentID := e.resolveParentID(lf.RelPath)

	content, err := e.Read(lf.RelPath)
	if err != nil {
		e.logf("push: reading %s: %v", lf.RelPath, &model.IOError{Path: lf.RelPath, Err: err})
		return model.DocumentMappingEntry{}, false
	}
	_, body := frontmatter.Parse(content)

	doc, err := e.Gateway.CreateDocument(ctx, e.CollectionID, title, string(body), parentID)
	if err != nil {
		e.logf("push: create %s: %v", lf.RelPath, &model.TransportError{Op: "createDocument", Err: err})
		return model.DocumentMappingEntry{}, false
	}

	idToWrite := doc.ID
	if doc.ShortID != "" {
		idToWrite = doc.ShortID
	}
	fm, rest := frontmatter.Parse(content)
	fm = frontmatter.WithOutlineID(fm, idToWrite)
	if err := e.Write(lf.RelPath, frontmatter.Serialize(fm, rest)); err != nil {
		e.logf("push: rewriting front matter for %s: %v", lf.RelPath, &model.IOError{Path: lf.RelPath, Err: err})
	}

	return model.DocumentMappingEntry{
		ID:        doc.ID,
		ShortID:   doc.ShortID,
		Title:     title,
		ParentID:  parentID,
		UpdatedAt: doc.UpdatedAt,
		LocalPath: lf.RelPath,
		IsFolder:  lf.IsIndex,
	}, true
}

func (e *Engine) update(ctx context.Context, lf model.LocalFile) (model.DocumentMappingEntry, bool) {
	if lf.OutlineID == "" {
		return model.DocumentMappingEntry{}, false
	}
	id := e.canonicalID(lf.OutlineID)
	entry := e.Hierarchy.Entry(id)
	if entry == nil {
		e.logf("push: update %s: document %s no longer exists remotely", lf.RelPath, id)
		return model.DocumentMappingEntry{}, false
	}
	remote := entry.Doc

	content, err := e.Read(lf.RelPath)
	if err != nil {
		e.logf("push: reading %s: %v", lf.RelPath, &model.IOError{Path: lf.RelPath, Err: err})
		return model.DocumentMappingEntry{}, false
	}
	_, body := frontmatter.Parse(content)

	if remote.UpdatedAt.After(lf.MTime.Add(StalenessTolerance)) && bodyHashEqual(string(body), remote.Text) {
		return model.DocumentMappingEntry{}, false
	}

	title := pathmap.TitleFromPath(lf.RelPath, lf.IsIndex)
	bodyStr := string(body)
	doc, err := e.Gateway.UpdateDocument(ctx, id, &title, &bodyStr, nil)
	if err != nil {
		e.logf("push: update %s: %v", lf.RelPath, &model.TransportError{Op: "updateDocument", ID: id, Err: err})
		return model.DocumentMappingEntry{}, false
	}

	return model.DocumentMappingEntry{
		ID:        doc.ID,
		ShortID:   doc.ShortID,
		Title:     title,
		ParentID:  doc.ParentID,
		UpdatedAt: doc.UpdatedAt,
		LocalPath: lf.RelPath,
		IsFolder:  lf.IsIndex,
	}, true
}

func (e *Engine) move(ctx context.Context, mv model.MovedFile) (model.DocumentMappingEntry, bool) {
	id := e.canonicalID(mv.ID)
	isIndex := path.Base(mv.ToPath) == model.IndexFilename
	title := pathmap.TitleFromPath(mv.ToPath, isIndex)
	parentID := e.resolveParentID(mv.ToPath)

	doc, err := e.Gateway.UpdateDocument(ctx, id, &title, nil, &parentID)
	if err != nil {
		e.logf("push: move %s -> %s: %v", mv.FromPath, mv.ToPath, &model.TransportError{Op: "updateDocument", ID: id, Err: err})
		return model.DocumentMappingEntry{}, false
	}

	return model.DocumentMappingEntry{
		ID:        doc.ID,
		ShortID:   doc.ShortID,
		Title:     title,
		ParentID:  parentID,
		UpdatedAt: doc.UpdatedAt,
		LocalPath: mv.ToPath,
		IsFolder:  isIndex,
	}, true
}

// delete removes the remote document for a locally-deleted file and reports
// the canonical id whose mapping row should be dropped, so a stale row
// doesn't survive into the persisted state and get reclassified as a
// remote deletion on the next run.
func (e *Engine) delete(ctx context.Context, lf model.LocalFile) (string, bool) {
	if lf.OutlineID == "" {
		return "", false
	}
	id := e.canonicalID(lf.OutlineID)
	if err := e.Gateway.DeleteDocument(ctx, id); err != nil {
		e.logf("push: delete %s: %v", lf.RelPath, &model.TransportError{Op: "deleteDocument", ID: id, Err: err})
		return "", false
	}
	return id, true
}

func bodyHashEqual(local, remote string) bool {
	a := sha256.Sum256([]byte(strings.TrimSpace(local)))
	b := sha256.Sum256([]byte(strings.TrimSpace(remote)))
	return a == b
}

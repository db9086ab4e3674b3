// Package changes computes the three-way diff between the previous sidecar
// state and the current local scan and remote listing.
package changes

import (
	"github.com/eykd/outlinesync/internal/model"
)

// LocalDeltas computes the local-side ChangeSet fields. It implements the
// first-run rule: if prev is nil or the zero state (every field empty, as
// loaded from a missing sidecar), every category is empty regardless of
// what is currently on disk, since a missing sidecar
// means "state was lost," not "everything is new."
func LocalDeltas(prev *model.SyncState, current map[string]model.LocalFile) model.LocalChangeSet {
	if prev == nil || prev.IsZero() {
		return model.LocalChangeSet{}
	}

	prevByPath := make(map[string]model.LocalFile, len(prev.LocalFiles))
	for _, lf := range prev.LocalFiles {
		prevByPath[lf.RelPath] = lf
	}

	var out model.LocalChangeSet
	movedFrom := map[string]bool{}

	for path, cur := range current {
		old, existed := prevByPath[path]
		if !existed {
			if cur.OutlineID != "" {
				if fromPath, ok := findByOutlineID(prevByPath, cur.OutlineID); ok {
					out.MovedFiles = append(out.MovedFiles, model.MovedFile{
						ID:       cur.OutlineID,
						FromPath: fromPath,
						ToPath:   path,
					})
					movedFrom[fromPath] = true
					continue
				}
			}
			out.NewFiles = append(out.NewFiles, cur)
			continue
		}
		if cur.MTime.After(old.MTime) {
			out.ModifiedFiles = append(out.ModifiedFiles, cur)
			if cur.MTime.After(prev.LastSync) {
				out.PotentialConflicts = append(out.PotentialConflicts, cur)
			}
		}
	}

	for path, old := range prevByPath {
		if movedFrom[path] {
			continue
		}
		if _, stillPresent := current[path]; !stillPresent {
			out.DeletedFiles = append(out.DeletedFiles, old)
		}
	}

	return out
}

func findByOutlineID(prevByPath map[string]model.LocalFile, id string) (string, bool) {
	for path, lf := range prevByPath {
		if lf.OutlineID == id {
			return path, true
		}
	}
	return "", false
}

// RemoteDeltas computes the remote-side ChangeSet fields.
func RemoteDeltas(prev *model.SyncState, current []model.RemoteDoc) model.RemoteChangeSet {
	prevByID := make(map[string]model.DocumentMappingEntry, len(prev.DocumentMapping))
	for _, e := range prev.DocumentMapping {
		prevByID[e.ID] = e
	}

	var out model.RemoteChangeSet
	seen := map[string]bool{}

	for _, d := range current {
		seen[d.ID] = true
		old, existed := prevByID[d.ID]
		if !existed {
			out.NewDocs = append(out.NewDocs, d)
			continue
		}
		if d.UpdatedAt.After(prev.LastSync) {
			out.UpdatedDocs = append(out.UpdatedDocs, d)
		}
		_ = old
	}

	for id, e := range prevByID {
		if !seen[id] {
			out.DeletedDocs = append(out.DeletedDocs, e)
		}
	}

	return out
}

// Detect runs both sides and assembles the full ChangeSet.
func Detect(prev *model.SyncState, localCurrent map[string]model.LocalFile, remoteCurrent []model.RemoteDoc) model.ChangeSet {
	return model.ChangeSet{
		Local:  LocalDeltas(prev, localCurrent),
		Remote: RemoteDeltas(prev, remoteCurrent),
	}
}

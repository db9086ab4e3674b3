// Package conflict implements the divergent-edit detection policy that
// halts a run before any mutation when both sides touched the same
// document since the last sync.
package conflict

import (
	"time"

	"github.com/eykd/outlinesync/internal/frontmatter"
	"github.com/eykd/outlinesync/internal/model"
)

// SimultaneousWindow is the gap below which a modified-file/updated-doc
// pair is flagged even though it falls on the edge of the previous sync
// window.
const SimultaneousWindow = 300 * time.Second

// ReadFile abstracts local file access so Detect can attach the divergent
// local body to a conflict report without taking a hard dependency on the
// filesystem, mirroring the ReadFile/WriteFile injection the engines use.
type ReadFile func(relPath string) ([]byte, error)

// Detect compares the local and remote deltas and returns every conflict.
// Both categories from spec §4.6 are computed: BidirectionalEdit for any
// potentialConflict file whose id also appears among updatedDocs, and
// SimultaneousEdit for a merely-modified file within the 300s window. When
// read is non-nil, each conflict's LocalData/RemoteData are populated with
// the divergent bodies so the halted run leaves the user something to
// actually reconcile, not just a path and a timestamp; a read failure
// leaves LocalData empty rather than aborting detection.
func Detect(cs model.ChangeSet, read ReadFile) []model.Conflict {
	updatedByID := make(map[string]model.RemoteDoc, len(cs.Remote.UpdatedDocs))
	for _, d := range cs.Remote.UpdatedDocs {
		updatedByID[d.ID] = d
	}

	var out []model.Conflict

	for _, lf := range cs.Local.PotentialConflicts {
		if lf.OutlineID == "" {
			continue
		}
		if remote, ok := updatedByID[lf.OutlineID]; ok {
			out = append(out, model.Conflict{
				Kind:            model.BidirectionalEdit,
				Path:            lf.RelPath,
				ID:              lf.OutlineID,
				LocalMTime:      lf.MTime,
				RemoteUpdatedAt: remote.UpdatedAt,
				LocalData:       localBody(read, lf.RelPath),
				RemoteData:      remote.Text,
				Suggestion:      suggest(lf.MTime, remote.UpdatedAt),
			})
		}
	}

	potentialByPath := map[string]bool{}
	for _, lf := range cs.Local.PotentialConflicts {
		potentialByPath[lf.RelPath] = true
	}

	for _, lf := range cs.Local.ModifiedFiles {
		if potentialByPath[lf.RelPath] {
			// already reported as BidirectionalEdit above
			continue
		}
		if lf.OutlineID == "" {
			continue
		}
		remote, ok := updatedByID[lf.OutlineID]
		if !ok {
			continue
		}
		gap := lf.MTime.Sub(remote.UpdatedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap < SimultaneousWindow {
			out = append(out, model.Conflict{
				Kind:            model.SimultaneousEdit,
				Path:            lf.RelPath,
				ID:              lf.OutlineID,
				LocalMTime:      lf.MTime,
				RemoteUpdatedAt: remote.UpdatedAt,
				LocalData:       localBody(read, lf.RelPath),
				RemoteData:      remote.Text,
				Suggestion:      "manual review",
			})
		}
	}

	return out
}

// localBody reads relPath and strips its front matter, returning just the
// body a user would compare against the remote text. Returns "" if read is
// nil or the file can't be read — the conflict is still reported, just
// without the local side of the diff.
func localBody(read ReadFile, relPath string) string {
	if read == nil {
		return ""
	}
	content, err := read(relPath)
	if err != nil {
		return ""
	}
	_, body := frontmatter.Parse(content)
	return string(body)
}

// suggest derives a resolution hint from sign(localMtime - remoteUpdatedAt)
// when the gap exceeds the simultaneous-edit window; within the window the
// suggestion is always "manual review" since the two sides are too close
// in time to trust either clock.
func suggest(localMtime, remoteUpdatedAt time.Time) string {
	gap := localMtime.Sub(remoteUpdatedAt)
	if gap < 0 {
		gap = -gap
	}
	if gap < SimultaneousWindow {
		return "manual review"
	}
	if localMtime.After(remoteUpdatedAt) {
		return "local is newer; consider pushing"
	}
	return "remote is newer; consider pulling"
}

// Package model defines the shared domain types for outlinesync's
// reconciliation engine: the remote document model, the local file model,
// the derived hierarchy, the sidecar state schema, and the change/conflict
// vocabulary the rest of the engine operates on.
package model

import (
	"encoding/json"
	"time"
)

// IndexFilename is the fixed basename used for the on-disk representative
// of a parent document.
const IndexFilename = "README.md"

// SidecarFilename is the reserved filename for the sync state file under
// the sync root. It is never itself treated as a syncable document.
const SidecarFilename = ".outline"

// RemoteDoc is the unit of remote state: a titled document that may have
// children in the same collection.
type RemoteDoc struct {
	ID        string
	ShortID   string
	Title     string
	Text      string
	ParentID  string // empty means root
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasParent reports whether the document has a parent in the same collection.
func (d RemoteDoc) HasParent() bool {
	return d.ParentID != ""
}

// Collection is the top-level remote container that scopes a sync run.
type Collection struct {
	ID    string
	Name  string
	URLID string
}

// LocalFile is an on-disk text file under the sync root.
type LocalFile struct {
	RelPath        string    `json:"rel_path"` // POSIX separators, relative to sync root
	MTime          time.Time `json:"mtime"`
	Size           int64     `json:"size"`
	ContentHash    string    `json:"content_hash"` // hash of full file bytes
	OutlineID      string    `json:"outline_id"`   // id embedded in front matter; empty if never synced
	HasFrontMatter bool      `json:"has_front_matter"`
	IsIndex        bool      `json:"is_index"` // basename == model.IndexFilename
}

// HierarchyEntry is one node of the derived remote hierarchy.
type HierarchyEntry struct {
	Doc      RemoteDoc
	Children []string // child ids, in listing order
	Depth    int
	IsParent bool
}

// Hierarchy is a derived view of the remote listing, built fresh each run.
type Hierarchy struct {
	Entries map[string]*HierarchyEntry // keyed by RemoteDoc.ID
	Roots   []string                   // ids with no parent, in listing order
}

// Entry returns the hierarchy entry for id, or nil if absent.
func (h *Hierarchy) Entry(id string) *HierarchyEntry {
	if h == nil {
		return nil
	}
	return h.Entries[id]
}

// IsParent reports whether id has at least one child in the hierarchy.
func (h *Hierarchy) IsParent(id string) bool {
	e := h.Entry(id)
	return e != nil && e.IsParent
}

// PathAssignment is the mapping id -> relPath produced by the path mapper.
type PathAssignment map[string]string

// DocumentMappingEntry is one row of SyncState.DocumentMapping: the
// last-known correspondence between a remote id and a local path.
type DocumentMappingEntry struct {
	ID        string    `json:"id"`
	ShortID   string    `json:"short_id"`
	Title     string    `json:"title"`
	ParentID  string    `json:"parent_id"`
	UpdatedAt time.Time `json:"updated_at"`
	LocalPath string    `json:"local_path"`
	IsFolder  bool      `json:"is_folder"`
}

// SyncState is the sidecar state persisted at <root>/.outline.
type SyncState struct {
	LastSync         time.Time
	CollectionID     string
	DocumentMapping  []DocumentMappingEntry
	LocalFiles       []LocalFile
	// Extra holds any top-level sidecar fields this version of outlinesync
	// does not recognize, keyed by their original JSON name. StateStore
	// round-trips them verbatim so a newer schema version isn't clobbered
	// by an older binary.
	Extra map[string]json.RawMessage
}

// IsZero reports whether s represents the "no prior state" first-run case.
func (s *SyncState) IsZero() bool {
	return s == nil || (s.LastSync.IsZero() && s.CollectionID == "" &&
		len(s.DocumentMapping) == 0 && len(s.LocalFiles) == 0)
}

// MovedFile records a local rename detected by outline-id continuity.
type MovedFile struct {
	ID       string
	FromPath string
	ToPath   string
}

// LocalChangeSet holds the disjoint local-side delta categories.
type LocalChangeSet struct {
	NewFiles           []LocalFile
	ModifiedFiles      []LocalFile
	MovedFiles         []MovedFile
	DeletedFiles       []LocalFile
	PotentialConflicts []LocalFile
}

// RemoteChangeSet holds the disjoint remote-side delta categories.
type RemoteChangeSet struct {
	NewDocs     []RemoteDoc
	UpdatedDocs []RemoteDoc
	DeletedDocs []DocumentMappingEntry
}

// ChangeSet is the full three-way diff result for one run.
type ChangeSet struct {
	Local  LocalChangeSet
	Remote RemoteChangeSet
}

// ConflictKind classifies a Conflict.
type ConflictKind string

const (
	// BidirectionalEdit: local potentialConflict + remote updatedDoc, regardless of gap.
	BidirectionalEdit ConflictKind = "BidirectionalEdit"
	// SimultaneousEdit: local modifiedFile + remote updatedDoc within the 300s window.
	SimultaneousEdit ConflictKind = "SimultaneousEdit"
)

// Conflict is a single divergent-edit finding from Phase 3.
type Conflict struct {
	Kind            ConflictKind
	Path            string
	ID              string
	LocalMTime      time.Time
	RemoteUpdatedAt time.Time
	LocalData       string
	RemoteData      string
	Suggestion      string
}

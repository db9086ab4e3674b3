// Package orchestrator sequences the five-phase reconciliation run
// (Scan, Detect, Conflict, Execute, Persist) and owns its fatal-error
// semantics.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/eykd/outlinesync/internal/changes"
	"github.com/eykd/outlinesync/internal/conflict"
	"github.com/eykd/outlinesync/internal/localscan"
	"github.com/eykd/outlinesync/internal/model"
	"github.com/eykd/outlinesync/internal/pathmap"
	"github.com/eykd/outlinesync/internal/pullengine"
	"github.com/eykd/outlinesync/internal/pushengine"
	"github.com/eykd/outlinesync/internal/state"
)

// Orchestrator runs one full reconciliation.
type Orchestrator struct {
	Root         string
	CollectionID string
	Gateway      model.RemoteGateway
	Logf         func(format string, args ...any)
}

// Report summarizes what one run did, for the CLI to print.
type Report struct {
	Pulled    int
	Pushed    int
	Conflicts []model.Conflict
	Halted    bool
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// Run executes Scan, Detect, Conflict, Execute, Persist in order. A
// Phase-3 conflict or a Phase-1/2 fatal error both return without writing
// new state, so the next run re-attempts from the same baseline.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	store := state.New(o.Root)

	// Phase 1: Scan.
	prev, err := store.Load()
	if err != nil {
		return Report{}, err
	}

	localFiles, err := localscan.Scan(o.Root, func(path string, err error) {
		o.logf("scan: skipping %s: %v", path, err)
	})
	if err != nil {
		return Report{}, err
	}

	remoteDocs, err := o.Gateway.ListDocuments(ctx, o.CollectionID)
	if err != nil {
		return Report{}, &model.TransportError{Op: "listDocuments", Err: err}
	}

	hierarchy, err := pathmap.BuildHierarchy(remoteDocs)
	if err != nil {
		return Report{}, err
	}

	// Phase 2: Detect.
	cs := changes.Detect(prev, localFiles, remoteDocs)

	// Phase 3: Conflict.
	conflicts := conflict.Detect(cs, o.readFile)
	if len(conflicts) > 0 {
		o.logf("sync halted: %d conflict(s) require manual review", len(conflicts))
		return Report{Conflicts: conflicts, Halted: true}, nil
	}

	// Phase 4: Execute. PushEngine before PullEngine so locally-created
	// documents receive server-assigned ids before any pull-side path
	// assignment depends on them.
	pushOut := (&pushengine.Engine{
		Gateway:      o.Gateway,
		CollectionID: o.CollectionID,
		Hierarchy:    hierarchy,
		PrevMapping:  prev.DocumentMapping,
		Read:         o.readFile,
		Write:        o.writeFile,
		Logf:         o.Logf,
	}).Run(ctx, cs.Local)

	pullOut := (&pullengine.Engine{
		Root:        o.Root,
		Hierarchy:   hierarchy,
		PrevMapping: prev.DocumentMapping,
		LocalFiles:  localFiles,
		IO:          pullengine.NewOSIO(o.Root),
		Logf:        o.Logf,
	}).Run(cs.Remote)

	// Phase 5: Persist. Rescan the local tree so the persisted snapshot
	// reflects what Execute just wrote, not the Phase-1 snapshot.
	postFiles, err := localscan.Scan(o.Root, func(path string, err error) {
		o.logf("post-sync scan: skipping %s: %v", path, err)
	})
	if err != nil {
		return Report{}, err
	}

	next := buildNextState(prev, o.CollectionID, pushOut, pullOut, postFiles)
	if err := store.Save(next); err != nil {
		return Report{}, err
	}

	return Report{Pulled: len(pullOut.Updated), Pushed: len(pushOut.Updated)}, nil
}

func (o *Orchestrator) readFile(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(o.Root, filepath.FromSlash(relPath)))
}

func (o *Orchestrator) writeFile(relPath string, content []byte) error {
	return os.WriteFile(filepath.Join(o.Root, filepath.FromSlash(relPath)), content, 0644)
}

// buildNextState folds push and pull outcomes into a fresh SyncState: the
// new document mapping reflects every row either engine touched, plus
// every unaffected row carried over from prev; removed docs drop their row
// entirely.
func buildNextState(prev *model.SyncState, collectionID string, pushOut pushengine.Outcome, pullOut pullengine.Outcome, localFiles map[string]model.LocalFile) *model.SyncState {
	byID := make(map[string]model.DocumentMappingEntry, len(prev.DocumentMapping))
	for _, m := range prev.DocumentMapping {
		byID[m.ID] = m
	}
	for _, m := range pushOut.Updated {
		byID[m.ID] = m
	}
	for _, m := range pullOut.Updated {
		byID[m.ID] = m
	}
	for _, id := range pushOut.Removed {
		delete(byID, id)
	}
	for _, id := range pullOut.Removed {
		delete(byID, id)
	}

	mapping := make([]model.DocumentMappingEntry, 0, len(byID))
	for _, m := range byID {
		mapping = append(mapping, m)
	}

	files := make([]model.LocalFile, 0, len(localFiles))
	for _, lf := range localFiles {
		files = append(files, lf)
	}

	return &model.SyncState{
		LastSync:        time.Now(),
		CollectionID:    collectionID,
		DocumentMapping: mapping,
		LocalFiles:      files,
		Extra:           prev.Extra,
	}
}

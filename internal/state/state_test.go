package state_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eykd/outlinesync/internal/model"
	"github.com/eykd/outlinesync/internal/state"
)

func TestLoad_MissingFileIsZeroState(t *testing.T) {
	root := t.TempDir()
	st, err := state.New(root).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !st.IsZero() {
		t.Errorf("expected zero state, got %+v", st)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	root := t.TempDir()
	s := state.New(root)

	want := &model.SyncState{
		LastSync:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		CollectionID: "col-1",
		DocumentMapping: []model.DocumentMappingEntry{
			{ID: "a", Title: "Alpha", LocalPath: "Alpha.md"},
		},
		LocalFiles: []model.LocalFile{
			{RelPath: "Alpha.md", OutlineID: "a"},
		},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CollectionID != want.CollectionID {
		t.Errorf("collectionId = %q, want %q", got.CollectionID, want.CollectionID)
	}
	if !got.LastSync.Equal(want.LastSync) {
		t.Errorf("lastSync = %v, want %v", got.LastSync, want.LastSync)
	}
	if len(got.DocumentMapping) != 1 || got.DocumentMapping[0].ID != "a" {
		t.Errorf("documentMapping = %+v", got.DocumentMapping)
	}
}

func TestSave_IsAtomic_NoTempFilesLeftBehind(t *testing.T) {
	root := t.TempDir()
	s := state.New(root)
	if err := s.Save(&model.SyncState{CollectionID: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != model.SidecarFilename {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestLoad_PreservesUnknownFieldsInExtra(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, model.SidecarFilename)
	raw := map[string]any{
		"last_sync":        time.Now().UTC().Format(time.RFC3339),
		"collection_id":    "col-1",
		"document_mapping": []any{},
		"local_files":      []any{},
		"schemaVersion":    3,
	}
	data, _ := json.Marshal(raw)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s := state.New(root)
	st, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := st.Extra["schemaVersion"]; !ok {
		t.Errorf("expected schemaVersion preserved in Extra, got %v", st.Extra)
	}

	if err := s.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	roundTripped, err := s.Load()
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if _, ok := roundTripped.Extra["schemaVersion"]; !ok {
		t.Errorf("expected schemaVersion preserved after round trip, got %v", roundTripped.Extra)
	}
}

func TestLoad_EmptyFileIsZeroState(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, model.SidecarFilename)
	if err := os.WriteFile(path, []byte{}, 0644); err != nil {
		t.Fatal(err)
	}
	st, err := state.New(root).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !st.IsZero() {
		t.Errorf("expected zero state for empty file")
	}
}

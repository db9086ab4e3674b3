// Package state persists and reloads the sidecar sync state file that lets
// the change detector tell a new document from a moved one and a first
// edit from a reconciled one.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/eykd/outlinesync/internal/model"
)

// onDisk mirrors model.SyncState's shape for JSON marshaling. A distinct
// wire type keeps Extra's round-trip logic (preserve unknown top-level
// fields) out of the domain type.
type onDisk struct {
	LastSync        time.Time                   `json:"last_sync"`
	CollectionID    string                       `json:"collection_id"`
	DocumentMapping []model.DocumentMappingEntry `json:"document_mapping"`
	LocalFiles      []model.LocalFile            `json:"local_files"`
}

// Store loads and saves a SyncState at a fixed path under the sync root.
type Store struct {
	path string
}

// New returns a Store for the sidecar file under root.
func New(root string) *Store {
	return &Store{path: filepath.Join(root, model.SidecarFilename)}
}

// Load reads the sidecar file. A missing file is treated as the first-run
// case: it returns a zero SyncState and a nil error, not an error, since
// "no prior state" is the expected shape of a project's first sync.
func (s *Store) Load() (*model.SyncState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.SyncState{}, nil
		}
		return nil, &model.IOError{Path: s.path, Err: err}
	}
	if len(data) == 0 {
		return &model.SyncState{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &model.IOError{Path: s.path, Err: err}
	}

	var disk onDisk
	if err := json.Unmarshal(data, &disk); err != nil {
		return nil, &model.IOError{Path: s.path, Err: err}
	}

	for _, known := range []string{"last_sync", "collection_id", "document_mapping", "local_files"} {
		delete(raw, known)
	}

	return &model.SyncState{
		LastSync:        disk.LastSync,
		CollectionID:    disk.CollectionID,
		DocumentMapping: disk.DocumentMapping,
		LocalFiles:      disk.LocalFiles,
		Extra:           raw,
	}, nil
}

// Save writes st atomically: marshal to JSON, write to a temp file beside
// the target, then rename over it. Unrecognized fields previously loaded
// into Extra are merged back in so a newer schema version's data is not
// clobbered by an older binary's save.
func (s *Store) Save(st *model.SyncState) error {
	merged := map[string]json.RawMessage{}
	for k, v := range st.Extra {
		merged[k] = v
	}

	disk := onDisk{
		LastSync:        st.LastSync,
		CollectionID:    st.CollectionID,
		DocumentMapping: st.DocumentMapping,
		LocalFiles:      st.LocalFiles,
	}
	diskBytes, err := json.Marshal(disk)
	if err != nil {
		return &model.IOError{Path: s.path, Err: err}
	}
	var diskFields map[string]json.RawMessage
	if err := json.Unmarshal(diskBytes, &diskFields); err != nil {
		return &model.IOError{Path: s.path, Err: err}
	}
	for k, v := range diskFields {
		merged[k] = v
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return &model.IOError{Path: s.path, Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".outline-*.tmp")
	if err != nil {
		return &model.IOError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &model.IOError{Path: s.path, Err: err}
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &model.IOError{Path: s.path, Err: err}
	}
	if err = os.Chmod(tmpName, 0600); err != nil {
		_ = os.Remove(tmpName)
		return &model.IOError{Path: s.path, Err: err}
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &model.IOError{Path: s.path, Err: err}
	}
	return nil
}

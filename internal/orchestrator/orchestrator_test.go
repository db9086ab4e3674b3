package orchestrator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eykd/outlinesync/internal/model"
	"github.com/eykd/outlinesync/internal/orchestrator"
	"github.com/eykd/outlinesync/internal/state"
)

type fakeGateway struct {
	docs    []model.RemoteDoc
	created []string
	deleted []string
	listErr error
}

func (f *fakeGateway) ListCollections(ctx context.Context) ([]model.Collection, error) {
	return nil, nil
}

func (f *fakeGateway) ListDocuments(ctx context.Context, collectionID string) ([]model.RemoteDoc, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs, nil
}

func (f *fakeGateway) CreateDocument(ctx context.Context, collectionID, title, text, parentID string) (model.RemoteDoc, error) {
	f.created = append(f.created, title)
	return model.RemoteDoc{ID: "new-" + title, Title: title, Text: text, ParentID: parentID, UpdatedAt: time.Now()}, nil
}

func (f *fakeGateway) UpdateDocument(ctx context.Context, id string, title, text *string, parentID *string) (model.RemoteDoc, error) {
	for i, d := range f.docs {
		if d.ID == id {
			if title != nil {
				f.docs[i].Title = *title
			}
			if text != nil {
				f.docs[i].Text = *text
			}
			f.docs[i].UpdatedAt = time.Now()
			return f.docs[i], nil
		}
	}
	return model.RemoteDoc{}, os.ErrNotExist
}

func (f *fakeGateway) DeleteDocument(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestRun_FirstSync_PullsRemoteDocIntoEmptyRoot(t *testing.T) {
	root := t.TempDir()
	gw := &fakeGateway{
		docs: []model.RemoteDoc{
			{ID: "doc1", Title: "Welcome", Text: "hello", UpdatedAt: time.Now()},
		},
	}

	o := &orchestrator.Orchestrator{Root: root, CollectionID: "c1", Gateway: gw}
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Halted {
		t.Fatalf("unexpected halt: %v", report.Conflicts)
	}
	if report.Pulled != 1 {
		t.Errorf("Pulled = %d, want 1", report.Pulled)
	}

	if _, err := os.Stat(filepath.Join(root, "Welcome.md")); err != nil {
		t.Errorf("expected Welcome.md to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, model.SidecarFilename)); err != nil {
		t.Errorf("expected sidecar state file: %v", err)
	}
}

func TestRun_SecondRunIsQuiescentWhenNothingChanged(t *testing.T) {
	root := t.TempDir()
	gw := &fakeGateway{
		docs: []model.RemoteDoc{
			{ID: "doc1", Title: "Welcome", Text: "hello", UpdatedAt: time.Now().Add(-time.Hour)},
		},
	}
	o := &orchestrator.Orchestrator{Root: root, CollectionID: "c1", Gateway: gw}
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Pulled != 0 || report.Pushed != 0 {
		t.Errorf("second run should be a no-op, got Pulled=%d Pushed=%d", report.Pulled, report.Pushed)
	}
}

func TestRun_PushesNewLocalFileAfterFirstSync(t *testing.T) {
	root := t.TempDir()
	gw := &fakeGateway{}
	o := &orchestrator.Orchestrator{Root: root, CollectionID: "c1", Gateway: gw}
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "Notes.md"), []byte("body text"), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Pushed != 1 {
		t.Errorf("Pushed = %d, want 1", report.Pushed)
	}
	if len(gw.created) != 1 {
		t.Errorf("gateway.created = %v, want one create call", gw.created)
	}
}

func TestRun_ListDocumentsFailureAbortsWithoutPersistingState(t *testing.T) {
	root := t.TempDir()
	gw := &fakeGateway{listErr: context.DeadlineExceeded}
	o := &orchestrator.Orchestrator{Root: root, CollectionID: "c1", Gateway: gw}

	if _, err := o.Run(context.Background()); err == nil {
		t.Fatal("expected error from ListDocuments failure")
	}

	st, err := state.New(root).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !st.IsZero() {
		t.Error("expected no state to have been persisted after a fatal Phase-1 error")
	}
}

package pullengine_test

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eykd/outlinesync/internal/frontmatter"
	"github.com/eykd/outlinesync/internal/model"
	"github.com/eykd/outlinesync/internal/pathmap"
	"github.com/eykd/outlinesync/internal/pullengine"
)

func writeReal(root, relPath string, content []byte) error {
	abs := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}
	return os.WriteFile(abs, content, 0644)
}

func existsReal(root, relPath string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(relPath)))
	return err == nil
}

type fakeIO struct {
	files map[string][]byte
	mtime map[string]time.Time
}

func newFakeIO() *fakeIO {
	return &fakeIO{files: map[string][]byte{}, mtime: map[string]time.Time{}}
}

func (f *fakeIO) ReadFile(relPath string) ([]byte, error) {
	c, ok := f.files[relPath]
	if !ok {
		return nil, &model.IOError{Path: relPath}
	}
	return c, nil
}
func (f *fakeIO) WriteFile(relPath string, content []byte) error {
	f.files[relPath] = content
	return nil
}
func (f *fakeIO) SetMTime(relPath string, t time.Time) error {
	f.mtime[relPath] = t
	return nil
}
func (f *fakeIO) Remove(relPath string) error {
	if _, ok := f.files[relPath]; !ok {
		return &model.IOError{Path: relPath}
	}
	delete(f.files, relPath)
	return nil
}
func (f *fakeIO) Rename(oldPath, newPath string) error {
	c, ok := f.files[oldPath]
	if !ok {
		return &model.IOError{Path: oldPath}
	}
	delete(f.files, oldPath)
	f.files[newPath] = c
	return nil
}
func (f *fakeIO) MkdirAll(relPath string) error { return nil }
func (f *fakeIO) RemoveEmptyDirs(startDir string) error {
	for p := range f.files {
		if strings.HasPrefix(p, startDir+"/") {
			return nil
		}
	}
	return nil
}

func buildHierarchy(t *testing.T, docs []model.RemoteDoc) *model.Hierarchy {
	t.Helper()
	h, err := pathmap.BuildHierarchy(docs)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestRun_NewDoc_CreatesFile(t *testing.T) {
	docs := []model.RemoteDoc{{ID: "A", Title: "Hello", Text: "hi", UpdatedAt: time.Now()}}
	h := buildHierarchy(t, docs)
	io := newFakeIO()
	e := &pullengine.Engine{Root: "/root", Hierarchy: h, IO: io, LocalFiles: map[string]model.LocalFile{}}

	out := e.Run(model.RemoteChangeSet{NewDocs: docs})

	if len(out.Updated) != 1 {
		t.Fatalf("updated = %+v", out.Updated)
	}
	content, ok := io.files["Hello.md"]
	if !ok {
		t.Fatalf("expected Hello.md to be written, files = %v", io.files)
	}
	fm, body := frontmatter.Parse(content)
	if id, _ := fm.Get(frontmatter.OutlineIDKey); id != "A" {
		t.Errorf("id_outline = %q", id)
	}
	if string(body) != "hi" {
		t.Errorf("body = %q", body)
	}
}

func TestRun_UpdatedDoc_StalenessGuardSkips(t *testing.T) {
	now := time.Now()
	docs := []model.RemoteDoc{{ID: "A", Title: "Hello", Text: "new text", UpdatedAt: now.Add(-time.Hour)}}
	h := buildHierarchy(t, docs)
	io := newFakeIO()
	fm := frontmatter.New()
	fm.Set(frontmatter.OutlineIDKey, "A")
	io.files["Hello.md"] = frontmatter.Serialize(fm, []byte("old text"))

	e := &pullengine.Engine{
		Root: "/root", Hierarchy: h, IO: io,
		LocalFiles: map[string]model.LocalFile{
			"Hello.md": {RelPath: "Hello.md", OutlineID: "A", MTime: now},
		},
	}

	e.Run(model.RemoteChangeSet{UpdatedDocs: docs})

	_, body := frontmatter.Parse(io.files["Hello.md"])
	if string(body) != "old text" {
		t.Errorf("expected local to win staleness guard, body = %q", body)
	}
}

func TestRun_UpdatedDoc_RemoteWinsWhenNewer(t *testing.T) {
	now := time.Now()
	docs := []model.RemoteDoc{{ID: "A", Title: "Hello", Text: "remote text", UpdatedAt: now.Add(time.Hour)}}
	h := buildHierarchy(t, docs)
	io := newFakeIO()
	fm := frontmatter.New()
	fm.Set(frontmatter.OutlineIDKey, "A")
	io.files["Hello.md"] = frontmatter.Serialize(fm, []byte("old text"))

	e := &pullengine.Engine{
		Root: "/root", Hierarchy: h, IO: io,
		LocalFiles: map[string]model.LocalFile{
			"Hello.md": {RelPath: "Hello.md", OutlineID: "A", MTime: now},
		},
	}

	e.Run(model.RemoteChangeSet{UpdatedDocs: docs})

	_, body := frontmatter.Parse(io.files["Hello.md"])
	if string(body) != "remote text" {
		t.Errorf("expected remote text to win, body = %q", body)
	}
}

func TestRun_DeletedDoc_RemovesFile(t *testing.T) {
	io := newFakeIO()
	io.files["Gone.md"] = []byte("bye")
	h := buildHierarchy(t, nil)
	e := &pullengine.Engine{Root: "/root", Hierarchy: h, IO: io, LocalFiles: map[string]model.LocalFile{}}

	e.Run(model.RemoteChangeSet{
		DeletedDocs: []model.DocumentMappingEntry{{ID: "g1", LocalPath: "Gone.md"}},
	})

	if _, ok := io.files["Gone.md"]; ok {
		t.Error("expected Gone.md removed")
	}
}

func TestRun_Promotion(t *testing.T) {
	// Promotion is a structural rename delegated to the convert package,
	// which operates directly on disk, so this test uses a real temp root
	// and osIO rather than fakeIO.
	root := t.TempDir()
	docs := []model.RemoteDoc{
		{ID: "P", Title: "Topic", UpdatedAt: time.Now()},
		{ID: "C", Title: "Sub", ParentID: "P", UpdatedAt: time.Now()},
	}
	h := buildHierarchy(t, docs)

	if err := writeReal(root, "Topic.md", frontmatter.Serialize(frontmatter.New(), []byte("topic body"))); err != nil {
		t.Fatal(err)
	}

	e := &pullengine.Engine{
		Root:      root,
		Hierarchy: h,
		PrevMapping: []model.DocumentMappingEntry{
			{ID: "P", Title: "Topic", LocalPath: "Topic.md", IsFolder: false},
		},
		IO:         pullengine.NewOSIO(root),
		LocalFiles: map[string]model.LocalFile{"Topic.md": {RelPath: "Topic.md", OutlineID: "P"}},
	}

	out := e.Run(model.RemoteChangeSet{NewDocs: []model.RemoteDoc{docs[1]}})

	if existsReal(root, "Topic.md") {
		t.Error("expected Topic.md removed after promotion")
	}
	newIndexPath := path.Join("Topic", model.IndexFilename)
	if !existsReal(root, newIndexPath) {
		t.Errorf("expected %s to exist", newIndexPath)
	}

	var sawPromotion bool
	for _, u := range out.Updated {
		if u.ID == "P" && u.IsFolder {
			sawPromotion = true
		}
	}
	if !sawPromotion {
		t.Errorf("expected promotion recorded in Updated, got %+v", out.Updated)
	}
}

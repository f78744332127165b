package docindex

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/tinyrange/doctags/internal/doctagserr"
)

func TestCreateAddCommitThenOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")

	w, err := Create(dir, CreateOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	docs := []Document{
		{ID: 2, ParentID: ^uint64(0), Path: "/repo", Tags: []string{"/lang/rust"}},
		{ID: 3, ParentID: 2, Path: "/repo/Cargo.toml", Tags: []string{"/lang/rust", "/format/toml"}},
	}
	for _, d := range docs {
		if err := w.Add(d); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	idx, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != uint64(len(docs)) {
		t.Fatalf("DocCount = %d, want %d", count, len(docs))
	}
}

func TestCreateRefusesUnmanagedDirectory(t *testing.T) {
	dir := t.TempDir()
	// t.TempDir() already exists and was not created by this package.
	if _, err := Create(dir, CreateOptions{}); !errors.Is(err, doctagserr.ErrNotAnIndex) {
		t.Fatalf("Create error = %v, want ErrNotAnIndex", err)
	}
}

func TestCreateClobbersOwnManagedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")

	w, err := Create(dir, CreateOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Add(Document{ID: 2, ParentID: ^uint64(0), Path: "/a", Tags: []string{"/x"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	w2, err := Create(dir, CreateOptions{})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if err := w2.Commit(); err != nil {
		t.Fatalf("second Commit: %v", err)
	}

	idx, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()
	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("DocCount = %d, want 0 after reindex", count)
	}
}

func TestOpenRejectsNonIndexDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir); !errors.Is(err, doctagserr.ErrNotAnIndex) {
		t.Fatalf("Open error = %v, want ErrNotAnIndex", err)
	}
}

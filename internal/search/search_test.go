package search

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/tinyrange/doctags/internal/docindex"
	"github.com/tinyrange/doctags/internal/doctagserr"
)

func buildTestIndex(t *testing.T) *Service {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "idx")
	w, err := docindex.Create(dir, docindex.CreateOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	docs := []docindex.Document{
		{ID: 2, ParentID: ^uint64(0), Path: "/repo", Tags: []string{"/lang/rust", "/author/pka", "/gitrepo"}},
		{ID: 3, ParentID: 2, Path: "/repo/Cargo.toml", Tags: []string{"/lang/rust", "/author/pka", "/format/toml"}},
		{ID: 4, ParentID: 2, Path: "/repo/Cargo.lock", Tags: []string{"/lang/rust", "/author/pka"}},
		{ID: 5, ParentID: 2, Path: "/repo/main.go", Tags: []string{"/lang/go"}},
	}
	for _, d := range docs {
		if err := w.Add(d); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	idx, err := docindex.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return New(idx)
}

func TestSearchCompositeTagAndText(t *testing.T) {
	svc := buildTestIndex(t)
	hits, err := svc.Search(":lang:rust Cargo", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search hits = %d, want 2: %+v", len(hits), hits)
	}
	for _, h := range hits {
		if h.Path != "/repo/Cargo.toml" && h.Path != "/repo/Cargo.lock" {
			t.Fatalf("unexpected hit path %q", h.Path)
		}
	}
}

func TestSearchBadQueryThenRecovers(t *testing.T) {
	svc := buildTestIndex(t)
	if _, err := svc.Search(":", 10); !errors.Is(err, doctagserr.ErrBadQuery) {
		t.Fatalf("Search(\":\") error = %v, want ErrBadQuery", err)
	}
	hits, err := svc.Search(":lang:rust", 10)
	if err != nil {
		t.Fatalf("Search after bad query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("Search hits = %d, want 3", len(hits))
	}
}

func TestSearchIdempotent(t *testing.T) {
	svc := buildTestIndex(t)
	a, err := svc.Search(":lang:rust", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	b, err := svc.Search(":lang:rust", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("result lengths differ: %d vs %d", len(a), len(b))
	}
	seen := map[string]bool{}
	for _, h := range a {
		seen[h.Path] = true
	}
	for _, h := range b {
		if !seen[h.Path] {
			t.Fatalf("second search returned path not in first: %q", h.Path)
		}
	}
}

func TestSearchMatchesSnippetBounds(t *testing.T) {
	svc := buildTestIndex(t)
	matches, err := svc.SearchMatches("Cargo", 10)
	if err != nil {
		t.Fatalf("SearchMatches: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	for _, m := range matches {
		prevEnd := -1
		for _, iv := range m.Snippet {
			if iv.Start < 0 || iv.Start >= iv.End || iv.End > len(m.Path) {
				t.Fatalf("interval %+v out of bounds for path %q", iv, m.Path)
			}
			if iv.Start < prevEnd {
				t.Fatalf("interval %+v not monotonically increasing after %d", iv, prevEnd)
			}
			prevEnd = iv.End
		}
	}
}

func TestDocFromID(t *testing.T) {
	svc := buildTestIndex(t)
	doc, err := svc.DocFromID(3)
	if err != nil {
		t.Fatalf("DocFromID: %v", err)
	}
	if doc == nil || doc.Path != "/repo/Cargo.toml" {
		t.Fatalf("DocFromID(3) = %+v, want Cargo.toml", doc)
	}
}

func TestDocFromIDMissing(t *testing.T) {
	svc := buildTestIndex(t)
	doc, err := svc.DocFromID(999)
	if err != nil {
		t.Fatalf("DocFromID: %v", err)
	}
	if doc != nil {
		t.Fatalf("DocFromID(999) = %+v, want nil", doc)
	}
}

func TestDocFromPath(t *testing.T) {
	svc := buildTestIndex(t)
	doc, err := svc.DocFromPath("/repo/Cargo.toml")
	if err != nil {
		t.Fatalf("DocFromPath: %v", err)
	}
	if doc == nil || doc.ID != 3 {
		t.Fatalf("DocFromPath = %+v, want id 3", doc)
	}
}

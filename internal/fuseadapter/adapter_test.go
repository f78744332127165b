package fuseadapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/tinyrange/doctags/internal/docindex"
	"github.com/tinyrange/doctags/internal/search"
	"github.com/tinyrange/doctags/internal/vfsproj"
)

func buildTestAdapter(t *testing.T) (*Adapter, string) {
	t.Helper()

	repoDir := t.TempDir()
	filePath := filepath.Join(repoDir, "a.rs")
	if err := os.WriteFile(filePath, []byte("fn main() {}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	idxDir := filepath.Join(t.TempDir(), "idx")
	w, err := docindex.Create(idxDir, docindex.CreateOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	docs := []docindex.Document{
		{ID: 2, ParentID: ^uint64(0), Path: repoDir, Tags: []string{"/lang/rust"}},
		{ID: 3, ParentID: 2, Path: filePath, Tags: []string{"/lang/rust"}},
	}
	for _, d := range docs {
		if err := w.Add(d); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	idx, err := docindex.Open(idxDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	tree, err := vfsproj.Build(search.New(idx))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return New(tree, nil), filePath
}

func TestLookupResolvesRealFileByParentAndName(t *testing.T) {
	a, filePath := buildTestAdapter(t)

	var rustOut fuse.EntryOut
	if status := a.Lookup(nil, &fuse.InHeader{NodeId: vfsproj.RootID}, "lang", &rustOut); status != fuse.OK {
		t.Fatalf("Lookup(root, lang) = %v", status)
	}
	langID := rustOut.NodeId

	var dirOut fuse.EntryOut
	if status := a.Lookup(nil, &fuse.InHeader{NodeId: langID}, "rust", &dirOut); status != fuse.OK {
		t.Fatalf("Lookup(lang, rust) = %v", status)
	}
	rustID := dirOut.NodeId

	var fileOut fuse.EntryOut
	if status := a.Lookup(nil, &fuse.InHeader{NodeId: rustID}, "a.rs", &fileOut); status != fuse.OK {
		t.Fatalf("Lookup(rust, a.rs) = %v", status)
	}
	if fileOut.Attr.Mode&fuse.S_IFREG == 0 {
		t.Fatalf("a.rs attr mode = %o, want regular file bit set", fileOut.Attr.Mode)
	}
	if fileOut.Attr.Size != uint64(len("fn main() {}")) {
		t.Fatalf("a.rs attr size = %d, want %d", fileOut.Attr.Size, len("fn main() {}"))
	}

	_ = filePath
}

func TestLookupMissingNameIsENOENT(t *testing.T) {
	a, _ := buildTestAdapter(t)

	var out fuse.EntryOut
	status := a.Lookup(nil, &fuse.InHeader{NodeId: vfsproj.RootID}, "nope", &out)
	if status != fuse.ENOENT {
		t.Fatalf("Lookup(root, nope) = %v, want ENOENT", status)
	}
}

func TestReadPassesThroughFileContent(t *testing.T) {
	a, filePath := buildTestAdapter(t)

	var entry fuse.EntryOut
	a.Lookup(nil, &fuse.InHeader{NodeId: vfsproj.RootID}, "lang", &entry)
	langID := entry.NodeId
	var rustEntry fuse.EntryOut
	a.Lookup(nil, &fuse.InHeader{NodeId: langID}, "rust", &rustEntry)
	rustID := rustEntry.NodeId
	var fileEntry fuse.EntryOut
	if status := a.Lookup(nil, &fuse.InHeader{NodeId: rustID}, "a.rs", &fileEntry); status != fuse.OK {
		t.Fatalf("Lookup(rust, a.rs) = %v", status)
	}

	buf := make([]byte, 64)
	result, status := a.Read(nil, &fuse.ReadIn{InHeader: fuse.InHeader{NodeId: fileEntry.NodeId}, Offset: 0}, buf)
	if status != fuse.OK {
		t.Fatalf("Read = %v", status)
	}
	data, readStatus := result.Bytes(buf)
	if readStatus != fuse.OK {
		t.Fatalf("result.Bytes = %v", readStatus)
	}
	if string(data) != "fn main() {}" {
		t.Fatalf("Read content = %q, want %q", data, "fn main() {}")
	}

	_ = filePath
}

func TestReadDirListsRootEntries(t *testing.T) {
	a, _ := buildTestAdapter(t)

	var list fuse.DirEntryList
	status := a.ReadDir(nil, &fuse.ReadIn{InHeader: fuse.InHeader{NodeId: vfsproj.RootID}}, &list)
	if status != fuse.OK {
		t.Fatalf("ReadDir(root) = %v", status)
	}
}

func TestGetAttrOnUnknownInodeIsENOENT(t *testing.T) {
	a, _ := buildTestAdapter(t)

	var out fuse.AttrOut
	status := a.GetAttr(nil, &fuse.GetAttrIn{InHeader: fuse.InHeader{NodeId: 999999}}, &out)
	if status != fuse.ENOENT {
		t.Fatalf("GetAttr(unknown) = %v, want ENOENT", status)
	}
}

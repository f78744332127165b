// Package vfsproj builds the in-memory tag-to-virtual-filesystem tree: a
// directory hierarchy whose inner nodes are facet components and whose
// leaves are query-driven listings of the real files carrying that facet.
// It is built once from a live index and held read-only for the life of a
// mount.
package vfsproj

import (
	"path/filepath"
	"sort"

	"github.com/tinyrange/doctags/internal/docindex"
	"github.com/tinyrange/doctags/internal/search"
)

// RootID is the fixed inode of the synthetic tree's root. It is never
// reassigned: document ids from the index start at 2, leaving 1 reserved
// for the root exactly so the two id spaces cannot collide on the low end.
const RootID uint64 = 1

// allFilesQuery is the sentinel facet query value for the "_" node: list
// every document, not just those under one facet.
const allFilesQuery = "*"

// maxTagTreeDepth caps how many facet components deep the synthetic tree
// descends before a node becomes a query leaf rather than a container of
// further components. Lifting this cap, and deciding what a directory
// combining more than one tag level would mean (intersection or union of
// documents), is left open by the source this is modeled on; depth 2 is
// the behavior this implementation commits to.
const maxTagTreeDepth = 2

// Kind distinguishes a synthetic facet-component node from a pass-through
// entry backed by a real indexed document.
type Kind int

const (
	// KindTag is a virtual directory named after a facet component.
	KindTag Kind = iota
	// KindPath is a pass-through to a real file or directory document.
	KindPath
)

// Entry is one node the kernel filesystem adapter can resolve a lookup or
// readdir entry to.
type Entry struct {
	ID   uint64
	Kind Kind
	Name string
	// Path is the real filesystem path backing a KindPath entry.
	Path string
}

// Tree is the built, read-only tag-VFS projection.
type Tree struct {
	svc *search.Service

	entries   map[uint64]Entry
	children  map[uint64][]uint64   // synthetic parent id -> ordered synthetic child ids
	queries   map[uint64]string     // leaf tag id -> facet path ("*" for all-documents)
	nameIndex map[uint64]map[string]uint64
}

// Build walks the index's facet aggregation two levels deep and assembles
// the synthetic tree described by the data model: a root, an "_" catch-all,
// one node per top-level facet component, and one grandchild per
// second-level component when a top-level facet has any.
func Build(svc *search.Service) (*Tree, error) {
	t := &Tree{
		svc:       svc,
		entries:   map[uint64]Entry{},
		children:  map[uint64][]uint64{},
		queries:   map[uint64]string{},
		nameIndex: map[uint64]map[string]uint64{},
	}

	next := ^uint64(0)
	alloc := func() uint64 {
		id := next
		next--
		return id
	}

	t.entries[RootID] = Entry{ID: RootID, Kind: KindTag, Name: "FUSEROOT"}

	underscore := alloc()
	t.addChild(RootID, underscore, "_")
	t.entries[underscore] = Entry{ID: underscore, Kind: KindTag, Name: "_"}
	t.queries[underscore] = allFilesQuery

	top, err := svc.FacetChildren("")
	if err != nil {
		return nil, err
	}
	for _, tc := range top {
		id := alloc()
		t.addChild(RootID, id, tc.Component)
		t.entries[id] = Entry{ID: id, Kind: KindTag, Name: tc.Component}

		if maxTagTreeDepth < 2 {
			t.queries[id] = tc.Facet
			continue
		}

		deeper, err := svc.FacetChildren(tc.Facet)
		if err != nil {
			return nil, err
		}
		if len(deeper) == 0 {
			t.queries[id] = tc.Facet
			continue
		}
		for _, dc := range deeper {
			cid := alloc()
			t.addChild(id, cid, dc.Component)
			t.entries[cid] = Entry{ID: cid, Kind: KindTag, Name: dc.Component}
			t.queries[cid] = dc.Facet
		}
	}

	return t, nil
}

func (t *Tree) addChild(parent, child uint64, name string) {
	t.children[parent] = append(t.children[parent], child)
	if t.nameIndex[parent] == nil {
		t.nameIndex[parent] = map[string]uint64{}
	}
	t.nameIndex[parent][name] = child
}

// EntryFromID resolves an inode to an Entry: a synthetic hit if id is part
// of the tag tree, otherwise a lookup against the index treating id as a
// document id.
func (t *Tree) EntryFromID(id uint64) (Entry, bool, error) {
	if e, ok := t.entries[id]; ok {
		return e, true, nil
	}
	doc, err := t.svc.DocFromID(id)
	if err != nil {
		return Entry{}, false, err
	}
	if doc == nil {
		return Entry{}, false, nil
	}
	return pathEntry(*doc), true, nil
}

// EntriesFromParentID lists the children of parent_id: the documents a
// facet query matches, the synthetic children of a tag container, or (when
// parent_id is a real document id) the documents whose parent_id equals it.
func (t *Tree) EntriesFromParentID(parentID uint64) ([]Entry, error) {
	if q, ok := t.queries[parentID]; ok {
		docs, err := t.docsForQuery(q)
		if err != nil {
			return nil, err
		}
		return docEntries(docs), nil
	}
	if kids, ok := t.children[parentID]; ok {
		out := make([]Entry, 0, len(kids))
		for _, id := range kids {
			out = append(out, t.entries[id])
		}
		return out, nil
	}
	docs, err := t.svc.ChildrenByParentID(parentID)
	if err != nil {
		return nil, err
	}
	return docEntries(docs), nil
}

// EntryFromDirEntry resolves a single named child of parent_id, the way a
// kernel lookup(parent_inode, name) call needs.
func (t *Tree) EntryFromDirEntry(parentID uint64, name string) (Entry, bool, error) {
	if names, ok := t.nameIndex[parentID]; ok {
		id, ok := names[name]
		if !ok {
			return Entry{}, false, nil
		}
		return t.entries[id], true, nil
	}
	if q, ok := t.queries[parentID]; ok {
		docs, err := t.docsForQuery(q)
		if err != nil {
			return Entry{}, false, err
		}
		for _, d := range docs {
			if filepath.Base(d.Path) == name {
				return pathEntry(d), true, nil
			}
		}
		return Entry{}, false, nil
	}

	parentDoc, err := t.svc.DocFromID(parentID)
	if err != nil || parentDoc == nil {
		return Entry{}, false, err
	}
	child, err := t.svc.DocFromPath(filepath.Join(parentDoc.Path, name))
	if err != nil {
		return Entry{}, false, err
	}
	if child == nil {
		return Entry{}, false, nil
	}
	return pathEntry(*child), true, nil
}

func (t *Tree) docsForQuery(q string) ([]docindex.Document, error) {
	if q == allFilesQuery {
		return t.svc.AllDocuments()
	}
	return t.svc.DocsForFacet(q)
}

func pathEntry(d docindex.Document) Entry {
	return Entry{ID: d.ID, Kind: KindPath, Name: filepath.Base(d.Path), Path: d.Path}
}

func docEntries(docs []docindex.Document) []Entry {
	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, pathEntry(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

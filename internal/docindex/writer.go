package docindex

import (
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"

	"github.com/tinyrange/doctags/internal/doctagserr"
)

// Default memory budgets, used when CreateOptions leaves them at zero. These
// bound how much a Writer buffers in its batch before flushing to the
// on-disk segment files, trading write amplification against peak memory.
const (
	DefaultDiskMemoryBudget  = 50 * 1024 * 1024
	DefaultMemoryIndexBudget = 6 * 1024 * 1024
)

// CreateOptions configures a newly created index.
type CreateOptions struct {
	// MemoryBudgetBytes bounds the size of the in-memory batch accumulated
	// between flushes. Zero selects DefaultDiskMemoryBudget; callers building
	// small in-memory test indexes typically pass DefaultMemoryIndexBudget
	// explicitly.
	MemoryBudgetBytes int
}

// Writer accumulates documents into a batch and flushes them to the index in
// bounded chunks. It is not safe for concurrent use.
type Writer struct {
	idx         bleve.Index
	batch       *bleve.Batch
	budget      int
	approxBytes int
}

// Create makes a fresh index at dir. If dir already exists, it must be one
// this package created (identified by the marker file): Create deletes and
// rebuilds it, matching the policy that unmanaged directories are never
// clobbered. If dir exists but was not created by this package,
// doctagserr.ErrNotAnIndex is returned.
func Create(dir string, opts CreateOptions) (*Writer, error) {
	if _, err := os.Stat(dir); err == nil {
		if !isManaged(dir) {
			return nil, fmt.Errorf("%w: %q is not a doctags index directory", doctagserr.ErrNotAnIndex, dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("%w: remove stale index %q: %v", doctagserr.ErrIndexIO, dir, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: stat %q: %v", doctagserr.ErrIndexIO, dir, err)
	}

	idx, err := bleve.New(dir, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: create index %q: %v", doctagserr.ErrIndexIO, dir, err)
	}
	if err := writeMarker(dir); err != nil {
		idx.Close()
		return nil, fmt.Errorf("%w: write marker in %q: %v", doctagserr.ErrIndexIO, dir, err)
	}

	budget := opts.MemoryBudgetBytes
	if budget <= 0 {
		budget = DefaultDiskMemoryBudget
	}
	return &Writer{idx: idx, batch: idx.NewBatch(), budget: budget}, nil
}

// Open opens an existing index for reading, verifying it carries this
// package's marker.
func Open(dir string) (bleve.Index, error) {
	if !isManaged(dir) {
		return nil, fmt.Errorf("%w: %q is not a doctags index directory", doctagserr.ErrNotAnIndex, dir)
	}
	idx, err := bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: open index %q: %v", doctagserr.ErrIndexIO, dir, err)
	}
	return idx, nil
}

// Add buffers one document. It auto-flushes the batch once the estimated
// buffered size crosses the configured memory budget.
func (w *Writer) Add(doc Document) error {
	body := map[string]interface{}{
		FieldID:       strconv.FormatUint(doc.ID, 10),
		FieldParentID: strconv.FormatUint(doc.ParentID, 10),
		FieldPath:     doc.Path,
		FieldTags:     doc.Tags,
	}
	if err := w.batch.Index(strconv.FormatUint(doc.ID, 10), body); err != nil {
		return fmt.Errorf("%w: buffer document %d: %v", doctagserr.ErrIndexIO, doc.ID, err)
	}
	w.approxBytes += estimateSize(doc)
	if w.approxBytes >= w.budget {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	if w.batch.Size() == 0 {
		return nil
	}
	if err := w.idx.Batch(w.batch); err != nil {
		return fmt.Errorf("%w: flush batch: %v", doctagserr.ErrIndexIO, err)
	}
	w.batch = w.idx.NewBatch()
	w.approxBytes = 0
	return nil
}

// Commit flushes any buffered documents and closes the underlying index.
// The Writer must not be used afterward.
func (w *Writer) Commit() error {
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.idx.Close(); err != nil {
		return fmt.Errorf("%w: close index: %v", doctagserr.ErrIndexIO, err)
	}
	return nil
}

func estimateSize(doc Document) int {
	n := len(doc.Path) + 16
	for _, t := range doc.Tags {
		n += len(t) + 8
	}
	return n
}

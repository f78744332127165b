// Package walk traverses a set of base directories, maintaining the
// inherited tag context described by the per-directory sidecar manifests,
// and streams one tagged record per visited entry to a sink.
package walk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/tinyrange/doctags/internal/doctagserr"
	"github.com/tinyrange/doctags/internal/manifest"
)

// SentinelParentID marks a document with no parent: the root of one of the
// base directories passed to Walk.
const SentinelParentID = ^uint64(0)

// firstID is the first id Walk assigns; id 1 is reserved for the virtual
// filesystem root.
const firstID = 2

// Record is one tagged filesystem entry produced by a traversal.
type Record struct {
	ID       uint64
	ParentID uint64
	Path     string
	Tags     []string
}

// Options controls traversal behavior.
type Options struct {
	// SameFilesystem, when true, does not descend into directories that
	// live on a different device than the base directory being walked.
	SameFilesystem bool
	// Logger receives warnings for skipped entries and malformed
	// manifests. A nil Logger discards them.
	Logger *slog.Logger
}

// frame is one level of the inherited tag stack: the manifest governing a
// directory and the document id assigned to that directory.
type frame struct {
	id       uint64
	manifest manifest.Manifest
}

// Walk visits every entry reachable from baseDirs and calls sink once per
// entry, in a deterministic recursive lexicographic order. sink errors abort
// the walk and are returned from Walk; all other per-entry errors are logged
// and skipped. Canonicalization failure on a base directory is fatal.
func Walk(baseDirs []string, opts Options, sink func(Record) error) error {
	nextID := uint64(firstID)
	visited := make(map[string]bool)
	for _, base := range baseDirs {
		canon, err := canonicalize(base)
		if err != nil {
			return fmt.Errorf("%w: canonicalize base directory %q: %v", doctagserr.ErrFS, base, err)
		}
		dev, ok := deviceOf(canon)
		if !ok {
			return fmt.Errorf("%w: stat base directory %q", doctagserr.ErrFS, base)
		}
		if err := visit(canon, 0, nil, dev, &nextID, visited, opts, sink); err != nil {
			return err
		}
	}
	return nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func visit(path string, depth int, stack []frame, baseDev uint64, nextID *uint64, visited map[string]bool, opts Options, sink func(Record) error) error {
	info, err := os.Stat(path)
	if err != nil {
		warn(opts.Logger, "stat entry", path, err)
		return nil
	}

	if info.IsDir() {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			warn(opts.Logger, "resolve entry", path, err)
			return nil
		}
		if visited[real] {
			warn(opts.Logger, "skip symlink cycle", path, nil)
			return nil
		}
		visited[real] = true
	}

	if opts.SameFilesystem && depth > 0 {
		if dev, ok := deviceOfInfo(info); ok && dev != baseDev {
			return nil
		}
	}

	id := *nextID
	*nextID++

	parentID := SentinelParentID
	if depth > 0 && len(stack) > 0 {
		parentID = stack[len(stack)-1].id
	}

	dirStack := stack
	owner := frame{}
	haveOwner := false
	if info.IsDir() {
		mf := manifest.Read(path, opts.Logger)
		self := frame{id: id, manifest: mf}
		dirStack = append(append([]frame{}, stack...), self)
		owner, haveOwner = self, true
	} else if len(stack) > 0 {
		owner, haveOwner = stack[len(stack)-1], true
	}

	tags := collectTags(dirStack, owner, haveOwner, path)

	if err := sink(Record{ID: id, ParentID: parentID, Path: path, Tags: tags}); err != nil {
		return err
	}

	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		warn(opts.Logger, "read directory", path, err)
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		child := filepath.Join(path, name)
		if err := visit(child, depth+1, dirStack, baseDev, nextID, visited, opts, sink); err != nil {
			return err
		}
	}
	return nil
}

// collectTags unions the dirtags of every frame on the stack (the entry's
// own frame included, if it is a directory) with the file-scoped tags the
// owning manifest declares for path, de-duplicating as it goes.
func collectTags(dirStack []frame, owner frame, haveOwner bool, path string) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	for _, fr := range dirStack {
		for _, t := range fr.manifest.DirTags {
			add(t)
		}
	}
	if haveOwner {
		for _, t := range owner.manifest.FileTags[path] {
			add(t)
		}
	}
	return tags
}

func warn(logger *slog.Logger, msg, path string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("doctags walk: "+msg, "path", path, "error", err)
	} else {
		logger.Warn("doctags walk: "+msg, "path", path)
	}
}

// Package fuseadapter implements the host kernel filesystem protocol
// (lookup, getattr, readdir, read) over the tag-VFS projection: every
// operation resolves against the synthetic facet tree and the document
// index instead of a real directory tree.
package fuseadapter

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/tinyrange/doctags/internal/vfsproj"
)

// cacheTTL bounds how long the kernel may cache a lookup or attribute
// result before re-asking. The tag tree and the index it is built from are
// immutable for the life of a mount, so a generous TTL is safe.
const cacheTTL = 5 * time.Second

// Adapter implements fuse.RawFileSystem. Anything the filesystem contract
// doesn't need (write, create, unlink, locking, extended attributes) falls
// through to the embedded default implementation, which reports ENOSYS —
// the mount is read-only by construction.
type Adapter struct {
	fuse.RawFileSystem

	tree *vfsproj.Tree
	uid  uint32
	gid  uint32
	log  *slog.Logger
}

// New builds an adapter over an already-built tag-VFS tree.
func New(tree *vfsproj.Tree, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		tree:          tree,
		uid:           uint32(os.Getuid()),
		gid:           uint32(os.Getgid()),
		log:           logger,
	}
}

func (a *Adapter) String() string { return "doctags" }

// Lookup resolves parent_inode/name to a child's attributes, the virtual
// directory case and the real-file case both handled by the tag tree.
func (a *Adapter) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) (status fuse.Status) {
	defer func() { observe("lookup", status == fuse.OK) }()

	entry, ok, err := a.tree.EntryFromDirEntry(header.NodeId, name)
	if err != nil {
		a.log.Error("doctagsfs lookup", "parent", header.NodeId, "name", name, "error", err)
		return fuse.EIO
	}
	if !ok {
		return fuse.ENOENT
	}
	out.NodeId = entry.ID
	out.Generation = 1
	out.EntryValid = uint64(cacheTTL.Seconds())
	out.AttrValid = uint64(cacheTTL.Seconds())
	if err := a.fillAttr(entry, &out.Attr); err != nil {
		a.log.Error("doctagsfs lookup stat", "path", entry.Path, "error", err)
		return fuse.EIO
	}
	return fuse.OK
}

// GetAttr resolves an inode alone, with no parent context.
func (a *Adapter) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) (status fuse.Status) {
	defer func() { observe("getattr", status == fuse.OK) }()

	entry, ok, err := a.tree.EntryFromID(input.NodeId)
	if err != nil {
		a.log.Error("doctagsfs getattr", "inode", input.NodeId, "error", err)
		return fuse.EIO
	}
	if !ok {
		return fuse.ENOENT
	}
	out.AttrValid = uint64(cacheTTL.Seconds())
	if err := a.fillAttr(entry, &out.Attr); err != nil {
		a.log.Error("doctagsfs getattr stat", "path", entry.Path, "error", err)
		return fuse.EIO
	}
	return fuse.OK
}

// Open always succeeds: reads are stateless lookups by inode, so there is
// no file handle state to allocate.
func (a *Adapter) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	return fuse.OK
}

// Read resolves the inode to a real path, opens it, seeks, and reads up to
// len(buf) bytes. No caching: every call re-opens the underlying file.
func (a *Adapter) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (result fuse.ReadResult, status fuse.Status) {
	defer func() { observe("read", status == fuse.OK) }()

	entry, ok, err := a.tree.EntryFromID(input.NodeId)
	if err != nil {
		a.log.Error("doctagsfs read", "inode", input.NodeId, "error", err)
		return nil, fuse.EIO
	}
	if !ok || entry.Kind != vfsproj.KindPath {
		return nil, fuse.ENOENT
	}

	f, err := os.Open(entry.Path)
	if err != nil {
		a.log.Error("doctagsfs read open", "path", entry.Path, "error", err)
		return nil, fuse.EIO
	}
	defer f.Close()

	n, err := f.ReadAt(buf, int64(input.Offset))
	if err != nil && err != io.EOF {
		a.log.Error("doctagsfs read", "path", entry.Path, "error", err)
		return nil, fuse.EIO
	}
	return fuse.ReadResultData(buf[:n]), fuse.OK
}

// ReadDir always emits "." and ".." first, then the tag tree's children at
// the requested offset. Child ordering from vfsproj.Tree is stable across
// calls, so offsets paginate correctly.
func (a *Adapter) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) (status fuse.Status) {
	defer func() { observe("readdir", status == fuse.OK) }()

	children, err := a.tree.EntriesFromParentID(input.NodeId)
	if err != nil {
		a.log.Error("doctagsfs readdir", "inode", input.NodeId, "error", err)
		return fuse.EIO
	}

	all := make([]fuse.DirEntry, 0, len(children)+2)
	all = append(all, fuse.DirEntry{Mode: fuse.S_IFDIR, Name: ".", Ino: input.NodeId})
	all = append(all, fuse.DirEntry{Mode: fuse.S_IFDIR, Name: "..", Ino: input.NodeId})
	for _, c := range children {
		all = append(all, fuse.DirEntry{Mode: direntMode(c), Name: c.Name, Ino: c.ID})
	}

	if input.Offset >= uint64(len(all)) {
		return fuse.OK
	}
	for _, de := range all[input.Offset:] {
		if !out.AddDirEntry(de) {
			break
		}
	}
	return fuse.OK
}

func direntMode(e vfsproj.Entry) uint32 {
	if e.Kind == vfsproj.KindTag {
		return fuse.S_IFDIR
	}
	if info, err := os.Lstat(e.Path); err == nil && info.IsDir() {
		return fuse.S_IFDIR
	}
	return fuse.S_IFREG
}

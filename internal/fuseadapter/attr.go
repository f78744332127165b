package fuseadapter

import (
	"os"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/tinyrange/doctags/internal/vfsproj"
)

// syntheticEpoch is the fixed timestamp synthetic directories report. Real
// entries always report their host filesystem's actual mtime instead.
const syntheticEpoch = 0

// fillAttr implements the attribute policy: synthetic directories get a
// fixed epoch time, mode 0755, two links, and the calling user's uid/gid;
// real files and directories inherit their attributes from the host stat.
func (a *Adapter) fillAttr(entry vfsproj.Entry, attr *fuse.Attr) error {
	attr.Ino = entry.ID

	if entry.Kind == vfsproj.KindTag {
		attr.Mode = fuse.S_IFDIR | 0o755
		attr.Nlink = 2
		attr.Owner = fuse.Owner{Uid: a.uid, Gid: a.gid}
		attr.Atime, attr.Mtime, attr.Ctime = syntheticEpoch, syntheticEpoch, syntheticEpoch
		return nil
	}

	info, err := os.Lstat(entry.Path)
	if err != nil {
		return err
	}

	mode := uint32(fuse.S_IFREG) | uint32(info.Mode().Perm())
	nlink := uint32(1)
	if info.IsDir() {
		mode = fuse.S_IFDIR | uint32(info.Mode().Perm())
		nlink = 2
	}

	attr.Mode = mode
	attr.Nlink = nlinkOf(info, nlink)
	attr.Size = uint64(info.Size())
	mtime := uint64(info.ModTime().Unix())
	attr.Atime, attr.Mtime, attr.Ctime = mtime, mtime, mtime
	uid, gid := ownerOf(info, a.uid, a.gid)
	attr.Owner = fuse.Owner{Uid: uid, Gid: gid}
	return nil
}

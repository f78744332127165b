package fuseadapter

import (
	"fmt"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/tinyrange/doctags/internal/doctagserr"
)

// Mount performs the mount syscall, starts the serve loop in the
// background, and returns once the mount is ready to handle requests.
// Callers drive the returned server's remaining lifetime (Wait/Unmount).
func Mount(a *Adapter, mountpoint string) (*fuse.Server, error) {
	opts := &fuse.MountOptions{
		Name:           "doctags",
		FsName:         "doctags",
		SingleThreaded: false,
		ReadOnly:       true,
	}
	server, err := fuse.NewServer(a, mountpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: mount %q: %v", doctagserr.ErrFS, mountpoint, err)
	}
	go server.Serve()
	if err := server.WaitMount(); err != nil {
		return nil, fmt.Errorf("%w: wait for mount %q: %v", doctagserr.ErrFS, mountpoint, err)
	}
	return server, nil
}

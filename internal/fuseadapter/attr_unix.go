//go:build !windows

package fuseadapter

import (
	"io/fs"
	"syscall"
)

func nlinkOf(info fs.FileInfo, fallback uint32) uint32 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint32(st.Nlink)
	}
	return fallback
}

func ownerOf(info fs.FileInfo, fallbackUID, fallbackGID uint32) (uint32, uint32) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Uid, st.Gid
	}
	return fallbackUID, fallbackGID
}

//go:build windows

package fuseadapter

import "io/fs"

func nlinkOf(info fs.FileInfo, fallback uint32) uint32 { return fallback }

func ownerOf(info fs.FileInfo, fallbackUID, fallbackGID uint32) (uint32, uint32) {
	return fallbackUID, fallbackGID
}

//go:build windows

package walk

import "io/fs"

// deviceOf and deviceOfInfo have no portable equivalent on Windows; the
// same-filesystem option is a no-op there (every entry is treated as being
// on the base directory's device).
func deviceOf(path string) (uint64, bool) { return 0, true }

func deviceOfInfo(info fs.FileInfo) (uint64, bool) { return 0, true }

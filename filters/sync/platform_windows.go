//go:build windows

package sync

import "os"

// ownerOf: Windows has no uid/gid concept, so fcom records
// zero so the snapshot format's uid:gid column is always present.
func ownerOf(info os.FileInfo) (uid, gid int) { return 0, 0 }

// winAttrOf surfaces the subset of Windows file attributes fcom tracks
// (read-only, hidden) from the os.FileInfo the standard library already
// populates, avoiding a direct syscall.GetFileAttributes call.
func winAttrOf(info os.FileInfo) uint32 {
	var attr uint32
	if info.Mode()&0o200 == 0 {
		attr |= 0x1 // FILE_ATTRIBUTE_READONLY
	}
	if len(info.Name()) > 0 && info.Name()[0] == '.' {
		attr |= 0x2 // FILE_ATTRIBUTE_HIDDEN (best-effort, Unix-dotfile convention)
	}
	return attr
}

//go:build !windows

package sync

import (
	"os"
	"syscall"
)

// winAttrOf has no meaning outside Windows; fcom still records a zero
// value so the snapshot format's win_attr column is always present.
func winAttrOf(info os.FileInfo) uint32 { return 0 }

// ownerOf extracts the POSIX uid/gid from the platform-specific stat
// struct Go's os package stashes in FileInfo.Sys().
func ownerOf(info os.FileInfo) (uid, gid int) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return int(st.Uid), int(st.Gid)
}

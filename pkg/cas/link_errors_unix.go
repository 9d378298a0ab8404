//go:build darwin || freebsd || linux

package cas

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isLinkUnsupportedErrno returns true if the error was caused by the
// file system not supporting a certain link type, as opposed to an
// issue with the files involved.
func isLinkUnsupportedErrno(err error) bool {
	for _, errno := range []unix.Errno{
		// Source and target are on different file systems.
		unix.EXDEV,
		// File system does not support cloning.
		unix.EOPNOTSUPP,
		unix.ENOTSUP,
		unix.ENOSYS,
		// Linking is restricted (e.g., protected_hardlinks).
		unix.EPERM,
		// Maximum number of links to the file reached.
		unix.EMLINK,
		// FICLONE on files that cannot be cloned.
		unix.EINVAL,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

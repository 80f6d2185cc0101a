//go:build unix

package fs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// flockExclusive acquires an exclusive lock on the file descriptor.
func flockExclusive(fd int) error {
	return unix.Flock(fd, unix.LOCK_EX)
}

// flockUnlock releases the lock on the file descriptor.
func flockUnlock(fd int) error {
	return unix.Flock(fd, unix.LOCK_UN)
}

// isLockNotSupportedError returns true if the error indicates that
// file locking is not supported by the filesystem (NFS, SMB and friends).
func isLockNotSupportedError(err error) bool {
	return errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.ENOLCK)
}

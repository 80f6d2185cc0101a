//go:build windows

package fs

// Locking is skipped on Windows; the save is still an atomic rename.
func flockExclusive(fd int) error {
	return nil
}

func flockUnlock(fd int) error {
	return nil
}

func isLockNotSupportedError(err error) bool {
	return false
}

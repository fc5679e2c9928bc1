//go:build windows

package journal

import "os"

// lockFile is a no-op on Windows; the in-process mutex is the only guard.
func lockFile(_ *os.File) error   { return nil }
func unlockFile(_ *os.File) error { return nil }

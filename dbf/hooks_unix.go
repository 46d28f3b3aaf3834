//go:build !windows
// +build !windows

package dbf

import (
	"os"

	"golang.org/x/sys/unix"
)

// OSHooks implements the Hooks interface over the host file system.
// Read-write opens take a non-blocking exclusive advisory lock,
// read-only opens a shared one; the lock is released when the stream
// is closed.
type OSHooks struct{}

func (o OSHooks) Open(name string, mode string) (Stream, error) {
	var flag int
	lock := 0
	switch mode {
	case "r", "rb":
		flag = os.O_RDONLY
		lock = unix.LOCK_SH
	case "r+", "rb+", "r+b":
		flag = os.O_RDWR
		lock = unix.LOCK_EX
	case "w":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "wb+", "wb":
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		lock = unix.LOCK_EX
	default:
		return nil, newErrorf("dbf-hooks-osopen-1", "invalid mode %v", mode)
	}
	handle, err := os.OpenFile(name, flag, 0644)
	if err != nil {
		return nil, newError("dbf-hooks-osopen-2", err)
	}
	if lock != 0 {
		// Advisory only, released implicitly on close.
		if err := unix.Flock(int(handle.Fd()), lock|unix.LOCK_NB); err != nil {
			handle.Close()
			return nil, newErrorf("dbf-hooks-osopen-3", "locking file %v failed with error: %v", name, err)
		}
	}
	return handle, nil
}

func (o OSHooks) Remove(name string) error {
	err := os.Remove(name)
	if err != nil && !os.IsNotExist(err) {
		return newError("dbf-hooks-osremove-1", err)
	}
	return nil
}

func (o OSHooks) Error(message string) {
	errorf("%s", message)
}

func (o OSHooks) Atof(s string) float64 {
	return Atof(s)
}

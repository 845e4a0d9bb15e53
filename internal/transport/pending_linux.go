//go:build linux

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// pendingRaw asks the kernel how many bytes are queued for reading.
func pendingRaw(raw syscall.RawConn) (bool, error) {
	var n int
	var ioErr error
	err := raw.Control(func(fd uintptr) {
		n, ioErr = unix.IoctlGetInt(int(fd), unix.TIOCINQ)
	})
	if err != nil {
		return false, err
	}
	if ioErr != nil {
		return false, ioErr
	}
	return n > 0, nil
}

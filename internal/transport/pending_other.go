//go:build !linux

package transport

import "syscall"

func pendingRaw(raw syscall.RawConn) (bool, error) {
	return false, errPollUnsupported
}

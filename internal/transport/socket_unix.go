//go:build unix

package transport

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// adoptSocket turns an inherited descriptor into a net.Conn. The handle is
// only closed once it is known to be a socket we now own through the dup.
func adoptSocket(handle uintptr) (net.Conn, error) {
	dup, err := unix.Dup(int(handle))
	if err != nil {
		return nil, err
	}
	f := os.NewFile(uintptr(dup), "door-socket")
	conn, err := net.FileConn(f)
	f.Close() // FileConn dups the fd
	if err != nil {
		return nil, err
	}
	unix.Close(int(handle))
	return conn, nil
}

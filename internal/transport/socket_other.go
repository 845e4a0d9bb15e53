//go:build !unix

package transport

import (
	"fmt"
	"net"
)

// adoptSocket is not supported off Unix: handle inheritance there needs
// WSADuplicateSocket, which hosts on those platforms do not use with us.
func adoptSocket(handle uintptr) (net.Conn, error) {
	return nil, fmt.Errorf("inherited socket handles are not supported on this platform")
}

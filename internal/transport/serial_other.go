//go:build !linux

package transport

import "os"

func openSerial(path string, baud int) (*os.File, error) {
	return nil, ErrSerialUnsupported
}

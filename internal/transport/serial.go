package transport

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Serial is a port bridged to the caller by a modem or FOSSIL emulation
// layer.
type Serial struct {
	f    *os.File
	port string
	baud int

	closeOnce sync.Once
	closeErr  error
}

// NewSerial opens port at baud. port may be a DOS name ("COM1") or a device
// path.
func NewSerial(port string, baud int) (*Serial, error) {
	if strings.TrimSpace(port) == "" {
		return nil, ErrNotApplicable
	}
	f, err := openSerial(DevicePath(port), baud)
	if err != nil {
		return nil, fmt.Errorf("serial %s: %w", port, err)
	}
	return &Serial{f: f, port: port, baud: baud}, nil
}

// DevicePath maps DOS port names to device nodes: COM1 is /dev/ttyS0.
// Anything containing a path separator is used as is.
func DevicePath(port string) string {
	p := strings.TrimSuffix(strings.TrimSpace(port), ":")
	if strings.ContainsRune(p, '/') {
		return p
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(p), "COM")); err == nil && n > 0 {
		return fmt.Sprintf("/dev/ttyS%d", n-1)
	}
	return "/dev/" + p
}

func (s *Serial) Kind() Kind { return KindSerial }

func (s *Serial) Capabilities() Capabilities {
	return Capabilities{Color: true, RawKeys: true}
}

func (s *Serial) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s *Serial) Write(p []byte) (int, error) { return s.f.Write(p) }

// Pending reports whether bytes are waiting in the receive queue.
func (s *Serial) Pending() (bool, error) {
	raw, err := s.f.SyscallConn()
	if err != nil {
		return false, err
	}
	return pendingRaw(raw)
}

// Close closes the port. It is safe to call more than once.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.f.Close()
	})
	return s.closeErr
}

var (
	_ Transport = (*Serial)(nil)
	_ Poller    = (*Serial)(nil)
)

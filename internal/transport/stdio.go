package transport

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Stdio wraps standard input and output that the host has already redirected
// to the caller's connection.
type Stdio struct {
	in     *os.File
	out    *os.File
	closed atomic.Bool
}

// NewStdio checks that both streams are usable.
func NewStdio(in, out *os.File) (*Stdio, error) {
	if in == nil || out == nil {
		return nil, fmt.Errorf("stdio: stream not available")
	}
	if _, err := in.Stat(); err != nil {
		return nil, fmt.Errorf("stdio: stdin: %w", err)
	}
	if _, err := out.Stat(); err != nil {
		return nil, fmt.Errorf("stdio: stdout: %w", err)
	}
	return &Stdio{in: in, out: out}, nil
}

func (s *Stdio) Kind() Kind { return KindStdio }

// Capabilities: hosts that redirect stdio talk ANSI to the caller.
func (s *Stdio) Capabilities() Capabilities {
	return Capabilities{Color: true, RawKeys: true}
}

func (s *Stdio) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, os.ErrClosed
	}
	return s.in.Read(p)
}

func (s *Stdio) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, os.ErrClosed
	}
	return s.out.Write(p)
}

// Close stops further I/O. The process's own streams are left open for the
// runtime to tear down.
func (s *Stdio) Close() error {
	s.closed.Store(true)
	return nil
}

var _ Transport = (*Stdio)(nil)

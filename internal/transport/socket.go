package transport

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"syscall"
)

// Telnet bytes the IAC filter understands.
const (
	iac  byte = 255
	dont byte = 254
	do   byte = 253
	wont byte = 252
	will byte = 251
	sb   byte = 250
	se   byte = 240
)

// Socket wraps a connection the host accepted and passed down by handle.
type Socket struct {
	conn net.Conn
	raw  syscall.RawConn

	// telnet filtering is optional: most hosts hand over a socket whose
	// option negotiation they already finished.
	telnet bool
	reader *bufio.Reader

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewSocket adopts an inherited socket descriptor. The descriptor is
// duplicated first, so a handle that turns out not to be a socket is left
// untouched.
func NewSocket(handle uintptr) (*Socket, error) {
	if handle == 0 {
		return nil, ErrNotApplicable
	}
	conn, err := adoptSocket(handle)
	if err != nil {
		return nil, fmt.Errorf("socket handle %d: %w", handle, err)
	}
	return newSocketConn(conn), nil
}

func newSocketConn(conn net.Conn) *Socket {
	s := &Socket{conn: conn, reader: bufio.NewReaderSize(conn, 1024)}
	if sc, ok := conn.(syscall.Conn); ok {
		if raw, err := sc.SyscallConn(); err == nil {
			s.raw = raw
		}
	}
	return s
}

// EnableTelnet turns on IAC filtering: inbound command sequences are
// discarded and outbound 0xFF bytes are doubled. No options are negotiated.
func (s *Socket) EnableTelnet() {
	s.telnet = true
}

func (s *Socket) Kind() Kind { return KindSocket }

func (s *Socket) Capabilities() Capabilities {
	return Capabilities{Color: true, RawKeys: true}
}

// Read implements io.Reader.
func (s *Socket) Read(p []byte) (int, error) {
	if !s.telnet {
		return s.reader.Read(p)
	}
	n := 0
	for n < len(p) {
		b, err := s.readTelnetByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		p[n] = b
		n++
		if !s.dataBuffered() {
			break
		}
	}
	return n, nil
}

// dataBuffered discards telnet commands that are already buffered in full
// and reports whether a data byte can be read without blocking.
func (s *Socket) dataBuffered() bool {
	for {
		buf, _ := s.reader.Peek(s.reader.Buffered())
		if len(buf) == 0 {
			return false
		}
		if buf[0] != iac {
			return true
		}
		n := commandLen(buf)
		if n < 0 {
			return true
		}
		if n == 0 {
			return false
		}
		s.reader.Discard(n)
	}
}

// commandLen returns the length of the IAC sequence at the start of buf,
// 0 if it is incomplete and -1 if it is an escaped 0xFF data byte.
func commandLen(buf []byte) int {
	if len(buf) < 2 {
		return 0
	}
	switch buf[1] {
	case iac:
		return -1
	case will, wont, do, dont:
		if len(buf) < 3 {
			return 0
		}
		return 3
	case sb:
		for i := 2; i+1 < len(buf); i++ {
			if buf[i] != iac {
				continue
			}
			if buf[i+1] == se {
				return i + 2
			}
			i++
		}
		return 0
	default:
		return 2
	}
}

// readTelnetByte returns the next data byte, skipping IAC sequences.
func (s *Socket) readTelnetByte() (byte, error) {
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != iac {
			return b, nil
		}

		cmd, err := s.reader.ReadByte()
		if err != nil {
			return 0, err
		}
		switch cmd {
		case iac:
			return iac, nil
		case will, wont, do, dont:
			if _, err := s.reader.ReadByte(); err != nil {
				return 0, err
			}
		case sb:
			if err := s.skipSubnegotiation(); err != nil {
				return 0, err
			}
		}
	}
}

func (s *Socket) skipSubnegotiation() error {
	const maxSubnegLen = 1024
	for n := 0; n < maxSubnegLen; n++ {
		b, err := s.reader.ReadByte()
		if err != nil {
			return fmt.Errorf("subneg read: %w", err)
		}
		if b != iac {
			continue
		}
		next, err := s.reader.ReadByte()
		if err != nil {
			return fmt.Errorf("subneg read: %w", err)
		}
		if next == se {
			return nil
		}
	}
	return fmt.Errorf("subneg too long")
}

// Write implements io.Writer.
func (s *Socket) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.telnet {
		return s.conn.Write(p)
	}

	written := 0
	for i, b := range p {
		if b != iac {
			continue
		}
		if i > written {
			if _, err := s.conn.Write(p[written:i]); err != nil {
				return written, err
			}
		}
		if _, err := s.conn.Write([]byte{iac, iac}); err != nil {
			return i, err
		}
		written = i + 1
	}
	if written < len(p) {
		if _, err := s.conn.Write(p[written:]); err != nil {
			return written, err
		}
	}
	return len(p), nil
}

// Pending reports whether unread input is waiting.
func (s *Socket) Pending() (bool, error) {
	if s.telnet {
		if s.dataBuffered() {
			return true, nil
		}
	} else if s.reader.Buffered() > 0 {
		return true, nil
	}
	if s.raw == nil {
		return false, errPollUnsupported
	}
	return pendingRaw(s.raw)
}

// Close closes the connection. It is safe to call more than once.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

var (
	_ Transport = (*Socket)(nil)
	_ Poller    = (*Socket)(nil)
)

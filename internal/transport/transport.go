// Package transport provides the byte channels a door can be handed by its
// host: an inherited socket, redirected standard streams, a serial port, or
// the local console.
package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind identifies a transport implementation.
type Kind int

const (
	KindNone Kind = iota
	KindStdio
	KindSocket
	KindSerial
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindStdio:
		return "stdio"
	case KindSocket:
		return "socket"
	case KindSerial:
		return "serial"
	case KindLocal:
		return "local"
	}
	return "none"
}

// fallbackOrder is the selection order; a failed transport falls back to
// the next entry.
var fallbackOrder = []Kind{KindStdio, KindSocket, KindSerial, KindLocal}

// Capabilities describe what the far end of a transport can handle.
type Capabilities struct {
	Color   bool // escape sequences reach a terminal that renders them
	RawKeys bool // input arrives key by key and the door must echo
	UTF8    bool // the terminal speaks UTF-8 natively
}

// Transport is a byte stream to the caller.
type Transport interface {
	io.ReadWriteCloser
	Kind() Kind
	Capabilities() Capabilities
}

// Poller is implemented by transports that can tell whether input is
// waiting without blocking.
type Poller interface {
	Pending() (bool, error)
}

var (
	// ErrNotApplicable means the drop file lacks what the transport needs
	// (no socket handle, no port).
	ErrNotApplicable = errors.New("transport not applicable")

	// ErrNoTransport means every transport in the fallback chain failed.
	ErrNoTransport = errors.New("no usable transport")

	// ErrSerialUnsupported is returned on platforms without serial support.
	ErrSerialUnsupported = errors.New("serial ports are not supported on this platform")

	errPollUnsupported = errors.New("input polling not supported")
)

// ParseForce parses a --force value: "socket", "stdio", "local", "serial"
// or "serial:<port>".
func ParseForce(s string) (Kind, string, error) {
	v := strings.TrimSpace(s)
	name, port, _ := strings.Cut(v, ":")
	switch strings.ToLower(name) {
	case "socket", "telnet":
		return KindSocket, "", nil
	case "stdio":
		return KindStdio, "", nil
	case "local", "console":
		return KindLocal, "", nil
	case "serial", "fossil":
		return KindSerial, port, nil
	}
	return KindNone, "", fmt.Errorf("unknown transport %q", s)
}

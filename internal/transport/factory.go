package transport

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/notepid/twilight_door/internal/dropfile"
)

// Flags are the operator's transport choices.
type Flags struct {
	Force      Kind   // KindNone unless --force/--local was given
	ForcePort  string // port for a forced serial transport
	StdioHosts []string
	Telnet     bool // filter telnet IAC sequences on sockets
	LocalUTF8  bool // the local console speaks UTF-8
}

// IsStdioHost reports whether bbsName matches an entry of the host list.
// Matching is a case-insensitive substring test.
func IsStdioHost(bbsName string, hosts []string) bool {
	name := strings.ToLower(bbsName)
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && strings.Contains(name, h) {
			return true
		}
	}
	return false
}

// Select picks the transport for a session. It is a pure function of its
// inputs.
func Select(info dropfile.SessionInfo, flags Flags) Kind {
	switch {
	case flags.Force != KindNone:
		return flags.Force
	case IsStdioHost(info.BBSName, flags.StdioHosts):
		return KindStdio
	case info.HasSocket():
		return KindSocket
	case info.HasComPort():
		return KindSerial
	}
	return KindLocal
}

// Plan returns the selected kind followed by every kind after it in the
// fallback order.
func Plan(info dropfile.SessionInfo, flags Flags) []Kind {
	first := Select(info, flags)
	for i, k := range fallbackOrder {
		if k == first {
			plan := make([]Kind, len(fallbackOrder)-i)
			copy(plan, fallbackOrder[i:])
			return plan
		}
	}
	return []Kind{KindLocal}
}

// Opener constructs one kind of transport.
type Opener func(info dropfile.SessionInfo, flags Flags) (Transport, error)

// Attempt records a transport that failed to open.
type Attempt struct {
	Kind Kind
	Err  error
}

// Factory opens transports along a Plan.
type Factory struct {
	Openers map[Kind]Opener
	Logger  *log.Logger
}

// DefaultFactory wires the real transports to the process's streams.
func DefaultFactory(logger *log.Logger) *Factory {
	return &Factory{
		Openers: map[Kind]Opener{
			KindStdio: func(dropfile.SessionInfo, Flags) (Transport, error) {
				return NewStdio(os.Stdin, os.Stdout)
			},
			KindSocket: func(info dropfile.SessionInfo, flags Flags) (Transport, error) {
				if flags.Force != KindSocket && !info.HasSocket() {
					return nil, ErrNotApplicable
				}
				s, err := NewSocket(info.SocketHandle)
				if err != nil {
					return nil, err
				}
				if flags.Telnet {
					s.EnableTelnet()
				}
				return s, nil
			},
			KindSerial: func(info dropfile.SessionInfo, flags Flags) (Transport, error) {
				port := info.ComPort
				if flags.Force == KindSerial && flags.ForcePort != "" {
					port = flags.ForcePort
				}
				return NewSerial(port, info.BaudRate)
			},
			KindLocal: func(_ dropfile.SessionInfo, flags Flags) (Transport, error) {
				return NewLocalConsole(os.Stdin, os.Stdout, flags.LocalUTF8)
			},
		},
		Logger: logger,
	}
}

func (f *Factory) logf(format string, args ...any) {
	if f.Logger != nil {
		f.Logger.Printf(format, args...)
	}
}

// Open walks the plan for info and returns the first transport that opens.
// Each kind is tried at most once, and failures are returned in order.
func (f *Factory) Open(info dropfile.SessionInfo, flags Flags) (Transport, []Attempt, error) {
	var attempts []Attempt
	var lastErr error
	for _, kind := range Plan(info, flags) {
		open, ok := f.Openers[kind]
		if !ok {
			continue
		}
		t, err := open(info, flags)
		if err == nil {
			if len(attempts) > 0 {
				f.logf("Transport: using %s after %d failed attempt(s)", kind, len(attempts))
			} else {
				f.logf("Transport: using %s", kind)
			}
			return t, attempts, nil
		}
		f.logf("Transport: %s unavailable: %v; falling back", kind, err)
		attempts = append(attempts, Attempt{Kind: kind, Err: err})
		lastErr = err
	}
	if lastErr == nil {
		return nil, attempts, ErrNoTransport
	}
	return nil, attempts, fmt.Errorf("%w: %w", ErrNoTransport, lastErr)
}

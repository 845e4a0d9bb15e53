package dropfile

import (
	"fmt"
	"strings"
)

// CommType is how the remote caller is connected to the host.
type CommType int

const (
	CommLocal  CommType = 0
	CommSerial CommType = 1
	CommTelnet CommType = 2
)

func (c CommType) String() string {
	switch c {
	case CommLocal:
		return "local"
	case CommSerial:
		return "serial"
	case CommTelnet:
		return "telnet"
	}
	return fmt.Sprintf("comm(%d)", int(c))
}

// Emulation is the terminal emulation the caller negotiated with the host.
type Emulation int

const (
	EmuASCII  Emulation = 0
	EmuANSI   Emulation = 1
	EmuAvatar Emulation = 2
	EmuRIP    Emulation = 3
)

func (e Emulation) String() string {
	switch e {
	case EmuASCII:
		return "ascii"
	case EmuANSI:
		return "ansi"
	case EmuAvatar:
		return "avatar"
	case EmuRIP:
		return "rip"
	}
	return fmt.Sprintf("emulation(%d)", int(e))
}

// Format identifies a drop file layout.
type Format int

const (
	FormatAuto    Format = iota
	FormatDoor32         // DOOR32.SYS, 11 lines
	FormatDoorSys        // DOOR.SYS, up to 52 lines
)

func (f Format) String() string {
	switch f {
	case FormatDoor32:
		return "DOOR32.SYS"
	case FormatDoorSys:
		return "DOOR.SYS"
	}
	return "auto"
}

// ParseFormat maps a command-line format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "door32", "door32.sys", "modern":
		return FormatDoor32, nil
	case "doorsys", "door.sys", "legacy":
		return FormatDoorSys, nil
	}
	return FormatAuto, fmt.Errorf("unknown drop file type %q", s)
}

// SessionInfo describes the connecting caller and the transport the host
// expects the door to use. It is a value type; every consumer holds its own
// copy, so a parsed SessionInfo is never mutated.
type SessionInfo struct {
	Format     Format
	SourcePath string

	CommType     CommType
	SocketHandle uintptr // 0 = absent
	ComPort      string  // "" = absent
	BaudRate     int

	BBSName          string
	UserRecordNumber int
	RealName         string
	Alias            string
	SecurityLevel    int
	TimeRemaining    int // minutes, advisory
	Emulation        Emulation
	NodeNumber       int

	// Extra holds informational lines that were read but carry no
	// semantics for the door, keyed by 1-based line number.
	Extra map[int]string
}

// HasSocket reports whether the drop file handed over a socket handle.
func (s SessionInfo) HasSocket() bool {
	return s.CommType == CommTelnet && s.SocketHandle != 0
}

// HasComPort reports whether the drop file named a serial port.
func (s SessionInfo) HasComPort() bool {
	return s.CommType == CommSerial && s.ComPort != ""
}

// Overrides are explicit command-line values that take precedence over the
// drop file. Zero values leave the parsed field alone.
type Overrides struct {
	BBSName string
	Node    int
	ComPort string
	Baud    int
}

// Apply returns a copy of info with the overrides applied.
func Apply(info SessionInfo, ov Overrides) SessionInfo {
	out := info
	if info.Extra != nil {
		out.Extra = make(map[int]string, len(info.Extra))
		for k, v := range info.Extra {
			out.Extra[k] = v
		}
	}
	if ov.BBSName != "" {
		out.BBSName = ov.BBSName
	}
	if ov.Node > 0 {
		out.NodeNumber = ov.Node
	}
	if ov.ComPort != "" {
		out.ComPort = ov.ComPort
	}
	if ov.Baud > 0 {
		out.BaudRate = ov.Baud
	}
	return out
}

// Local returns the SessionInfo used when the door runs with no drop file.
func Local(name string, node int) SessionInfo {
	if name == "" {
		name = "Sysop"
	}
	if node <= 0 {
		node = 1
	}
	return SessionInfo{
		CommType:      CommLocal,
		RealName:      name,
		Alias:         name,
		SecurityLevel: 255,
		TimeRemaining: 60,
		Emulation:     EmuANSI,
		NodeNumber:    node,
	}
}

// ParseError reports a drop file that could not be turned into a SessionInfo.
type ParseError struct {
	Path   string
	Line   int // 1-based, 0 when not line-specific
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("drop file %s: line %d (%s): %s", e.Path, e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("drop file %s: %s", e.Path, e.Reason)
}

package dropfile

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	door32Lines  = 11
	doorSysLines = 52
)

// Options control how a drop file is read.
type Options struct {
	Format  Format
	Verbose bool        // echo raw lines and parsed fields to Logger
	Node    int         // searched as node<N> when Parse is given a directory
	Logger  *log.Logger // defaults to the standard logger
}

func (o Options) logf(format string, args ...any) {
	if !o.Verbose {
		return
	}
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Parse reads the drop file at path. If path is a directory, it is searched
// for DOOR32.SYS or DOOR.SYS first, in node<opts.Node> before the directory
// itself.
func Parse(path string, opts Options) (SessionInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return SessionInfo{}, &ParseError{Path: path, Reason: err.Error()}
	}
	if fi.IsDir() {
		found, err := Locate(path, opts.Node)
		if err != nil {
			return SessionInfo{}, err
		}
		path = found
	}

	f, err := os.Open(path)
	if err != nil {
		return SessionInfo{}, &ParseError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	return ParseReader(f, path, opts)
}

// ParseReader parses drop file content. name is used for format detection
// and error messages.
func ParseReader(r io.Reader, name string, opts Options) (SessionInfo, error) {
	lines, err := readLines(r)
	if err != nil {
		return SessionInfo{}, &ParseError{Path: name, Reason: fmt.Sprintf("read: %v", err)}
	}

	opts.logf("Dropfile: %s has %d lines", name, len(lines))
	for i, l := range lines {
		opts.logf("Dropfile: raw %2d: %q", i+1, l)
	}

	format := opts.Format
	if format == FormatAuto {
		format = DetectFormat(name, lines)
	}

	var info SessionInfo
	switch format {
	case FormatDoor32:
		info, err = parseDoor32(name, lines, opts)
	case FormatDoorSys:
		info, err = parseDoorSys(name, lines, opts)
	default:
		return SessionInfo{}, &ParseError{Path: name, Reason: "unrecognised drop file format"}
	}
	if err != nil {
		return SessionInfo{}, err
	}

	info.Format = format
	info.SourcePath = name
	logFields(info, opts)
	return info, nil
}

// DetectFormat guesses the layout from the file name, then from content.
func DetectFormat(name string, lines []string) Format {
	switch strings.ToUpper(filepath.Base(name)) {
	case "DOOR32.SYS":
		return FormatDoor32
	case "DOOR.SYS":
		return FormatDoorSys
	}

	if len(lines) == 0 {
		return FormatAuto
	}
	first := strings.ToUpper(strings.TrimSpace(lines[0]))
	if strings.HasPrefix(first, "COM") {
		return FormatDoorSys
	}
	if len(first) == 1 && first[0] >= '0' && first[0] <= '2' && meaningful(lines) <= door32Lines {
		return FormatDoor32
	}
	if len(lines) > door32Lines {
		return FormatDoorSys
	}
	return FormatAuto
}

func meaningful(lines []string) int {
	n := len(lines)
	for n > 0 && strings.TrimSpace(lines[n-1]) == "" {
		n--
	}
	return n
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024), 64*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), " \t\r\x00\x1a"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	// A trailing ^Z or blank line written by some hosts is not a field.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

func parseDoor32(name string, lines []string, opts Options) (SessionInfo, error) {
	if len(lines) < door32Lines {
		return SessionInfo{}, &ParseError{
			Path:   name,
			Line:   len(lines) + 1,
			Field:  door32Fields[len(lines)],
			Reason: fmt.Sprintf("file ends after %d lines, %d required", len(lines), door32Lines),
		}
	}

	ct, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || ct < int(CommLocal) || ct > int(CommTelnet) {
		return SessionInfo{}, &ParseError{Path: name, Line: 1, Field: "comm type", Reason: fmt.Sprintf("invalid value %q", lines[0])}
	}

	p := fieldParser{name: name, lines: lines, opts: opts}
	info := SessionInfo{
		CommType:         CommType(ct),
		SocketHandle:     uintptr(p.handle(2, "socket handle")),
		BaudRate:         p.number(3, "baud rate"),
		BBSName:          p.text(4),
		UserRecordNumber: p.number(5, "user record"),
		RealName:         p.text(6),
		Alias:            p.text(7),
		SecurityLevel:    p.number(8, "security level"),
		TimeRemaining:    p.number(9, "minutes left"),
		NodeNumber:       p.number(11, "node"),
	}

	emu := p.number(10, "emulation")
	switch {
	case emu <= 0:
		info.Emulation = EmuASCII
	case emu <= int(EmuRIP):
		info.Emulation = Emulation(emu)
	default:
		// 4 = MaxGraphics and later extensions are ANSI supersets.
		info.Emulation = EmuANSI
	}

	if info.CommType != CommTelnet {
		info.SocketHandle = 0
	}
	if extra := lines[door32Lines:]; len(extra) > 0 {
		info.Extra = make(map[int]string, len(extra))
		for i, l := range extra {
			info.Extra[door32Lines+i+1] = l
		}
	}
	return info, nil
}

var door32Fields = [door32Lines]string{
	"comm type", "socket handle", "baud rate", "bbs name", "user record",
	"real name", "alias", "security level", "minutes left", "emulation", "node",
}

// DOOR.SYS positions the door depends on, 1-based.
const (
	dsComPort   = 1
	dsBaud      = 2
	dsNode      = 4
	dsUserName  = 10
	dsSecurity  = 15
	dsMinutes   = 19
	dsGraphics  = 20
	dsUserIndex = 26
)

// doorSysRequired follows the published DOOR.SYS layout (the one BBS hosts
// write): security level on 15, minutes on 19 and graphics on 20.
var doorSysRequired = []struct {
	line  int
	field string
}{
	{dsComPort, "com port"},
	{dsNode, "node"},
	{dsUserName, "user name"},
	{dsSecurity, "security level"},
	{dsMinutes, "minutes left"},
	{dsGraphics, "graphics mode"},
	{dsUserIndex, "user record"},
}

func parseDoorSys(name string, lines []string, opts Options) (SessionInfo, error) {
	for _, req := range doorSysRequired {
		if req.line > len(lines) {
			return SessionInfo{}, &ParseError{
				Path:   name,
				Line:   req.line,
				Field:  req.field,
				Reason: fmt.Sprintf("file ends after %d lines", len(lines)),
			}
		}
	}

	ct, port, err := parseComPort(lines[dsComPort-1])
	if err != nil {
		return SessionInfo{}, &ParseError{Path: name, Line: dsComPort, Field: "com port", Reason: err.Error()}
	}

	p := fieldParser{name: name, lines: lines, opts: opts}
	user := p.text(dsUserName)
	info := SessionInfo{
		CommType:         ct,
		ComPort:          port,
		BaudRate:         p.number(dsBaud, "baud rate"),
		NodeNumber:       p.number(dsNode, "node"),
		RealName:         user,
		Alias:            user,
		SecurityLevel:    p.number(dsSecurity, "security level"),
		TimeRemaining:    p.number(dsMinutes, "minutes left"),
		Emulation:        parseGraphics(p.text(dsGraphics)),
		UserRecordNumber: p.number(dsUserIndex, "user record"),
	}

	info.Extra = make(map[int]string)
	for i, l := range lines {
		if i >= doorSysLines {
			break
		}
		if !doorSysUsed(i + 1) {
			info.Extra[i+1] = l
		}
	}
	return info, nil
}

func doorSysUsed(line int) bool {
	if line == dsBaud {
		return true
	}
	for _, req := range doorSysRequired {
		if req.line == line {
			return true
		}
	}
	return false
}

// parseComPort reads "COM0:", "COM2", or a bare port number.
func parseComPort(s string) (CommType, string, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, ":")
	digits := strings.TrimPrefix(v, "COM")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return CommLocal, "", fmt.Errorf("invalid value %q", s)
	}
	if n == 0 {
		return CommLocal, "", nil
	}
	return CommSerial, fmt.Sprintf("COM%d", n), nil
}

func parseGraphics(s string) Emulation {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GR", "ANSI", "Y":
		return EmuANSI
	case "RIP":
		return EmuRIP
	case "AV", "AVT", "AVATAR":
		return EmuAvatar
	}
	return EmuASCII
}

type fieldParser struct {
	name  string
	lines []string
	opts  Options
}

func (p fieldParser) text(line int) string {
	if line > len(p.lines) {
		return ""
	}
	return strings.TrimSpace(p.lines[line-1])
}

// number parses a numeric field, falling back to 0 on garbage.
func (p fieldParser) number(line int, field string) int {
	s := p.text(line)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.opts.logf("Dropfile: line %d (%s): %q is not a number, using 0", line, field, s)
		return 0
	}
	return n
}

func (p fieldParser) handle(line int, field string) uint64 {
	s := p.text(line)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		p.opts.logf("Dropfile: line %d (%s): %q is not a number, using 0", line, field, s)
		return 0
	}
	return n
}

func logFields(info SessionInfo, opts Options) {
	if !opts.Verbose {
		return
	}
	opts.logf("Dropfile: format=%s comm=%s handle=%d port=%q baud=%d",
		info.Format, info.CommType, info.SocketHandle, info.ComPort, info.BaudRate)
	opts.logf("Dropfile: bbs=%q record=%d real=%q alias=%q",
		info.BBSName, info.UserRecordNumber, info.RealName, info.Alias)
	opts.logf("Dropfile: security=%d minutes=%d emulation=%s node=%d extra=%d",
		info.SecurityLevel, info.TimeRemaining, info.Emulation, info.NodeNumber, len(info.Extra))
}

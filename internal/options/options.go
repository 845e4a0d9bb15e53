// Package options parses the door's command line.
package options

import (
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/notepid/twilight_door/internal/dropfile"
	"github.com/notepid/twilight_door/internal/transport"
)

// Options is the parsed command line.
type Options struct {
	DropFile string
	Dir      string
	Node     int
	Format   dropfile.Format

	Force     transport.Kind
	ForcePort string
	Local     bool
	User      string // local logon name

	Verbose        bool
	SysOpThreshold *int // nil unless given
	BBSName        string
	Port           string
	Baud           int
	ConfigPath     string
	Telnet         bool
	Help           bool
}

// NeedsUsage reports whether the door has nothing to run: no drop file, no
// directory to search and no local logon.
func (o Options) NeedsUsage() bool {
	return o.Help || (o.DropFile == "" && o.Dir == "" && !o.Local)
}

// Overrides returns the drop-file overrides given on the command line.
func (o Options) Overrides() dropfile.Overrides {
	return dropfile.Overrides{BBSName: o.BBSName, Node: o.Node, ComPort: o.Port, Baud: o.Baud}
}

// TransportFlags returns the forced transport choice, if any.
func (o Options) TransportFlags() transport.Flags {
	f := transport.Flags{Force: o.Force, ForcePort: o.ForcePort, Telnet: o.Telnet}
	if o.Local && f.Force == transport.KindNone {
		f.Force = transport.KindLocal
	}
	return f
}

// SessionInfo reads the caller's session from wherever the command line
// points: a local logon, a drop file (or a directory holding one) or a
// --dir search, with the command-line overrides applied.
func (o Options) SessionInfo(verbose bool, logger *log.Logger) (dropfile.SessionInfo, error) {
	if o.Local && o.DropFile == "" && o.Dir == "" {
		return dropfile.Apply(dropfile.Local(o.User, o.Node), o.Overrides()), nil
	}

	path := o.DropFile
	if path == "" {
		p, err := dropfile.Locate(o.Dir, o.Node)
		if err != nil {
			return dropfile.SessionInfo{}, err
		}
		path = p
	}
	info, err := dropfile.Parse(path, dropfile.Options{
		Format:  o.Format,
		Verbose: verbose,
		Logger:  logger,
		Node:    o.Node,
	})
	if err != nil {
		return dropfile.SessionInfo{}, err
	}
	return dropfile.Apply(info, o.Overrides()), nil
}

type rawFlags struct {
	dropFile, dir, format, force, bbsName, port, config, user string
	node, baud, threshold                                     int
	local, verbose, telnet, help                              bool
}

func newFlagSet(r *rawFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("door", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&r.dropFile, "d", "", "")
	fs.StringVar(&r.dropFile, "dropfile", "", "path to DOOR32.SYS or DOOR.SYS (or a directory)")
	fs.StringVar(&r.format, "type", "auto", "drop file type: door32, doorsys or auto")
	fs.StringVar(&r.dir, "dir", "", "directory to search for a drop file")
	fs.IntVar(&r.node, "n", 0, "")
	fs.IntVar(&r.node, "node", 0, "node number (selects node<N> under --dir)")
	fs.StringVar(&r.force, "force", "", "force a transport: socket, stdio, local or serial[:port]")
	fs.BoolVar(&r.local, "l", false, "")
	fs.BoolVar(&r.local, "local", false, "local logon on this console, no drop file")
	fs.StringVar(&r.user, "u", "", "")
	fs.StringVar(&r.user, "user", "", "name for a local logon")
	fs.BoolVar(&r.verbose, "verbose", false, "log every drop file line and parsed field")
	fs.IntVar(&r.threshold, "sysop-threshold", 0, "security level that opens the SysOp console (persisted per BBS)")
	fs.StringVar(&r.bbsName, "bbs-name", "", "override the BBS name")
	fs.StringVar(&r.port, "port", "", "override the serial port")
	fs.IntVar(&r.baud, "baud", 0, "override the baud rate")
	fs.StringVar(&r.config, "config", "door.yaml", "path to configuration file")
	fs.BoolVar(&r.telnet, "telnet", false, "filter telnet IAC sequences on the socket")
	fs.BoolVar(&r.help, "h", false, "")
	fs.BoolVar(&r.help, "help", false, "show this help")
	return fs
}

// flagName returns the name of a flag argument, without dashes or value.
func flagName(arg string) (string, bool) {
	if len(arg) < 2 || arg[0] != '-' || arg == "--" {
		return "", false
	}
	name := strings.TrimLeft(arg, "-")
	name, _, hasValue := strings.Cut(name, "=")
	return name, hasValue
}

type boolFlag interface{ IsBoolFlag() bool }

// Parse reads args (without the program name). Unknown flags and stray
// arguments are returned as warnings and otherwise ignored; only malformed
// values of known flags are errors.
func Parse(args []string) (Options, []string, error) {
	var r rawFlags
	fs := newFlagSet(&r)

	var warnings, kept []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, hasValue := flagName(arg)
		if name == "" {
			if arg == "--" {
				for _, rest := range args[i+1:] {
					warnings = append(warnings, fmt.Sprintf("ignoring argument %q", rest))
				}
				break
			}
			warnings = append(warnings, fmt.Sprintf("ignoring argument %q", arg))
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			warnings = append(warnings, fmt.Sprintf("ignoring unknown option %q", arg))
			continue
		}
		kept = append(kept, arg)
		if bf, ok := f.Value.(boolFlag); ok && bf.IsBoolFlag() {
			continue
		}
		if !hasValue && i+1 < len(args) {
			i++
			kept = append(kept, args[i])
		}
	}

	if err := fs.Parse(kept); err != nil {
		return Options{}, warnings, err
	}

	o := Options{
		DropFile:   r.dropFile,
		Dir:        r.dir,
		Node:       r.node,
		Local:      r.local,
		User:       r.user,
		Verbose:    r.verbose,
		BBSName:    r.bbsName,
		Port:       r.port,
		Baud:       r.baud,
		ConfigPath: r.config,
		Telnet:     r.telnet,
		Help:       r.help,
	}

	format, err := dropfile.ParseFormat(r.format)
	if err != nil {
		return Options{}, warnings, err
	}
	o.Format = format

	if r.force != "" {
		kind, port, err := transport.ParseForce(r.force)
		if err != nil {
			return Options{}, warnings, err
		}
		o.Force, o.ForcePort = kind, port
	}

	if o.Node < 0 {
		return Options{}, warnings, fmt.Errorf("node must not be negative: %d", o.Node)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "sysop-threshold" {
			v := r.threshold
			o.SysOpThreshold = &v
		}
	})
	if o.SysOpThreshold != nil && *o.SysOpThreshold < 0 {
		return Options{}, warnings, fmt.Errorf("sysop threshold must not be negative: %d", *o.SysOpThreshold)
	}

	return o, warnings, nil
}

// Usage writes the help text to w.
func Usage(w io.Writer, program string) {
	fmt.Fprintf(w, `Usage: %s [options]

  -d, --dropfile PATH      drop file (DOOR32.SYS or DOOR.SYS) or a directory holding one
      --type TYPE          drop file type: door32, doorsys or auto (default auto)
      --dir DIR            search DIR (and DIR/node<N>) for a drop file
  -n, --node N             node number
  -l, --local              local logon on this console, no drop file
  -u, --user NAME          name for a local logon
      --force KIND         force a transport: socket, stdio, local or serial[:port]
      --telnet             filter telnet IAC sequences on the socket
      --bbs-name NAME      override the BBS name
      --port PORT          override the serial port
      --baud N             override the baud rate
      --sysop-threshold N  security level that opens the SysOp console
      --config PATH        configuration file (default door.yaml)
      --verbose            log every drop file line and parsed field
  -h, --help               show this help

Exit codes: 0 ok, 1 runtime error, 2 usage, 3 configuration error,
4 no transport available, 5 character already in use.
`, program)
}

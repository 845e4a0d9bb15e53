package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/notepid/twilight_door/internal/ansi"
	"github.com/notepid/twilight_door/internal/charset"
	"github.com/notepid/twilight_door/internal/config"
	"github.com/notepid/twilight_door/internal/db"
	"github.com/notepid/twilight_door/internal/dropfile"
	"github.com/notepid/twilight_door/internal/lobby"
	"github.com/notepid/twilight_door/internal/node"
	"github.com/notepid/twilight_door/internal/options"
	"github.com/notepid/twilight_door/internal/session"
	"github.com/notepid/twilight_door/internal/sysop"
	"github.com/notepid/twilight_door/internal/terminal"
	"github.com/notepid/twilight_door/internal/transport"
)

const (
	exitOK = iota
	exitRuntime
	exitUsage
	exitConfig
	exitNoTransport
	exitInUse
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	program := filepath.Base(os.Args[0])

	opts, warnings, err := options.Parse(args)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s: warning: %s\n", program, w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n\n", program, err)
		options.Usage(os.Stderr, program)
		return exitUsage
	}
	if opts.NeedsUsage() {
		options.Usage(os.Stderr, program)
		return exitUsage
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", program, err)
		return exitConfig
	}
	verbose := opts.Verbose || cfg.Log.Verbose

	// The diagnostic log never goes to stdout: on stdio hosts that is the
	// caller's screen.
	logger, closeLog, err := openLog(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", program, err)
		return exitConfig
	}
	defer closeLog()
	log.SetOutput(logger.Writer())
	log.SetFlags(logger.Flags())

	info, err := opts.SessionInfo(verbose, logger)
	if err != nil {
		logger.Printf("Drop file: %v", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", program, err)
		return exitConfig
	}
	logger.Printf("Session: %s via %s on %s node %d (security %d)",
		displayName(info), info.Format, info.BBSName, info.NodeNumber, info.SecurityLevel)

	// Node tracking and stored thresholds are optional: a broken database
	// must not keep the caller out of the door.
	var (
		database *db.DB
		registry *node.Registry
		store    config.SettingsStore
	)
	database, err = db.Open(cfg.Paths.Database)
	if err != nil {
		logger.Printf("DB: %v; continuing without node tracking", err)
	} else {
		defer database.Close()
		registry = node.NewRegistry(database.DB)
		store = database
	}

	threshold, err := config.ResolveThreshold(store, info.BBSName, opts.SysOpThreshold, &cfg.SysOp.DefaultThreshold)
	if err != nil {
		logger.Printf("DB: %v", err)
	}

	flags := opts.TransportFlags()
	flags.StdioHosts = cfg.Transport.StdioHosts
	flags.Telnet = flags.Telnet || cfg.Transport.TelnetIAC
	flags.LocalUTF8 = cfg.Terminal.UTF8Local

	tr, _, err := transport.DefaultFactory(logger).Open(info, flags)
	if err != nil {
		logger.Printf("Transport: %v", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", program, err)
		return exitNoTransport
	}

	caps := tr.Capabilities()
	enc := charset.Select(caps.Color, caps.UTF8, info.Emulation)
	term := terminal.New(tr, enc,
		terminal.WithLogger(logger),
		terminal.WithWriteRetries(cfg.Transport.WriteRetries),
		terminal.WithMaxLine(cfg.Terminal.MaxLine),
	)

	mgr := &session.Manager{SaveRoot: cfg.Paths.SaveRoot, Logger: logger}
	if registry != nil {
		mgr.Registry = registry
	}
	s, err := mgr.Open(info, term, threshold)
	if errors.Is(err, session.ErrCharacterInUse) {
		term.WriteLine("")
		term.WriteLine("Sorry, " + displayName(info) + " is already playing on another node.")
		term.Close()
		return exitInUse
	}
	if err != nil {
		logger.Printf("Session: %v", err)
		term.Close()
		return exitRuntime
	}
	defer s.Close()

	game := &lobby.Game{
		Display:    ansi.NewLoader(cfg.Paths.Display),
		PageHeight: cfg.Terminal.PageHeight,
		Logger:     logger,
	}
	console := &sysop.Console{Manager: mgr, Logger: logger}
	if registry != nil {
		game.Who = registry
		console.Nodes = registry
	}
	if database != nil {
		console.Settings = database
	}
	game.Console = func(ctx context.Context, s *session.Session) error {
		c := *console
		c.Session = s
		c.OnWipe = func() { game.Reset(s.Identity.Name) }
		return c.Run(ctx)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	err = session.Run(ctx, s, game)
	switch {
	case err == nil:
		logger.Printf("Session: %s quit", s.Identity.Name)
		return exitOK
	case errors.Is(err, session.ErrConnectionLost):
		logger.Printf("Session: %s disconnected: %v", s.Identity.Name, err)
		return exitOK
	default:
		logger.Printf("Session: %s: %v", s.Identity.Name, err)
		return exitRuntime
	}
}

func openLog(path string) (*log.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log %s: %w", path, err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	return log.New(w, fmt.Sprintf("[door %d] ", os.Getpid()), log.LstdFlags), closeFn, nil
}

func displayName(info dropfile.SessionInfo) string {
	if info.Alias != "" {
		return info.Alias
	}
	return info.RealName
}

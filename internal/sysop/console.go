// Package sysop is the administrative console offered to callers whose
// security level meets the SysOp threshold.
package sysop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notepid/twilight_door/internal/db"
	"github.com/notepid/twilight_door/internal/node"
	"github.com/notepid/twilight_door/internal/session"
	"github.com/notepid/twilight_door/internal/terminal"
)

// ErrNotAuthorized is returned when the session was not granted the console.
var ErrNotAuthorized = errors.New("sysop console not authorized")

// Nodes is the node bookkeeping the console shows and prunes.
type Nodes interface {
	List(bbsName string) ([]node.Info, error)
	Prune() (int, error)
}

// Settings persists per-BBS settings.
type Settings interface {
	SaveBBSSettings(s *db.BBSSettings) error
}

// Console is the SysOp menu for one session.
type Console struct {
	Session  *session.Session
	Manager  *session.Manager
	Nodes    Nodes    // optional
	Settings Settings // optional
	Logger   *log.Logger

	// OnWipe is called after the caller's own save was wiped so the game
	// can drop its in-memory state.
	OnWipe func()
}

func (c *Console) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

// Run shows the console until the SysOp leaves it.
func (c *Console) Run(ctx context.Context) error {
	if !c.Session.SysOpConsoleGranted {
		return ErrNotAuthorized
	}
	term := c.Session.Terminal
	c.logf("SysOp: console opened by %s (security %d)", c.Session.Identity.Name, c.Session.Info.SecurityLevel)

	for {
		if err := ctx.Err(); err != nil {
			return terminal.ErrConnectionLost
		}
		if err := c.menu(term); err != nil {
			return err
		}
		k, err := term.Hotkey("Command: ")
		if err != nil {
			return err
		}
		term.WriteLine("")

		switch strings.ToUpper(string(k.Rune)) {
		case "I":
			err = c.showInfo(term)
		case "N":
			err = c.listNodes(term)
		case "W":
			err = c.wipeOwn(term)
		case "D":
			err = c.deletePlayer(term)
		case "T":
			err = c.setThreshold(term)
		case "P":
			err = c.pruneNodes(term)
		case "Q":
			return nil
		default:
			if k.Code == terminal.KeyEscape {
				return nil
			}
			continue
		}
		if errors.Is(err, terminal.ErrConnectionLost) {
			return err
		}
		if err != nil {
			c.logf("SysOp: %v", err)
			term.SetColor("bright_red")
			term.WriteLine("Error: " + err.Error())
			term.SetColor("reset")
		}
	}
}

func (c *Console) menu(term *terminal.Terminal) error {
	term.WriteLine("")
	term.SetColor("bright_white")
	term.WriteLine("SysOp Console")
	term.SetColor("cyan")
	for _, line := range []string{
		"[I] Session info",
		"[N] Nodes online",
		"[W] Wipe my save",
		"[D] Delete a player's save",
		"[T] Set SysOp threshold",
		"[P] Prune stale nodes",
		"[Q] Quit console",
	} {
		term.WriteLine("  " + line)
	}
	return term.SetColor("reset")
}

func (c *Console) showInfo(term *terminal.Terminal) error {
	s := c.Session
	info := s.Info
	rows := [][2]string{
		{"Character", s.Identity.Name},
		{"Real name", info.RealName},
		{"BBS", info.BBSName},
		{"Node", strconv.Itoa(info.NodeNumber)},
		{"Security", fmt.Sprintf("%d (threshold %d)", info.SecurityLevel, s.Threshold)},
		{"Minutes left", strconv.Itoa(info.TimeRemaining)},
		{"Emulation", info.Emulation.String()},
		{"Drop file", fmt.Sprintf("%s %s", info.Format, info.SourcePath)},
		{"Transport", s.Transport.String()},
		{"Save path", s.SavePath},
	}
	for _, r := range rows {
		if err := term.WriteLine(fmt.Sprintf("  %-13s %s", r[0]+":", r[1])); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) listNodes(term *terminal.Terminal) error {
	if c.Nodes == nil {
		return term.WriteLine("Node tracking is not available.")
	}
	nodes, err := c.Nodes.List(c.Session.Info.BBSName)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return term.WriteLine("No nodes in use.")
	}
	for _, n := range nodes {
		state := "online"
		if !n.Alive {
			state = "stale"
		}
		line := fmt.Sprintf("  Node %-3d %-20s %-7s %s since %s",
			n.Node, n.Alias, n.Transport, state, n.StartedAt.Format("15:04"))
		if err := term.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) wipeOwn(term *terminal.Terminal) error {
	ok, err := term.YesNo("Wipe your own save?")
	if err != nil || !ok {
		return err
	}
	if err := clearDir(c.Session.SavePath); err != nil {
		return err
	}
	if c.OnWipe != nil {
		c.OnWipe()
	}
	c.logf("SysOp: %s wiped own save %s", c.Session.Identity.Name, c.Session.SavePath)
	return term.WriteLine("Your save has been wiped.")
}

func (c *Console) deletePlayer(term *terminal.Terminal) error {
	alias, err := term.ReadLine("Player alias: ")
	if err != nil {
		return err
	}
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil
	}
	if strings.EqualFold(alias, c.Session.Identity.Name) {
		return term.WriteLine("Use [W] to wipe your own save.")
	}

	target := c.Session.Info
	target.Alias = alias
	path, err := c.Manager.ResolveSavePath(target)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return term.WriteLine("No save found for " + alias + ".")
	}
	if c.Nodes != nil {
		nodes, err := c.Nodes.List(c.Session.Info.BBSName)
		if err == nil {
			for _, n := range nodes {
				if n.Alive && strings.EqualFold(n.Alias, alias) {
					return term.WriteLine(fmt.Sprintf("%s is playing on node %d.", n.Alias, n.Node))
				}
			}
		}
	}

	ok, err := term.YesNo("Delete the save of " + alias + "?")
	if err != nil || !ok {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete save %s: %w", path, err)
	}
	c.logf("SysOp: %s deleted save of %s (%s)", c.Session.Identity.Name, alias, path)
	return term.WriteLine("Deleted.")
}

func (c *Console) setThreshold(term *terminal.Terminal) error {
	if c.Settings == nil {
		return term.WriteLine("Settings storage is not available.")
	}
	input, err := term.ReadLine(fmt.Sprintf("New threshold (now %d): ", c.Session.Threshold))
	if err != nil {
		return err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 0 || n > 65535 {
		return term.WriteLine("Enter a number between 0 and 65535.")
	}
	if n > c.Session.Info.SecurityLevel {
		ok, err := term.YesNo("That locks you out of this console. Continue?")
		if err != nil || !ok {
			return err
		}
	}
	if err := c.Settings.SaveBBSSettings(&db.BBSSettings{Name: c.Session.Info.BBSName, SysOpThreshold: n}); err != nil {
		return err
	}
	c.logf("SysOp: threshold for %q set to %d by %s", c.Session.Info.BBSName, n, c.Session.Identity.Name)
	c.Session.Threshold = n
	return term.WriteLine(fmt.Sprintf("Threshold set to %d from the next call.", n))
}

func (c *Console) pruneNodes(term *terminal.Terminal) error {
	if c.Nodes == nil {
		return term.WriteLine("Node tracking is not available.")
	}
	n, err := c.Nodes.Prune()
	if err != nil {
		return err
	}
	return term.WriteLine(fmt.Sprintf("Pruned %d stale node(s).", n))
}

// clearDir removes everything inside dir but keeps dir itself. A missing
// directory is recreated empty.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return fmt.Errorf("read save %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("wipe save %s: %w", dir, err)
		}
	}
	return nil
}

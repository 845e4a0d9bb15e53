package lobby

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/notepid/twilight_door/internal/ansi"
	"github.com/notepid/twilight_door/internal/node"
	"github.com/notepid/twilight_door/internal/session"
	"github.com/notepid/twilight_door/internal/terminal"
)

// Who lists the callers on the current BBS.
type Who interface {
	List(bbsName string) ([]node.Info, error)
}

// Game is the lobby.
type Game struct {
	Display    *ansi.Loader // optional
	Who        Who          // optional
	PageHeight int
	Logger     *log.Logger

	// Console opens the SysOp console. It is only offered when the session
	// was granted the console.
	Console func(ctx context.Context, s *session.Session) error

	// IntroDelay is the pause between intro lines.
	IntroDelay time.Duration

	mu    sync.Mutex
	state State
}

func (g *Game) logf(format string, args ...any) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
	}
}

var intro = []string{
	"The lobby hums with the murmur of adventurers.",
	"A notice board lists the day's bounties.",
	"Somewhere a dragon is counting its gold.",
}

// Play implements session.Game.
func (g *Game) Play(ctx context.Context, s *session.Session) error {
	st, err := LoadState(s.SavePath, s.Identity.Name)
	if err != nil {
		g.logf("Lobby: %s: %v; starting fresh", s.SavePath, err)
	}
	st.Visits++
	st.LastPlayed = time.Now()
	g.setState(st)

	term := s.Terminal
	if err := g.welcome(s); err != nil {
		return err
	}
	if err := g.playIntro(ctx, term); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return terminal.ErrConnectionLost
		}
		if err := g.menu(s); err != nil {
			return err
		}
		k, err := term.Hotkey("Your choice: ")
		if err != nil {
			return err
		}
		term.WriteLine("")

		switch strings.ToUpper(string(k.Rune)) {
		case "S":
			err = g.status(term)
		case "W":
			err = g.who(s)
		case "T":
			err = g.train(term)
		case "!":
			if !s.SysOpConsoleGranted || g.Console == nil {
				continue
			}
			err = g.Console(ctx, s)
		case "Q":
			if err := g.save(s); err != nil {
				g.logf("Lobby: save %s: %v", s.SavePath, err)
				term.WriteLine("Your progress could not be saved. The SysOp has been told.")
			}
			term.WriteLine("Farewell, " + s.Identity.Name + ".")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// EmergencySave implements session.Game.
func (g *Game) EmergencySave(s *session.Session) error {
	return g.save(s)
}

// Reset drops the in-memory character, used after a SysOp wipe.
func (g *Game) Reset(name string) {
	g.setState(newState(name))
}

func (g *Game) setState(st State) {
	g.mu.Lock()
	g.state = st
	g.mu.Unlock()
}

// State returns a copy of the current character.
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Game) save(s *session.Session) error {
	st := g.State()
	if st.Name == "" {
		return nil
	}
	return SaveState(s.SavePath, st)
}

func (g *Game) welcome(s *session.Session) error {
	term := s.Terminal
	if err := term.Clear(); err != nil {
		return err
	}
	st := g.State()
	if g.Display != nil {
		df, err := g.Display.Find("welcome", term.Encoder().Colors != 0)
		if err == nil {
			df.Data = ansi.Fill(df.Data, map[string]string{
				"ALIAS":  s.Identity.Name,
				"BBS":    s.Info.BBSName,
				"NODE":   strconv.Itoa(s.Info.NodeNumber),
				"TIME":   strconv.Itoa(s.Info.TimeRemaining),
				"VISITS": strconv.Itoa(st.Visits),
			})
			return ansi.DisplayWithPaging(term, df, g.PageHeight)
		}
	}
	term.SetColor("bright_yellow")
	term.WriteLine("═══ The Twilight Lobby ═══")
	term.SetColor("reset")
	if st.Visits > 1 {
		return term.WriteLine(fmt.Sprintf("Welcome back, %s. This is visit %d.", s.Identity.Name, st.Visits))
	}
	return term.WriteLine(fmt.Sprintf("Welcome, %s. Your adventure begins.", s.Identity.Name))
}

// playIntro prints the intro; any key skips the rest.
func (g *Game) playIntro(ctx context.Context, term *terminal.Terminal) error {
	for _, line := range intro {
		if term.KeyAvailable() {
			if _, err := term.ReadKey(); err != nil {
				return err
			}
			return nil
		}
		if err := term.WriteLine(line); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return terminal.ErrConnectionLost
		case <-time.After(g.IntroDelay):
		}
	}
	return nil
}

func (g *Game) menu(s *session.Session) error {
	term := s.Terminal
	term.WriteLine("")
	term.SetColor("bright_cyan")
	term.WriteLine("[S]tatus  [W]ho's online  [T]rain  [Q]uit")
	if s.SysOpConsoleGranted && g.Console != nil {
		term.WriteLine("[!] SysOp console")
	}
	return term.SetColor("reset")
}

func (g *Game) status(term *terminal.Terminal) error {
	st := g.State()
	lines := []string{
		fmt.Sprintf("Name:   %s", st.Name),
		fmt.Sprintf("Level:  %d", st.Level),
		fmt.Sprintf("Gold:   %d", st.Gold),
		fmt.Sprintf("Visits: %d", st.Visits),
	}
	for _, l := range lines {
		if err := term.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}

func (g *Game) who(s *session.Session) error {
	term := s.Terminal
	if g.Who == nil {
		return term.WriteLine("Only you are here.")
	}
	nodes, err := g.Who.List(s.Info.BBSName)
	if err != nil {
		g.logf("Lobby: who's online: %v", err)
		return term.WriteLine("The guest book is unavailable.")
	}
	count := 0
	for _, n := range nodes {
		if !n.Alive {
			continue
		}
		count++
		if err := term.WriteLine(fmt.Sprintf("  Node %-3d %s", n.Node, n.Alias)); err != nil {
			return err
		}
	}
	if count == 0 {
		return term.WriteLine("Only you are here.")
	}
	return nil
}

func (g *Game) train(term *terminal.Terminal) error {
	g.mu.Lock()
	found := 1 + rand.IntN(10)
	g.state.Gold += found
	if g.state.Gold >= g.state.Level*50 {
		g.state.Level++
	}
	st := g.state
	g.mu.Unlock()
	return term.WriteLine(fmt.Sprintf("You train hard and find %d gold. (Level %d, %d gold)", found, st.Level, st.Gold))
}

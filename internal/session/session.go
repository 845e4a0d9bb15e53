package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/notepid/twilight_door/internal/dropfile"
	"github.com/notepid/twilight_door/internal/terminal"
	"github.com/notepid/twilight_door/internal/transport"
)

// Session is one caller's visit.
type Session struct {
	Info                dropfile.SessionInfo
	Terminal            *terminal.Terminal
	Transport           transport.Kind
	SavePath            string
	SysOpConsoleGranted bool
	Identity            Identity
	Threshold           int

	mgr       *Manager
	claimed   bool
	callID    int64
	endReason string
	closeOnce sync.Once
}

// Close releases the node and closes the terminal. Later calls do nothing.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.mgr != nil && s.mgr.Registry != nil && s.claimed {
			if rerr := s.mgr.Registry.Release(s.Info.BBSName, s.Info.NodeNumber, s.mgr.pid()); rerr != nil {
				s.mgr.logf("Session: %v", rerr)
			}
			if s.callID != 0 {
				reason := s.endReason
				if reason == "" {
					reason = "closed"
				}
				if rerr := s.mgr.Registry.EndCall(s.callID, reason); rerr != nil {
					s.mgr.logf("Session: %v", rerr)
				}
			}
		}
		if s.Terminal != nil {
			err = s.Terminal.Close()
		}
	})
	return err
}

// Game is the program a session runs.
type Game interface {
	// Play runs until the caller quits or an error occurs.
	Play(ctx context.Context, s *Session) error
	// EmergencySave persists whatever state the game holds. It may be
	// called while Play is still unwinding.
	EmergencySave(s *Session) error
}

// shutdownGrace is how long Run waits for Play to notice a cancelled
// context before saving anyway.
var shutdownGrace = 2 * time.Second

// Run plays game on s. If the caller disconnects, ctx is cancelled or the
// game fails, EmergencySave is called before Run returns. A lost connection
// or cancellation yields ErrConnectionLost.
func Run(ctx context.Context, s *Session, game Game) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("game panicked: %v", r)
			}
		}()
		done <- game.Play(ctx, s)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		// Unblock a Play stuck reading from the caller.
		if s.Terminal != nil {
			s.Terminal.Close()
		}
		select {
		case err = <-done:
		case <-time.After(shutdownGrace):
			s.logf("Session: game did not stop within %s", shutdownGrace)
		}
		err = ErrConnectionLost
	}

	switch {
	case err == nil:
		s.endReason = "quit"
		return nil
	case errors.Is(err, ErrConnectionLost) || ctx.Err() != nil:
		s.endReason = "lost"
		err = ErrConnectionLost
	default:
		s.endReason = "error"
		s.logf("Session: game failed: %v", err)
	}

	if serr := emergencySave(s, game); serr != nil {
		s.logf("Session: emergency save for %s failed: %v", s.Identity.Name, serr)
		return fmt.Errorf("%w (emergency save failed: %v)", err, serr)
	}
	s.logf("Session: emergency save for %s complete", s.Identity.Name)
	return err
}

func emergencySave(s *Session, game Game) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("emergency save panicked: %v", r)
		}
	}()
	return game.EmergencySave(s)
}

func (s *Session) logf(format string, args ...any) {
	if s.mgr != nil {
		s.mgr.logf(format, args...)
	}
}

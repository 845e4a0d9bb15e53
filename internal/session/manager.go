// Package session turns a parsed drop file and an open terminal into a
// playable session: per-character save directory, fixed identity, node
// claim and the SysOp gate.
package session

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/notepid/twilight_door/internal/dropfile"
	"github.com/notepid/twilight_door/internal/node"
	"github.com/notepid/twilight_door/internal/terminal"
)

// DefaultThreshold is the security level needed for the SysOp console when
// nothing else is configured.
const DefaultThreshold = 100

var (
	// ErrNoIdentity means the drop file names no user.
	ErrNoIdentity = errors.New("drop file names no user")

	// ErrNameLocked is returned by every attempt to rename a character.
	ErrNameLocked = errors.New("character name is set by the BBS and cannot be changed")

	// ErrCharacterInUse means the character is live on another node.
	ErrCharacterInUse = node.ErrCharacterInUse

	// ErrConnectionLost is returned by Run when the caller went away.
	ErrConnectionLost = terminal.ErrConnectionLost
)

// saveNamespace seeds the name-based ids in save paths. Changing it moves
// every save directory.
var saveNamespace = uuid.MustParse("0c4c1d0e-5b53-4d8e-9a7e-2f3f6d2b9a41")

// NodeRegistry is the node bookkeeping a Manager needs. *node.Registry
// satisfies it.
type NodeRegistry interface {
	Claim(c node.Claim) error
	Release(bbsName string, node, pid int) error
	RecordCall(c node.Call) (int64, error)
	EndCall(id int64, reason string) error
}

// Manager opens sessions.
type Manager struct {
	SaveRoot string
	Registry NodeRegistry // optional
	Logger   *log.Logger
	PID      int // claimant pid, defaults to os.Getpid()
}

func (m *Manager) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
	}
}

func (m *Manager) pid() int {
	if m.PID != 0 {
		return m.PID
	}
	return os.Getpid()
}

// Identity is the character a session plays. Its name comes from the drop
// file and is fixed for the life of the session.
type Identity struct {
	Name    string
	BBSName string
	Node    int
}

// Rename always fails: the BBS owns the caller's name.
func (Identity) Rename(string) error {
	return ErrNameLocked
}

// LockCharacterName derives the identity for info. The alias is used when
// present, otherwise the real name.
func LockCharacterName(info dropfile.SessionInfo) (Identity, error) {
	name := strings.TrimSpace(info.Alias)
	if name == "" {
		name = strings.TrimSpace(info.RealName)
	}
	if name == "" {
		return Identity{}, ErrNoIdentity
	}
	return Identity{Name: name, BBSName: info.BBSName, Node: info.NodeNumber}, nil
}

// IsSysOpAuthorized reports whether info's security level meets threshold.
func IsSysOpAuthorized(info dropfile.SessionInfo, threshold int) bool {
	return info.SecurityLevel >= threshold
}

// ResolveSavePath returns the save directory for info's character:
//
//	<root>/<bbs-slug>-<id>/<alias-slug>-<id>
//
// Names are compared case-insensitively with surrounding space ignored, and
// the ids keep BBSes whose names slug the same apart.
func (m *Manager) ResolveSavePath(info dropfile.SessionInfo) (string, error) {
	id, err := LockCharacterName(info)
	if err != nil {
		return "", err
	}
	bbsKey := foldName(info.BBSName)
	if bbsKey == "" {
		bbsKey = "local"
	}
	charKey := bbsKey + "\x00" + foldName(id.Name)

	bbsDir := slug(bbsKey, "bbs") + "-" + shortID(bbsKey)
	charDir := slug(foldName(id.Name), "player") + "-" + shortID(charKey)
	return filepath.Join(m.SaveRoot, bbsDir, charDir), nil
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func shortID(key string) string {
	return uuid.NewSHA1(saveNamespace, []byte(key)).String()[:8]
}

// slug keeps [a-z0-9] and collapses everything else to single dashes.
func slug(s, fallback string) string {
	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 32 {
		out = strings.TrimSuffix(out[:32], "-")
	}
	if out == "" {
		return fallback
	}
	return out
}

// Open prepares a session for info on term. The SysOp decision is made
// before any save data is touched; the node is claimed last.
func (m *Manager) Open(info dropfile.SessionInfo, term *terminal.Terminal, threshold int) (*Session, error) {
	granted := IsSysOpAuthorized(info, threshold)

	id, err := LockCharacterName(info)
	if err != nil {
		return nil, err
	}

	path, err := m.ResolveSavePath(info)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create save directory %s: %w", path, err)
	}

	s := &Session{
		Info:                info,
		Terminal:            term,
		SavePath:            path,
		SysOpConsoleGranted: granted,
		Identity:            id,
		Threshold:           threshold,
		mgr:                 m,
	}
	if term != nil {
		s.Transport = term.Kind()
	}

	if m.Registry != nil {
		err := m.Registry.Claim(node.Claim{
			BBSName:   info.BBSName,
			Node:      info.NodeNumber,
			Alias:     id.Name,
			PID:       m.pid(),
			Transport: s.Transport.String(),
		})
		switch {
		case errors.Is(err, node.ErrCharacterInUse):
			return nil, err
		case err != nil:
			m.logf("Session: node bookkeeping unavailable: %v", err)
		default:
			s.claimed = true
		}

		if s.claimed {
			callID, err := m.Registry.RecordCall(node.Call{
				BBSName:       info.BBSName,
				Node:          info.NodeNumber,
				Alias:         id.Name,
				SecurityLevel: info.SecurityLevel,
				Transport:     s.Transport.String(),
			})
			if err != nil {
				m.logf("Session: record call: %v", err)
			}
			s.callID = callID
		}
	}

	m.logf("Session: %s on node %d of %q (security %d, sysop %v) saving to %s",
		id.Name, info.NodeNumber, info.BBSName, info.SecurityLevel, granted, path)
	return s, nil
}

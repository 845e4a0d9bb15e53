package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/notepid/twilight_door/internal/charset"
	"github.com/notepid/twilight_door/internal/dropfile"
	"github.com/notepid/twilight_door/internal/node"
	"github.com/notepid/twilight_door/internal/terminal"
	"github.com/notepid/twilight_door/internal/transport"
)

// blockingConn never delivers input until it is closed.
type blockingConn struct {
	once   sync.Once
	closed chan struct{}
}

func newBlockingConn() *blockingConn { return &blockingConn{closed: make(chan struct{})} }

func (c *blockingConn) Read(p []byte) (int, error) {
	<-c.closed
	return 0, io.EOF
}
func (c *blockingConn) Write(p []byte) (int, error) { return len(p), nil }
func (c *blockingConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
func (c *blockingConn) Kind() transport.Kind                 { return transport.KindSocket }
func (c *blockingConn) Capabilities() transport.Capabilities { return transport.Capabilities{RawKeys: true} }

func newTerm() *terminal.Terminal {
	return terminal.New(newBlockingConn(), charset.Encoder{})
}

type fakeRegistry struct {
	claimErr error
	claims   []node.Claim
	released int
	ended    []string
}

func (r *fakeRegistry) Claim(c node.Claim) error {
	if r.claimErr != nil {
		return r.claimErr
	}
	r.claims = append(r.claims, c)
	return nil
}
func (r *fakeRegistry) Release(string, int, int) error { r.released++; return nil }
func (r *fakeRegistry) RecordCall(node.Call) (int64, error) {
	return 7, nil
}
func (r *fakeRegistry) EndCall(id int64, reason string) error {
	r.ended = append(r.ended, reason)
	return nil
}

func caller(bbs, alias string, security int) dropfile.SessionInfo {
	return dropfile.SessionInfo{
		CommType:      dropfile.CommTelnet,
		SocketHandle:  5,
		BBSName:       bbs,
		Alias:         alias,
		RealName:      "Real " + alias,
		SecurityLevel: security,
		NodeNumber:    2,
	}
}

func TestResolveSavePathDeterministic(t *testing.T) {
	m := &Manager{SaveRoot: "/saves"}

	a, err := m.ResolveSavePath(caller("Dragon's Lair", "Zeke", 10))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, _ := m.ResolveSavePath(caller("  dragon's lair", "ZEKE ", 10))
	if a != b {
		t.Fatalf("expected case-folded names to share a path, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, filepath.Join("/saves", "dragon-s-lair-")) {
		t.Fatalf("unexpected path %q", a)
	}

	// Names that slug the same still get separate directories.
	c, _ := m.ResolveSavePath(caller("Dragon's-Lair", "Zeke", 10))
	if filepath.Dir(a) == filepath.Dir(c) {
		t.Fatalf("expected different BBS directories, both %q", filepath.Dir(a))
	}

	d, _ := m.ResolveSavePath(caller("Dragon's Lair", "Ava", 10))
	if filepath.Dir(a) != filepath.Dir(d) || a == d {
		t.Fatalf("expected sibling character dirs, got %q and %q", a, d)
	}
}

func TestResolveSavePathUnsafeNames(t *testing.T) {
	m := &Manager{SaveRoot: "/saves"}
	p, err := m.ResolveSavePath(caller("../../etc", "../root", 10))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(p, "/saves/") || strings.Contains(p, "..") {
		t.Fatalf("expected path inside save root, got %q", p)
	}
}

func TestLockCharacterName(t *testing.T) {
	id, err := LockCharacterName(dropfile.SessionInfo{RealName: "Jane Doe", NodeNumber: 3})
	if err != nil || id.Name != "Jane Doe" {
		t.Fatalf("expected real name fallback, got %+v %v", id, err)
	}
	if err := id.Rename("Hacker"); !errors.Is(err, ErrNameLocked) {
		t.Fatalf("expected ErrNameLocked, got %v", err)
	}
	if id.Name != "Jane Doe" {
		t.Fatalf("name changed to %q", id.Name)
	}
	if _, err := LockCharacterName(dropfile.SessionInfo{}); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestIsSysOpAuthorized(t *testing.T) {
	cases := []struct {
		level, threshold int
		want             bool
	}{
		{100, 100, true},
		{99, 100, false},
		{255, 100, true},
		{0, 0, true},
	}
	for _, c := range cases {
		got := IsSysOpAuthorized(dropfile.SessionInfo{SecurityLevel: c.level}, c.threshold)
		if got != c.want {
			t.Fatalf("level %d threshold %d: expected %v, got %v", c.level, c.threshold, c.want, got)
		}
	}
}

func TestOpenCreatesSaveDirAndClaimsNode(t *testing.T) {
	reg := &fakeRegistry{}
	m := &Manager{SaveRoot: t.TempDir(), Registry: reg, PID: 42}

	s, err := m.Open(caller("BBS", "Zeke", 150), newTerm(), DefaultThreshold)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !s.SysOpConsoleGranted {
		t.Fatal("expected sysop console for level 150")
	}
	if fi, err := os.Stat(s.SavePath); err != nil || !fi.IsDir() {
		t.Fatalf("expected save dir %s: %v", s.SavePath, err)
	}
	if len(reg.claims) != 1 || reg.claims[0].Alias != "Zeke" || reg.claims[0].PID != 42 || reg.claims[0].Node != 2 {
		t.Fatalf("unexpected claims %+v", reg.claims)
	}

	s.Close()
	s.Close()
	if reg.released != 1 || len(reg.ended) != 1 {
		t.Fatalf("expected one release and one call end, got %d %v", reg.released, reg.ended)
	}
}

func TestOpenCharacterInUse(t *testing.T) {
	reg := &fakeRegistry{claimErr: node.ErrCharacterInUse}
	m := &Manager{SaveRoot: t.TempDir(), Registry: reg}

	_, err := m.Open(caller("BBS", "Zeke", 10), newTerm(), DefaultThreshold)
	if !errors.Is(err, ErrCharacterInUse) {
		t.Fatalf("expected ErrCharacterInUse, got %v", err)
	}
}

func TestOpenRegistryFailureIsNotFatal(t *testing.T) {
	reg := &fakeRegistry{claimErr: errors.New("database is locked")}
	m := &Manager{SaveRoot: t.TempDir(), Registry: reg}

	s, err := m.Open(caller("BBS", "Zeke", 10), newTerm(), DefaultThreshold)
	if err != nil {
		t.Fatalf("expected session despite bookkeeping failure, got %v", err)
	}
	s.Close()
	if reg.released != 0 {
		t.Fatal("expected no release for an unclaimed node")
	}
}

type testGame struct {
	play  func(ctx context.Context, s *Session) error
	saves int
}

func (g *testGame) Play(ctx context.Context, s *Session) error { return g.play(ctx, s) }
func (g *testGame) EmergencySave(*Session) error {
	g.saves++
	return nil
}

func openTestSession(t *testing.T) *Session {
	t.Helper()
	m := &Manager{SaveRoot: t.TempDir()}
	s, err := m.Open(caller("BBS", "Zeke", 10), newTerm(), DefaultThreshold)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunNormalQuitSkipsEmergencySave(t *testing.T) {
	s := openTestSession(t)
	g := &testGame{play: func(context.Context, *Session) error { return nil }}
	if err := Run(context.Background(), s, g); err != nil {
		t.Fatalf("run: %v", err)
	}
	if g.saves != 0 {
		t.Fatalf("expected no emergency save, got %d", g.saves)
	}
}

func TestRunSavesOnConnectionLoss(t *testing.T) {
	s := openTestSession(t)
	g := &testGame{play: func(_ context.Context, s *Session) error {
		s.Terminal.Close()
		_, err := s.Terminal.ReadKey()
		return err
	}}
	if err := Run(context.Background(), s, g); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if g.saves != 1 {
		t.Fatalf("expected one emergency save, got %d", g.saves)
	}
}

func TestRunSavesOnCancel(t *testing.T) {
	s := openTestSession(t)
	g := &testGame{play: func(_ context.Context, s *Session) error {
		_, err := s.Terminal.ReadKey()
		return err
	}}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	if err := Run(ctx, s, g); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if g.saves != 1 {
		t.Fatalf("expected one emergency save, got %d", g.saves)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	s := openTestSession(t)
	g := &testGame{play: func(context.Context, *Session) error { panic("dragon ate the save") }}

	err := Run(context.Background(), s, g)
	if err == nil || !strings.Contains(err.Error(), "dragon ate the save") {
		t.Fatalf("expected panic error, got %v", err)
	}
	if g.saves != 1 {
		t.Fatalf("expected one emergency save, got %d", g.saves)
	}
}

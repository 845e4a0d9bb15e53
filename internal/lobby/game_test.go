package lobby

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notepid/twilight_door/internal/ansi"
	"github.com/notepid/twilight_door/internal/charset"
	"github.com/notepid/twilight_door/internal/dropfile"
	"github.com/notepid/twilight_door/internal/node"
	"github.com/notepid/twilight_door/internal/session"
	"github.com/notepid/twilight_door/internal/terminal"
	"github.com/notepid/twilight_door/internal/transport"
)

type scripted struct {
	in  io.Reader
	out bytes.Buffer
}

func (s *scripted) Read(p []byte) (int, error)           { return s.in.Read(p) }
func (s *scripted) Write(p []byte) (int, error)          { return s.out.Write(p) }
func (s *scripted) Close() error                         { return nil }
func (s *scripted) Kind() transport.Kind                 { return transport.KindStdio }
func (s *scripted) Capabilities() transport.Capabilities { return transport.Capabilities{RawKeys: true} }

type fakeWho []node.Info

func (f fakeWho) List(string) ([]node.Info, error) { return f, nil }

func openSession(t *testing.T, root, keys string, level int) (*session.Session, *scripted) {
	t.Helper()
	conn := &scripted{in: strings.NewReader(keys)}
	term := terminal.New(conn, charset.Encoder{})
	m := &session.Manager{SaveRoot: root}
	info := dropfile.SessionInfo{BBSName: "Zone", Alias: "Ava", SecurityLevel: level, NodeNumber: 2, TimeRemaining: 30}
	s, err := m.Open(info, term, session.DefaultThreshold)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, conn
}

func TestQuitSavesAndReturns(t *testing.T) {
	root := t.TempDir()
	s, out := openSession(t, root, "STQ", 10)
	g := &Game{}
	if err := session.Run(context.Background(), s, g); err != nil {
		t.Fatalf("run: %v", err)
	}
	st, err := LoadState(s.SavePath, "Ava")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Visits != 1 || st.Gold == 0 {
		t.Fatalf("unexpected saved state %+v", st)
	}
	if !strings.Contains(out.out.String(), "Farewell, Ava.") {
		t.Fatalf("expected farewell:\n%s", out.out.String())
	}

	s2, out2 := openSession(t, root, "Q", 10)
	if err := session.Run(context.Background(), s2, &Game{}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(out2.out.String(), "visit 2") {
		t.Fatalf("expected returning welcome:\n%s", out2.out.String())
	}
}

func TestHangupTriggersEmergencySave(t *testing.T) {
	s, _ := openSession(t, t.TempDir(), "T", 10)
	g := &Game{}
	err := session.Run(context.Background(), s, g)
	if !errors.Is(err, terminal.ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	st, err := LoadState(s.SavePath, "Ava")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Visits != 1 || st.Gold == 0 {
		t.Fatalf("expected trained state to be saved, got %+v", st)
	}
}

func TestCorruptSaveStartsFresh(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, SaveFile), []byte("gold: [unterminated"), 0644)
	st, err := LoadState(dir, "Ava")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if st.Name != "Ava" || st.Level != 1 || st.Gold != 0 {
		t.Fatalf("expected fresh state, got %+v", st)
	}
}

func TestSaveKeepsLockedName(t *testing.T) {
	dir := t.TempDir()
	if err := SaveState(dir, State{Name: "Mallory", Level: 3, Gold: 9}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, err := LoadState(dir, "Ava")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Name != "Ava" || st.Level != 3 || st.Gold != 9 {
		t.Fatalf("unexpected state %+v", st)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the save file, got %d entries", len(entries))
	}
}

func TestWhoListsLiveNodes(t *testing.T) {
	s, out := openSession(t, t.TempDir(), "WQ", 10)
	g := &Game{Who: fakeWho{
		{Node: 2, Alias: "Ava", Alive: true},
		{Node: 5, Alias: "Ghost", Alive: false},
	}}
	if err := session.Run(context.Background(), s, g); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.out.String()
	if !strings.Contains(text, "Node 2") || strings.Contains(text, "Ghost") {
		t.Fatalf("unexpected who output:\n%s", text)
	}
}

func TestSysOpConsoleOnlyWhenGranted(t *testing.T) {
	opened := 0
	console := func(context.Context, *session.Session) error {
		opened++
		return nil
	}

	s, out := openSession(t, t.TempDir(), "!Q", 10)
	if err := session.Run(context.Background(), s, &Game{Console: console}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if opened != 0 || strings.Contains(out.out.String(), "SysOp console") {
		t.Fatal("expected console hidden from a regular caller")
	}

	s, out = openSession(t, t.TempDir(), "!Q", 200)
	if err := session.Run(context.Background(), s, &Game{Console: console}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if opened != 1 || !strings.Contains(out.out.String(), "SysOp console") {
		t.Fatalf("expected console opened once, got %d", opened)
	}
}

func TestWelcomeScreenFromDisplayDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "welcome.asc"), []byte("Hi {{ALIAS}} on node {{NODE}}\r\n"), 0644)
	s, out := openSession(t, t.TempDir(), "Q", 10)
	g := &Game{Display: ansi.NewLoader(dir)}
	if err := session.Run(context.Background(), s, g); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.out.String()
	if !strings.Contains(text, "Hi Ava ") || !strings.Contains(text, "on node 2") {
		t.Fatalf("expected filled welcome screen:\n%s", text)
	}
}

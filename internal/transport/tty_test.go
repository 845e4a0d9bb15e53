//go:build linux

package transport

import (
	"io"
	"os"
	"testing"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

func openPTY(t *testing.T) (ptmx, tty *os.File) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		ptmx.Close()
		tty.Close()
	})
	return ptmx, tty
}

func TestSerialOverPTY(t *testing.T) {
	ptmx, tty := openPTY(t)

	s, err := NewSerial(tty.Name(), 38400)
	if err != nil {
		t.Fatalf("NewSerial: %v", err)
	}
	defer s.Close()

	if s.Kind() != KindSerial {
		t.Fatalf("expected serial kind, got %s", s.Kind())
	}

	if _, err := s.Write([]byte("ATZ\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(ptmx, buf); err != nil {
		t.Fatalf("ptmx read: %v", err)
	}
	if string(buf) != "ATZ\r\n" {
		t.Fatalf("expected raw output, got %q", buf)
	}

	if _, err := ptmx.Write([]byte("k")); err != nil {
		t.Fatalf("ptmx write: %v", err)
	}
	if !waitPending(t, s) {
		t.Fatal("expected pending input")
	}
	if _, err := io.ReadFull(s, buf[:1]); err != nil || buf[0] != 'k' {
		t.Fatalf("expected k, got %q %v", buf[:1], err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSerialMissingPort(t *testing.T) {
	if _, err := NewSerial("/dev/does-not-exist-door", 9600); err == nil {
		t.Fatal("expected error for missing device")
	}
}

func TestLocalConsoleRawMode(t *testing.T) {
	_, tty := openPTY(t)

	c, err := NewLocalConsole(tty, tty, true)
	if err != nil {
		t.Fatalf("NewLocalConsole: %v", err)
	}
	caps := c.Capabilities()
	if !caps.Color || !caps.RawKeys || !caps.UTF8 {
		t.Fatalf("unexpected capabilities %+v", caps)
	}

	termios, err := unix.IoctlGetTermios(int(tty.Fd()), unix.TCGETS)
	if err != nil {
		t.Fatalf("tcgets: %v", err)
	}
	if termios.Lflag&unix.ICANON != 0 {
		t.Fatal("expected canonical mode off while console is open")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	termios, err = unix.IoctlGetTermios(int(tty.Fd()), unix.TCGETS)
	if err != nil {
		t.Fatalf("tcgets: %v", err)
	}
	if termios.Lflag&unix.ICANON == 0 {
		t.Fatal("expected canonical mode restored after close")
	}
}

func TestLocalConsoleRedirected(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	c, err := NewLocalConsole(r, w, false)
	if err != nil {
		t.Fatalf("NewLocalConsole: %v", err)
	}
	defer c.Close()

	caps := c.Capabilities()
	if caps.Color || caps.RawKeys {
		t.Fatalf("expected no color or raw keys on pipes, got %+v", caps)
	}
	if _, err := c.Pending(); err == nil {
		t.Fatal("expected polling to be unsupported on a pipe")
	}
}

func TestStdioRequiresStreams(t *testing.T) {
	if _, err := NewStdio(nil, os.Stdout); err == nil {
		t.Fatal("expected error for missing stdin")
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	r.Close()
	if _, err := NewStdio(r, w); err == nil {
		t.Fatal("expected error for closed stdin")
	}
	w.Close()
}

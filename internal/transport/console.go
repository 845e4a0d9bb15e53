package transport

import (
	"os"
	"sync"

	"golang.org/x/term"
)

// LocalConsole is the sysop's own terminal, used for local logons and as the
// last resort when nothing else opens.
type LocalConsole struct {
	in   *os.File
	out  *os.File
	utf8 bool

	state *term.State // non-nil while the input is in raw mode
	color bool

	closeOnce sync.Once
}

// NewLocalConsole puts in into raw mode when it is a terminal. Redirected
// input is read line by line as the OS delivers it.
func NewLocalConsole(in, out *os.File, utf8 bool) (*LocalConsole, error) {
	c := &LocalConsole{in: in, out: out, utf8: utf8}
	if term.IsTerminal(int(in.Fd())) {
		state, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return nil, err
		}
		c.state = state
	}
	c.color = term.IsTerminal(int(out.Fd()))
	return c, nil
}

func (c *LocalConsole) Kind() Kind { return KindLocal }

func (c *LocalConsole) Capabilities() Capabilities {
	return Capabilities{Color: c.color, RawKeys: c.state != nil, UTF8: c.utf8}
}

func (c *LocalConsole) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *LocalConsole) Write(p []byte) (int, error) { return c.out.Write(p) }

// Pending reports waiting keystrokes. Only a raw terminal can be polled.
func (c *LocalConsole) Pending() (bool, error) {
	if c.state == nil {
		return false, errPollUnsupported
	}
	raw, err := c.in.SyscallConn()
	if err != nil {
		return false, err
	}
	return pendingRaw(raw)
}

// Close restores the terminal mode. The streams themselves stay open.
func (c *LocalConsole) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.state != nil {
			err = term.Restore(int(c.in.Fd()), c.state)
		}
	})
	return err
}

var (
	_ Transport = (*LocalConsole)(nil)
	_ Poller    = (*LocalConsole)(nil)
)

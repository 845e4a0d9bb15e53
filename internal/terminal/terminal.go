// Package terminal is the door's only view of the caller: text, color and
// keystrokes over whichever transport the session was given.
package terminal

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/notepid/twilight_door/internal/charset"
	"github.com/notepid/twilight_door/internal/transport"
)

// ErrConnectionLost is returned once the caller is gone. Every operation
// after the first loss returns it without touching the transport.
var ErrConnectionLost = errors.New("connection lost")

const (
	DefaultWriteRetries = 3
	DefaultMaxLine      = 255
)

// Terminal presents a transport as a BBS terminal.
type Terminal struct {
	tr     transport.Transport
	enc    charset.Encoder
	caps   transport.Capabilities
	in     *bufio.Reader
	logger *log.Logger

	writeRetries int
	retryDelay   time.Duration
	maxLine      int

	// afterCR is set after a CR so that a following LF or NUL is folded
	// into the same Enter.
	afterCR bool

	mu        sync.Mutex // serialises writes
	lost      bool
	lostMu    sync.Mutex
	closeOnce sync.Once
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithLogger sets the diagnostic logger for write retries and losses.
func WithLogger(l *log.Logger) Option {
	return func(t *Terminal) { t.logger = l }
}

// WithWriteRetries sets how many consecutive failed writes are tolerated.
func WithWriteRetries(n int) Option {
	return func(t *Terminal) {
		if n > 0 {
			t.writeRetries = n
		}
	}
}

// WithMaxLine sets the longest line ReadLine accepts.
func WithMaxLine(n int) Option {
	return func(t *Terminal) {
		if n > 0 {
			t.maxLine = n
		}
	}
}

// New wraps tr. enc decides how text and colors are rendered.
func New(tr transport.Transport, enc charset.Encoder, opts ...Option) *Terminal {
	t := &Terminal{
		tr:           tr,
		enc:          enc,
		caps:         tr.Capabilities(),
		in:           bufio.NewReaderSize(tr, 512),
		writeRetries: DefaultWriteRetries,
		retryDelay:   20 * time.Millisecond,
		maxLine:      DefaultMaxLine,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) logf(format string, args ...any) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}

// Capabilities returns what the transport reported at construction.
func (t *Terminal) Capabilities() transport.Capabilities { return t.caps }

// Encoder returns the encoder used for output.
func (t *Terminal) Encoder() charset.Encoder { return t.enc }

// Kind returns the underlying transport kind.
func (t *Terminal) Kind() transport.Kind { return t.tr.Kind() }

// Lost reports whether the connection has been declared lost.
func (t *Terminal) Lost() bool {
	t.lostMu.Lock()
	defer t.lostMu.Unlock()
	return t.lost
}

func (t *Terminal) markLost(reason error) error {
	t.lostMu.Lock()
	first := !t.lost
	t.lost = true
	t.lostMu.Unlock()
	if first && reason != nil {
		t.logf("Terminal: connection lost on %s: %v", t.tr.Kind(), reason)
	}
	return ErrConnectionLost
}

// Close closes the transport. Later calls do nothing.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.markLost(nil)
		err = t.tr.Close()
	})
	return err
}

// Clear clears the screen.
func (t *Terminal) Clear() error {
	return t.WriteRaw(t.enc.ClearScreen())
}

// Write sends text without a line ending.
func (t *Terminal) Write(text string) error {
	return t.WriteRaw(t.enc.EncodeText(text))
}

// WriteLine sends text followed by a line ending.
func (t *Terminal) WriteLine(text string) error {
	return t.WriteRaw(t.enc.EncodeText(text + "\n"))
}

// SetColor switches the foreground color. Unknown names and color-less
// terminals are a no-op.
func (t *Terminal) SetColor(name string) error {
	b := t.enc.EncodeColor(name)
	if len(b) == 0 {
		return nil
	}
	return t.WriteRaw(b)
}

// WriteRaw sends bytes untranslated. A failing write is retried; after
// the retry budget is spent the connection is declared lost.
func (t *Terminal) WriteRaw(b []byte) error {
	if t.Lost() {
		return ErrConnectionLost
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	failures := 0
	for len(b) > 0 {
		n, err := t.tr.Write(b)
		b = b[n:]
		if err == nil && n > 0 {
			failures = 0
			continue
		}
		if err == nil {
			err = io.ErrShortWrite
		}
		failures++
		if failures >= t.writeRetries {
			return t.markLost(err)
		}
		t.logf("Terminal: write failed (%d/%d): %v", failures, t.writeRetries, err)
		time.Sleep(t.retryDelay)
	}
	return nil
}

func (t *Terminal) readByte() (byte, error) {
	if t.Lost() {
		return 0, ErrConnectionLost
	}
	b, err := t.in.ReadByte()
	if err != nil {
		return 0, t.markLost(err)
	}
	return b, nil
}

// ReadKey blocks for one keypress.
func (t *Terminal) ReadKey() (Key, error) {
	for {
		b, err := t.readByte()
		if err != nil {
			return Key{}, err
		}
		if t.afterCR {
			t.afterCR = false
			if b == '\n' || b == 0 {
				continue
			}
		}

		switch {
		case b == '\r':
			t.afterCR = true
			return Key{Rune: '\r', Code: KeyEnter}, nil
		case b == '\n':
			return Key{Rune: '\n', Code: KeyEnter}, nil
		case b == 0:
			continue
		case b == 8 || b == 127:
			return Key{Rune: rune(b), Code: KeyBackspace}, nil
		case b == '\t':
			return Key{Rune: '\t', Code: KeyTab}, nil
		case b == 27:
			return t.readEscape(), nil
		case b < 0x80:
			return Key{Rune: rune(b)}, nil
		}
		return t.decodeHigh(b), nil
	}
}

// readEscape decodes cursor keys when the whole sequence has already
// arrived. A lone ESC is returned as Escape.
func (t *Terminal) readEscape() Key {
	if t.in.Buffered() < 2 {
		return Key{Rune: 27, Code: KeyEscape}
	}
	seq, err := t.in.Peek(2)
	if err != nil || (seq[0] != '[' && seq[0] != 'O') {
		return Key{Rune: 27, Code: KeyEscape}
	}
	code, ok := cursorKeys[seq[1]]
	if !ok {
		return Key{Rune: 27, Code: KeyEscape}
	}
	t.in.Discard(2)
	return Key{Code: code}
}

func (t *Terminal) decodeHigh(b byte) Key {
	if t.enc.Mode != charset.ModeUTF8 {
		return Key{Rune: t.enc.DecodeByte(b)}
	}
	if err := t.in.UnreadByte(); err != nil {
		return Key{Rune: utf8.RuneError}
	}
	r, _, err := t.in.ReadRune()
	if err != nil {
		return Key{Rune: utf8.RuneError}
	}
	return Key{Rune: r}
}

// ReadLine shows prompt and reads a line. When the terminal sends raw keys
// the input is echoed and backspace erases. An empty line is not an error.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		if err := t.Write(prompt); err != nil {
			return "", err
		}
	}
	echo := t.caps.RawKeys
	var line []rune
	for {
		k, err := t.ReadKey()
		if err != nil {
			return "", err
		}
		switch {
		case k.Code == KeyEnter:
			if echo {
				if err := t.WriteRaw([]byte("\r\n")); err != nil {
					return "", err
				}
			}
			return string(line), nil
		case k.Code == KeyBackspace:
			if len(line) == 0 {
				continue
			}
			line = line[:len(line)-1]
			if echo {
				if err := t.WriteRaw([]byte("\b \b")); err != nil {
					return "", err
				}
			}
		case k.Printable():
			if len(line) >= t.maxLine {
				continue
			}
			line = append(line, k.Rune)
			if echo {
				if err := t.Write(string(k.Rune)); err != nil {
					return "", err
				}
			}
		}
	}
}

// KeyAvailable reports whether a key can be read without blocking.
// Transports that cannot be polled report false.
func (t *Terminal) KeyAvailable() bool {
	if t.Lost() {
		return false
	}
	if t.afterCR && t.in.Buffered() > 0 {
		if b, err := t.in.Peek(1); err == nil && (b[0] == '\n' || b[0] == 0) {
			t.in.Discard(1)
			t.afterCR = false
		}
	}
	if t.in.Buffered() > 0 {
		return true
	}
	p, ok := t.tr.(transport.Poller)
	if !ok {
		return false
	}
	pending, err := p.Pending()
	if err != nil {
		return false
	}
	return pending
}

// Pause prints prompt and waits for any key.
func (t *Terminal) Pause(prompt string) error {
	if prompt == "" {
		prompt = "Press any key to continue..."
	}
	if err := t.SetColor("bright_cyan"); err != nil {
		return err
	}
	if err := t.Write(prompt); err != nil {
		return err
	}
	if err := t.SetColor("reset"); err != nil {
		return err
	}
	if _, err := t.ReadKey(); err != nil {
		return err
	}
	return t.WriteLine("")
}

// PauseWithTimeout waits up to timeout for a key and consumes it if one
// arrives. It reports whether a key was pressed. Transports that cannot be
// polled simply wait out the timeout.
func (t *Terminal) PauseWithTimeout(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if t.Lost() {
			return false, ErrConnectionLost
		}
		if t.KeyAvailable() {
			_, err := t.ReadKey()
			return err == nil, err
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false, nil
}

// YesNo shows prompt and waits for Y or N.
func (t *Terminal) YesNo(prompt string) (bool, error) {
	if err := t.Write(prompt + " (Y/N) "); err != nil {
		return false, err
	}
	for {
		k, err := t.ReadKey()
		if err != nil {
			return false, err
		}
		switch strings.ToUpper(string(k.Rune)) {
		case "Y":
			return true, t.WriteLine("Yes")
		case "N":
			return false, t.WriteLine("No")
		}
	}
}

// Hotkey shows prompt and returns the next key.
func (t *Terminal) Hotkey(prompt string) (Key, error) {
	if err := t.Write(prompt); err != nil {
		return Key{}, err
	}
	return t.ReadKey()
}

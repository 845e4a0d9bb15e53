package terminal

// KeyCode classifies a keypress.
type KeyCode int

const (
	KeyRune KeyCode = iota // an ordinary character, see Key.Rune
	KeyEnter
	KeyBackspace
	KeyTab
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
)

func (k KeyCode) String() string {
	switch k {
	case KeyEnter:
		return "enter"
	case KeyBackspace:
		return "backspace"
	case KeyTab:
		return "tab"
	case KeyEscape:
		return "escape"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyRight:
		return "right"
	case KeyLeft:
		return "left"
	}
	return "rune"
}

// Key is one decoded keypress.
type Key struct {
	Rune rune
	Code KeyCode
}

// Printable reports whether the key inserts a visible character.
func (k Key) Printable() bool {
	return k.Code == KeyRune && k.Rune >= 32 && k.Rune != 127
}

// cursorKeys maps the final byte of ESC [ x and ESC O x.
var cursorKeys = map[byte]KeyCode{
	'A': KeyUp,
	'B': KeyDown,
	'C': KeyRight,
	'D': KeyLeft,
}

package charset

import "fmt"

// ANSI attribute sequences matching the BBS standard.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
)

// ClearScreenANSI clears the screen and homes the cursor.
const ClearScreenANSI = "\033[2J\033[1;1H"

// Avatar/0 control codes.
const (
	avatarClear  = 0x0c // ^L
	avatarPrefix = 0x16 // ^V
	avatarAttr   = 0x01 // ^V^A <attr>
)

// Color is one of the 16 PC text colors: 0-7 base, 8-15 bright.
type Color int

const (
	Black Color = iota
	Red
	Green
	Yellow // "brown" when not bright
	Blue
	Magenta
	Cyan
	White // light gray when not bright
)

// Bright returns the high-intensity variant.
func (c Color) Bright() Color { return c | 8 }

// IsBright reports whether c is a high-intensity color.
func (c Color) IsBright() bool { return c&8 != 0 }

// sgr returns the ANSI SGR sequence for c. Bright colors are bold+base,
// which is what DOS-era terminals render.
func (c Color) sgr() string {
	base := 30 + int(c&7)
	if c.IsBright() {
		return fmt.Sprintf("\033[1;%dm", base)
	}
	return fmt.Sprintf("\033[0;%dm", base)
}

// ansiToPC maps ANSI color order (red=1, blue=4) to the PC attribute order
// Avatar uses (blue=1, red=4).
var ansiToPC = [8]byte{0, 4, 2, 6, 1, 5, 3, 7}

// avatar returns the Avatar/0 attribute sequence for c on a black background.
func (c Color) avatar() []byte {
	attr := ansiToPC[c&7]
	if c.IsBright() {
		attr |= 8
	}
	return []byte{avatarPrefix, avatarAttr, attr}
}

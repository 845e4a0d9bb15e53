// Package charset translates the game's Unicode output into what a BBS
// caller's terminal understands: CP437 bytes and ANSI or Avatar color codes,
// or plain UTF-8 for a modern local console.
package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/notepid/twilight_door/internal/dropfile"
)

// Mode selects the output character set.
type Mode int

const (
	ModeCP437 Mode = iota
	ModeUTF8
)

// ColorMode selects how color requests are rendered.
type ColorMode int

const (
	ColorNone ColorMode = iota
	ColorANSI
	ColorAvatar
)

// Placeholder is emitted for characters with no CP437 or ASCII equivalent.
const Placeholder = '?'

// Encoder converts text and color names to terminal bytes. It is a plain
// value with no session state and is safe for concurrent use.
type Encoder struct {
	Mode   Mode
	Colors ColorMode
}

// Select picks the encoder for a transport's capabilities and the caller's
// emulation.
func Select(color, native bool, emu dropfile.Emulation) Encoder {
	e := Encoder{Mode: ModeCP437}
	if native {
		e.Mode = ModeUTF8
	}
	if color && emu != dropfile.EmuASCII {
		e.Colors = ColorANSI
		if emu == dropfile.EmuAvatar {
			e.Colors = ColorAvatar
		}
	}
	return e
}

// EncodeText converts s for the wire. Bare LF becomes CRLF. It never fails:
// characters the target cannot show degrade to an ASCII look-alike or
// Placeholder.
func (e Encoder) EncodeText(s string) []byte {
	out := make([]byte, 0, len(s)+8)
	var prev rune
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			out = append(out, Placeholder)
			i += size
			prev = r
			continue
		}
		i += size

		if r == '\n' && prev != '\r' {
			out = append(out, '\r', '\n')
			prev = r
			continue
		}
		prev = r

		if e.Mode == ModeUTF8 {
			out = utf8.AppendRune(out, r)
			continue
		}
		out = appendCP437(out, r)
	}
	return out
}

func appendCP437(out []byte, r rune) []byte {
	if r < 0x80 {
		return append(out, byte(r))
	}
	if b, ok := charmap.CodePage437.EncodeRune(r); ok {
		return append(out, b)
	}
	if s, ok := asciiFold[r]; ok {
		return append(out, s...)
	}
	// Strip accents and other combining marks: "ā" -> "a".
	for _, d := range norm.NFD.String(string(r)) {
		if d < 0x80 {
			return append(out, byte(d))
		}
		if b, ok := charmap.CodePage437.EncodeRune(d); ok {
			return append(out, b)
		}
		break
	}
	return append(out, Placeholder)
}

// asciiFold covers common typography CP437 lacks.
var asciiFold = map[rune]string{
	'‘': "'", '’': "'", '‚': ",", '‛': "'",
	'“': `"`, '”': `"`, '„': `"`, '′': "'", '″': `"`,
	'‐': "-", '‑': "-", '‒': "-", '–': "-", '—': "--", '―': "--",
	'…': "...", '•': "*", '©': "(c)", '®': "(R)", '™': "TM",
	'←': "<-", '→': "->", '↑': "^", '↓': "v",
	'‹': "<", '›': ">", '«': "<<", '»': ">>",
	'×': "x", '⁄': "/", '€': "EUR",
}

// EncodeColor returns the escape sequence for a named color, or nothing when
// colors are disabled or the name is unknown.
func (e Encoder) EncodeColor(name string) []byte {
	if e.Colors == ColorNone {
		return nil
	}
	key := normalizeColorName(name)
	if key == "reset" || key == "normal" || key == "default" {
		if e.Colors == ColorAvatar {
			return White.avatar()
		}
		return []byte(Reset)
	}
	c, ok := colorNames[key]
	if !ok {
		return nil
	}
	if e.Colors == ColorAvatar {
		return c.avatar()
	}
	return []byte(c.sgr())
}

// ClearScreen returns the sequence that clears the caller's screen.
func (e Encoder) ClearScreen() []byte {
	switch e.Colors {
	case ColorANSI:
		return []byte(ClearScreenANSI)
	case ColorAvatar:
		return []byte{avatarClear}
	}
	return []byte(strings.Repeat("\r\n", 24))
}

// DecodeByte maps one input byte to a rune. High CP437 bytes from the caller
// become their Unicode equivalents.
func (e Encoder) DecodeByte(b byte) rune {
	if b < 0x80 || e.Mode == ModeUTF8 {
		return rune(b)
	}
	return charmap.CodePage437.DecodeByte(b)
}

func normalizeColorName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if rest, ok := strings.CutPrefix(s, "light_"); ok && rest != "gray" && rest != "grey" {
		s = "bright_" + rest
	}
	return s
}

var colorNames = map[string]Color{
	"black":          Black,
	"red":            Red,
	"green":          Green,
	"yellow":         Yellow,
	"brown":          Yellow,
	"blue":           Blue,
	"magenta":        Magenta,
	"cyan":           Cyan,
	"white":          White,
	"gray":           White,
	"grey":           White,
	"light_gray":     White,
	"light_grey":     White,
	"bright_black":   Black.Bright(),
	"dark_gray":      Black.Bright(),
	"dark_grey":      Black.Bright(),
	"bright_red":     Red.Bright(),
	"bright_green":   Green.Bright(),
	"bright_yellow":  Yellow.Bright(),
	"bright_blue":    Blue.Bright(),
	"bright_magenta": Magenta.Bright(),
	"bright_cyan":    Cyan.Bright(),
	"bright_white":   White.Bright(),
}

// ColorNames lists every recognised color name.
func ColorNames() []string {
	names := make([]string, 0, len(colorNames)+1)
	for n := range colorNames {
		names = append(names, n)
	}
	return append(names, "reset")
}

package charset

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/notepid/twilight_door/internal/dropfile"
)

func TestEncodeTextBoxDrawingToCP437(t *testing.T) {
	e := Encoder{Mode: ModeCP437}
	got := e.EncodeText("╔═╗│░▒▓█")
	want := []byte{0xc9, 0xcd, 0xbb, 0xb3, 0xb0, 0xb1, 0xb2, 0xdb}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected % x, got % x", want, got)
	}
}

func TestEncodeTextSymbols(t *testing.T) {
	e := Encoder{Mode: ModeCP437}
	cases := map[string][]byte{
		"■":     {0xfe},
		"°":     {0xf8},
		"π":     {0xe3},
		"é":     {0x82},
		"£":     {0x9c},
		"½":     {0xab},
		"“hi”":  []byte(`"hi"`),
		"a—b":   []byte("a--b"),
		"wait…": []byte("wait..."),
		"ā":     []byte("a"),
		"Ŝ":     []byte("S"),
		"😀":     {Placeholder},
		"中":     {Placeholder},
	}
	for in, want := range cases {
		if got := e.EncodeText(in); !bytes.Equal(got, want) {
			t.Fatalf("EncodeText(%q) = % x, want % x", in, got, want)
		}
	}
}

func TestEncodeTextNewlines(t *testing.T) {
	for _, mode := range []Mode{ModeCP437, ModeUTF8} {
		e := Encoder{Mode: mode}
		if got := string(e.EncodeText("a\nb\r\nc")); got != "a\r\nb\r\nc" {
			t.Fatalf("mode %d: expected CRLF normalisation, got %q", mode, got)
		}
	}
}

func TestEncodeTextUTF8PassThrough(t *testing.T) {
	e := Encoder{Mode: ModeUTF8}
	in := "╔═ Ünïcødé 😀 ═╗"
	if got := string(e.EncodeText(in)); got != in {
		t.Fatalf("expected pass-through, got %q", got)
	}
	if got := e.EncodeText("a\xffb"); !bytes.Equal(got, []byte("a?b")) {
		t.Fatalf("expected invalid UTF-8 replaced, got %q", got)
	}
}

// EncodeText must be total over every Unicode scalar value.
func TestEncodeTextIsTotal(t *testing.T) {
	e := Encoder{Mode: ModeCP437}
	var sb strings.Builder
	for r := rune(0); r <= utf8.MaxRune; r++ {
		if r >= 0xd800 && r <= 0xdfff {
			continue
		}
		sb.Reset()
		sb.WriteRune(r)
		out := e.EncodeText(sb.String())
		if len(out) == 0 {
			t.Fatalf("rune %U produced no output", r)
		}
		if r != '\n' && len(out) > 3 {
			t.Fatalf("rune %U produced %d bytes", r, len(out))
		}
	}
}

func TestEncodeColorANSI(t *testing.T) {
	e := Encoder{Colors: ColorANSI}
	cases := map[string]string{
		"red":          "\033[0;31m",
		"Bright Red":   "\033[1;31m",
		"bright-cyan":  "\033[1;36m",
		"brown":        "\033[0;33m",
		"light_blue":   "\033[1;34m",
		"light gray":   "\033[0;37m",
		"dark_gray":    "\033[1;30m",
		"bright_white": "\033[1;37m",
		"reset":        Reset,
	}
	for name, want := range cases {
		if got := string(e.EncodeColor(name)); got != want {
			t.Fatalf("EncodeColor(%q) = %q, want %q", name, got, want)
		}
	}
	if got := e.EncodeColor("chartreuse"); len(got) != 0 {
		t.Fatalf("expected unknown color to be dropped, got %q", got)
	}
}

func TestEncodeColorAllNamesKnown(t *testing.T) {
	e := Encoder{Colors: ColorANSI}
	for _, n := range ColorNames() {
		if len(e.EncodeColor(n)) == 0 {
			t.Fatalf("color %q produced no output", n)
		}
	}
}

func TestEncodeColorAvatar(t *testing.T) {
	e := Encoder{Colors: ColorAvatar}
	if got := e.EncodeColor("red"); !bytes.Equal(got, []byte{0x16, 0x01, 0x04}) {
		t.Fatalf("expected avatar red, got % x", got)
	}
	if got := e.EncodeColor("bright_blue"); !bytes.Equal(got, []byte{0x16, 0x01, 0x09}) {
		t.Fatalf("expected avatar bright blue, got % x", got)
	}
	if got := e.ClearScreen(); !bytes.Equal(got, []byte{0x0c}) {
		t.Fatalf("expected avatar clear, got % x", got)
	}
}

func TestEncodeColorDisabled(t *testing.T) {
	e := Encoder{}
	for _, n := range ColorNames() {
		if got := e.EncodeColor(n); len(got) != 0 {
			t.Fatalf("expected no output for %q without color, got %q", n, got)
		}
	}
	if got := string(e.ClearScreen()); got != strings.Repeat("\r\n", 24) {
		t.Fatalf("expected blank-line clear, got %q", got)
	}
}

func TestSelect(t *testing.T) {
	cases := []struct {
		color, native bool
		emu           dropfile.Emulation
		want          Encoder
	}{
		{true, false, dropfile.EmuANSI, Encoder{ModeCP437, ColorANSI}},
		{true, false, dropfile.EmuRIP, Encoder{ModeCP437, ColorANSI}},
		{true, false, dropfile.EmuAvatar, Encoder{ModeCP437, ColorAvatar}},
		{true, false, dropfile.EmuASCII, Encoder{ModeCP437, ColorNone}},
		{false, false, dropfile.EmuANSI, Encoder{ModeCP437, ColorNone}},
		{true, true, dropfile.EmuANSI, Encoder{ModeUTF8, ColorANSI}},
	}
	for _, c := range cases {
		if got := Select(c.color, c.native, c.emu); got != c.want {
			t.Fatalf("Select(%v, %v, %s) = %+v, want %+v", c.color, c.native, c.emu, got, c.want)
		}
	}
}

func TestDecodeByte(t *testing.T) {
	e := Encoder{Mode: ModeCP437}
	if got := e.DecodeByte(0x82); got != 'é' {
		t.Fatalf("expected é, got %q", got)
	}
	if got := e.DecodeByte('A'); got != 'A' {
		t.Fatalf("expected A, got %q", got)
	}
}

package ansi

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Fill replaces placeholders of the form {{ID}} or {{ID,width}} with
// values[ID]. A placeholder with a width is padded or cut to exactly that
// many columns so the surrounding art keeps its layout; without a width the
// placeholder's own length is used. Unknown IDs become blanks.
func Fill(data []byte, values map[string]string) []byte {
	if len(data) == 0 {
		return data
	}
	var out []byte
	last := 0
	for i := 0; i+1 < len(data); i++ {
		if data[i] != '{' || data[i+1] != '{' {
			continue
		}
		end := placeholderEnd(data, i+2)
		if end == -1 {
			continue
		}
		id, width := parsePlaceholder(string(data[i+2 : end]))
		if id == "" {
			continue
		}
		if width == 0 {
			width = end + 2 - i
		}
		out = append(out, data[last:i]...)
		out = append(out, fit(values[id], width)...)
		i = end + 1
		last = end + 2
	}
	if out == nil {
		return data
	}
	return append(out, data[last:]...)
}

// fit pads or truncates v to width runes.
func fit(v string, width int) string {
	n := utf8.RuneCountInString(v)
	if n > width {
		r := []rune(v)
		return string(r[:width])
	}
	return v + strings.Repeat(" ", width-n)
}

func placeholderEnd(data []byte, start int) int {
	for i := start; i+1 < len(data); i++ {
		if data[i] == '}' && data[i+1] == '}' {
			return i
		}
		// Placeholders are literal text; never span an escape sequence.
		if data[i] == 0x1b || data[i] == '\n' {
			return -1
		}
	}
	return -1
}

func parsePlaceholder(payload string) (id string, width int) {
	id, w, found := strings.Cut(strings.TrimSpace(payload), ",")
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return "", 0
	}
	if found {
		if n, err := strconv.Atoi(strings.TrimSpace(w)); err == nil && n > 0 {
			width = n
		}
	}
	return id, width
}

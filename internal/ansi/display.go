// Package ansi finds and shows display files (.ANS art and .ASC text) on a
// caller's terminal.
package ansi

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/notepid/twilight_door/internal/charset"
	"github.com/notepid/twilight_door/internal/terminal"
)

// DisplayFile is a loaded display file with its SAUCE record removed.
type DisplayFile struct {
	Name   string
	Path   string
	IsANSI bool
	Data   []byte // CP437
	Sauce  *Sauce
}

// Loader finds display files under one or more directories.
type Loader struct {
	dirs []string
}

// NewLoader returns a loader that searches dirs in order.
func NewLoader(dirs ...string) *Loader {
	return &Loader{dirs: dirs}
}

// Find locates name (without extension). ANSI art is preferred when color
// is available, plain text otherwise.
func (l *Loader) Find(name string, color bool) (*DisplayFile, error) {
	safe, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}
	exts := []string{".asc", ".ans"}
	if color {
		exts = []string{".ans", ".asc"}
	}
	for _, dir := range l.dirs {
		for _, ext := range exts {
			path := filepath.Join(dir, safe+ext)
			if !withinDir(dir, path) {
				continue
			}
			df, err := l.Load(path)
			if err != nil {
				continue
			}
			return df, nil
		}
	}
	return nil, fmt.Errorf("display file not found: %s", safe)
}

// Load reads a display file by path.
func (l *Loader) Load(path string) (*DisplayFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read display file %s: %w", path, err)
	}
	content, sauce := StripSauce(data)
	return &DisplayFile{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:   path,
		IsANSI: strings.EqualFold(filepath.Ext(path), ".ans"),
		Data:   content,
		Sauce:  sauce,
	}, nil
}

func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsRune(name, 0) || strings.Contains(name, "\\") {
		return "", fmt.Errorf("invalid display name %q", name)
	}
	clean := filepath.Clean(name)
	if clean == "." || clean == ".." || filepath.IsAbs(clean) ||
		strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid display name %q", name)
	}
	return clean, nil
}

func withinDir(base, path string) bool {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, pathAbs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// Display sends df to term. ANSI art goes out as is to color terminals;
// everything else is shown as text through the terminal's encoder.
func Display(term *terminal.Terminal, df *DisplayFile) error {
	return DisplayWithPaging(term, df, 0)
}

// DisplayWithPaging is Display with a "-- More --" prompt every pageHeight
// lines of text. ANSI art positions its own cursor and is never paged.
// A pageHeight of 0 disables paging.
func DisplayWithPaging(term *terminal.Terminal, df *DisplayFile, pageHeight int) error {
	enc := term.Encoder()
	if df.IsANSI && enc.Colors != charset.ColorNone {
		return sendArt(term, df.Data)
	}

	data := df.Data
	if df.IsANSI {
		data = StripEscapes(data)
	}
	lines := splitLines(data)
	for i, line := range lines {
		if err := term.WriteLine(decodeCP437(line)); err != nil {
			return fmt.Errorf("display %s: %w", df.Name, err)
		}
		if pageHeight <= 1 || (i+1)%(pageHeight-1) != 0 || i == len(lines)-1 {
			continue
		}
		quit, err := more(term)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	return nil
}

// more shows the paging prompt and reports whether the caller asked to stop.
func more(term *terminal.Terminal) (bool, error) {
	term.SetColor("bright_cyan")
	term.Write(" -- More -- ")
	term.SetColor("reset")
	key, err := term.ReadKey()
	if err != nil {
		return false, err
	}
	if err := term.Write("\r            \r"); err != nil {
		return false, err
	}
	return key.Code == terminal.KeyEscape || key.Rune == 'q' || key.Rune == 'Q', nil
}

// sendArt streams ANSI art in chunks for the classic drawing effect. UTF-8
// terminals get the CP437 glyphs converted.
func sendArt(term *terminal.Terminal, data []byte) error {
	if term.Encoder().Mode == charset.ModeUTF8 {
		data = []byte(decodeCP437(data))
	}
	const chunkSize = 1024
	for i := 0; i < len(data); i += chunkSize {
		end := min(i+chunkSize, len(data))
		if err := term.WriteRaw(data[i:end]); err != nil {
			return fmt.Errorf("display art: %w", err)
		}
		if end < len(data) {
			time.Sleep(5 * time.Millisecond)
		}
	}
	return nil
}

func decodeCP437(b []byte) string {
	s, err := charmap.CodePage437.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// StripEscapes removes ANSI escape sequences, leaving the text.
func StripEscapes(data []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(data); i++ {
		if data[i] != 0x1b {
			out.WriteByte(data[i])
			continue
		}
		if i+1 < len(data) && data[i+1] == '[' {
			i += 2
			for i < len(data) && (data[i] < 0x40 || data[i] > 0x7e) {
				i++
			}
			continue
		}
		i++
	}
	return out.Bytes()
}

// splitLines splits on LF, dropping a CR before it.
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b != '\n' {
			continue
		}
		lines = append(lines, bytes.TrimSuffix(data[start:i], []byte("\r")))
		start = i + 1
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

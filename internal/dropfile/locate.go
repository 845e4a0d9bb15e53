package dropfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Canonical drop file names in preference order. Hosts write them in either
// case depending on platform.
var canonicalNames = []string{"DOOR32.SYS", "DOOR.SYS"}

// Locate searches dir for a drop file. When node is positive, a per-node
// subdirectory ("node3", "NODE3", ...) is searched before dir itself.
func Locate(dir string, node int) (string, error) {
	var dirs []string
	if node > 0 {
		if sub, ok := findEntry(dir, fmt.Sprintf("node%d", node), true); ok {
			dirs = append(dirs, sub)
		}
	}
	dirs = append(dirs, dir)

	for _, d := range dirs {
		for _, name := range canonicalNames {
			if p, ok := findEntry(d, name, false); ok {
				return p, nil
			}
		}
	}

	return "", &ParseError{
		Path:   dir,
		Reason: fmt.Sprintf("no %s found", strings.Join(canonicalNames, " or ")),
	}
}

// findEntry looks up name in dir ignoring case.
func findEntry(dir, name string, wantDir bool) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !strings.EqualFold(e.Name(), name) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() != wantDir {
			continue
		}
		return p, true
	}
	return "", false
}

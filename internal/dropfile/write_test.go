package dropfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// door32Content renders info in DOOR32.SYS layout.
func door32Content(info SessionInfo) string {
	lines := []string{
		fmt.Sprintf("%d", info.CommType),         // 1: comm type
		fmt.Sprintf("%d", info.SocketHandle),     // 2: socket handle
		fmt.Sprintf("%d", info.BaudRate),         // 3: baud rate
		info.BBSName,                             // 4: BBS software name
		fmt.Sprintf("%d", info.UserRecordNumber), // 5: user record
		info.RealName,                            // 6: real name
		info.Alias,                               // 7: alias
		fmt.Sprintf("%d", info.SecurityLevel),    // 8: security level
		fmt.Sprintf("%d", info.TimeRemaining),    // 9: minutes left
		fmt.Sprintf("%d", info.Emulation),        // 10: emulation
		fmt.Sprintf("%d", info.NodeNumber),       // 11: node
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

// doorSysLinesFor renders a 52-line DOOR.SYS.
func doorSysLinesFor(comPort string, baud, node int, user string, security, minutes int, graphics string, record int) []string {
	lines := []string{
		comPort,                       // 1: COM port
		fmt.Sprintf("%d", baud),       // 2: baud rate
		"8",                           // 3: data bits
		fmt.Sprintf("%d", node),       // 4: node number
		fmt.Sprintf("%d", baud),       // 5: DTE rate
		"Y",                           // 6: screen display
		"Y",                           // 7: printer toggle
		"Y",                           // 8: page bell
		"Y",                           // 9: caller alarm
		user,                          // 10: user name
		"Somewhere, ST",               // 11: calling from
		"",                            // 12: home phone
		"",                            // 13: work phone
		"",                            // 14: password
		fmt.Sprintf("%d", security),   // 15: security level
		"42",                          // 16: total calls
		"01/02/2026",                  // 17: last call date
		fmt.Sprintf("%d", minutes*60), // 18: seconds remaining
		fmt.Sprintf("%d", minutes),    // 19: minutes remaining
		graphics,                      // 20: graphics mode
		"25",                          // 21: screen height
		"Y",                           // 22: expert mode
		"",                            // 23: conferences registered
		"",                            // 24: current conference
		"",                            // 25: expiration date
		fmt.Sprintf("%d", record),     // 26: user record number
	}
	for len(lines) < doorSysLines {
		lines = append(lines, "0")
	}
	return lines
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

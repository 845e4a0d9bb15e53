package ansi

import (
	"encoding/binary"
	"strings"
)

const (
	sauceID      = "SAUCE"
	sauceCommID  = "COMNT"
	sauceSize    = 128
	commentWidth = 64
	eofMarker    = 0x1A
)

// Sauce is the metadata record art editors append to .ANS and .ASC files.
type Sauce struct {
	Title    string
	Author   string
	Group    string
	Date     string
	Width    int // columns, 0 if unset
	Height   int // lines, 0 if unset
	Flags    byte
	Comments []string
}

// ICEColors reports whether the blink bit selects bright backgrounds.
func (s *Sauce) ICEColors() bool {
	return s != nil && s.Flags&0x01 != 0
}

// Credit returns "Title by Author/Group" for the sysop console.
func (s *Sauce) Credit() string {
	if s == nil || s.Title == "" {
		return ""
	}
	by := s.Author
	if s.Group != "" {
		if by != "" {
			by += "/"
		}
		by += s.Group
	}
	if by == "" {
		return s.Title
	}
	return s.Title + " by " + by
}

func sauceText(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}

// StripSauce splits data into the art and its SAUCE record. The record, its
// comment block and the EOF marker before them are removed. Data without a
// record is returned unchanged with a nil Sauce.
func StripSauce(data []byte) ([]byte, *Sauce) {
	if len(data) < sauceSize {
		return data, nil
	}
	rec := data[len(data)-sauceSize:]
	if string(rec[:5]) != sauceID {
		return data, nil
	}

	s := &Sauce{
		Title:  sauceText(rec[7:42]),
		Author: sauceText(rec[42:62]),
		Group:  sauceText(rec[62:82]),
		Date:   sauceText(rec[82:90]),
		Width:  int(binary.LittleEndian.Uint16(rec[96:98])),
		Height: int(binary.LittleEndian.Uint16(rec[98:100])),
		Flags:  rec[105],
	}

	end := len(data) - sauceSize
	if n := int(rec[104]); n > 0 {
		start := end - len(sauceCommID) - n*commentWidth
		if start >= 0 && string(data[start:start+len(sauceCommID)]) == sauceCommID {
			block := data[start+len(sauceCommID) : end]
			for i := 0; i < n; i++ {
				s.Comments = append(s.Comments, sauceText(block[i*commentWidth:(i+1)*commentWidth]))
			}
			end = start
		}
	}
	if end > 0 && data[end-1] == eofMarker {
		end--
	}
	return data[:end], s
}

// Package lobby is a small stand-in game that exercises the session layer:
// it keeps a per-character save, greets the caller and survives hang-ups.
package lobby

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SaveFile is the name of the save inside a character's directory.
const SaveFile = "player.yaml"

// State is the persisted part of a character.
type State struct {
	Name       string    `yaml:"name"`
	Level      int       `yaml:"level"`
	Gold       int       `yaml:"gold"`
	Visits     int       `yaml:"visits"`
	FirstSeen  time.Time `yaml:"first_seen"`
	LastPlayed time.Time `yaml:"last_played"`
}

func newState(name string) State {
	return State{Name: name, Level: 1, FirstSeen: time.Now()}
}

// LoadState reads the save in dir. A missing save yields a fresh state; a
// corrupt one also yields a fresh state together with the parse error so
// the caller can log it.
func LoadState(dir, name string) (State, error) {
	data, err := os.ReadFile(filepath.Join(dir, SaveFile))
	if errors.Is(err, os.ErrNotExist) {
		return newState(name), nil
	}
	if err != nil {
		return newState(name), fmt.Errorf("read save: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return newState(name), fmt.Errorf("parse save: %w", err)
	}
	// The BBS owns the name; a hand-edited save cannot change it.
	st.Name = name
	if st.Level < 1 {
		st.Level = 1
	}
	return st, nil
}

// SaveState writes st to dir, replacing the old save atomically.
func SaveState(dir string, st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".player-*.yaml")
	if err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write save: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, SaveFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace save: %w", err)
	}
	return nil
}

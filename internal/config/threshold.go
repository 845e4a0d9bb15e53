package config

import (
	"errors"
	"fmt"

	"github.com/notepid/twilight_door/internal/db"
)

// Threshold collects the places a SysOp threshold can come from.
type Threshold struct {
	CLI     *int // --sysop-threshold
	Stored  *int // persisted for this BBS
	Default *int // sysop.default_threshold
}

// Resolve applies the precedence command line, then the persisted per-BBS
// value, then the config default, then DefaultSysOpThreshold.
func (t Threshold) Resolve() int {
	switch {
	case t.CLI != nil:
		return *t.CLI
	case t.Stored != nil:
		return *t.Stored
	case t.Default != nil:
		return *t.Default
	}
	return DefaultSysOpThreshold
}

// SettingsStore persists per-BBS settings. *db.DB satisfies it.
type SettingsStore interface {
	GetBBSSettings(name string) (*db.BBSSettings, error)
	SaveBBSSettings(s *db.BBSSettings) error
}

// ResolveThreshold resolves the threshold for bbsName. A value given on the
// command line is saved so later calls get it without the flag. store may
// be nil. Store errors are returned for logging alongside a usable
// threshold.
func ResolveThreshold(store SettingsStore, bbsName string, cli, def *int) (int, error) {
	t := Threshold{CLI: cli, Default: def}
	if store == nil {
		return t.Resolve(), nil
	}

	var errs []error
	s, err := store.GetBBSSettings(bbsName)
	switch {
	case err == nil:
		v := s.SysOpThreshold
		t.Stored = &v
	case !errors.Is(err, db.ErrNotFound):
		errs = append(errs, err)
	}

	threshold := t.Resolve()
	if cli != nil {
		if err := store.SaveBBSSettings(&db.BBSSettings{Name: bbsName, SysOpThreshold: threshold}); err != nil {
			errs = append(errs, fmt.Errorf("persist threshold: %w", err))
		}
	}
	return threshold, errors.Join(errs...)
}

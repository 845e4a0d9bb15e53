package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a BBS has no stored settings.
var ErrNotFound = errors.New("not found")

// BBSSettings are the values persisted per hosting BBS.
type BBSSettings struct {
	Name           string
	SysOpThreshold int
	UpdatedAt      time.Time
}

// GetBBSSettings returns the stored settings for the BBS called name.
func (db *DB) GetBBSSettings(name string) (*BBSSettings, error) {
	var s BBSSettings
	err := db.QueryRow(
		"SELECT bbs_name, sysop_threshold, updated_at FROM bbs_settings WHERE bbs_key = ?",
		BBSKey(name),
	).Scan(&s.Name, &s.SysOpThreshold, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bbs settings %q: %w", name, err)
	}
	return &s, nil
}

// SaveBBSSettings inserts or replaces the settings for s.Name.
func (db *DB) SaveBBSSettings(s *BBSSettings) error {
	_, err := db.Exec(`
		INSERT INTO bbs_settings (bbs_key, bbs_name, sysop_threshold, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bbs_key) DO UPDATE SET
			bbs_name = excluded.bbs_name,
			sysop_threshold = excluded.sysop_threshold,
			updated_at = excluded.updated_at
	`, BBSKey(s.Name), s.Name, s.SysOpThreshold, time.Now())
	if err != nil {
		return fmt.Errorf("save bbs settings %q: %w", s.Name, err)
	}
	return nil
}

// ListBBSSettings returns the settings of every BBS seen so far.
func (db *DB) ListBBSSettings() ([]BBSSettings, error) {
	rows, err := db.Query("SELECT bbs_name, sysop_threshold, updated_at FROM bbs_settings ORDER BY bbs_key")
	if err != nil {
		return nil, fmt.Errorf("list bbs settings: %w", err)
	}
	defer rows.Close()

	var out []BBSSettings
	for rows.Next() {
		var s BBSSettings
		if err := rows.Scan(&s.Name, &s.SysOpThreshold, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bbs settings: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

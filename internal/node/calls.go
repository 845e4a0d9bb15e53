package node

import (
	"fmt"
	"time"

	"github.com/notepid/twilight_door/internal/db"
)

// Call is one entry of the call log.
type Call struct {
	ID            int64
	BBSName       string
	Node          int
	Alias         string
	SecurityLevel int
	Transport     string
	StartedAt     time.Time
	EndedAt       *time.Time
	EndReason     string
}

// RecordCall logs the start of a session and returns its id.
func (r *Registry) RecordCall(c Call) (int64, error) {
	res, err := r.db.Exec(`
		INSERT INTO calls (bbs_key, node, alias, security_level, transport, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, db.BBSKey(c.BBSName), c.Node, c.Alias, c.SecurityLevel, c.Transport, time.Now())
	if err != nil {
		return 0, fmt.Errorf("record call: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get call id: %w", err)
	}
	return id, nil
}

// EndCall stamps the end of a session.
func (r *Registry) EndCall(id int64, reason string) error {
	_, err := r.db.Exec("UPDATE calls SET ended_at = ?, end_reason = ? WHERE id = ?", time.Now(), reason, id)
	if err != nil {
		return fmt.Errorf("end call %d: %w", id, err)
	}
	return nil
}

// RecentCalls returns up to limit calls, newest first.
func (r *Registry) RecentCalls(limit int) ([]Call, error) {
	rows, err := r.db.Query(`
		SELECT id, bbs_key, node, alias, security_level, transport, started_at, ended_at, end_reason
		FROM calls ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.ID, &c.BBSName, &c.Node, &c.Alias, &c.SecurityLevel,
			&c.Transport, &c.StartedAt, &c.EndedAt, &c.EndReason); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Package node records which caller occupies which node of which BBS, so
// that one character cannot be played on two nodes at once.
package node

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notepid/twilight_door/internal/db"
)

// ErrCharacterInUse is returned when the character is already live on
// another node of the same BBS.
var ErrCharacterInUse = errors.New("character already in use on another node")

// Claim describes a node being taken by a caller.
type Claim struct {
	BBSName   string
	Node      int
	Alias     string
	PID       int
	Transport string
}

// Info is one occupied node.
type Info struct {
	BBSName   string
	Node      int
	Alias     string
	PID       int
	Transport string
	StartedAt time.Time
	Alive     bool
}

// Registry handles node rows in the shared database.
type Registry struct {
	db    *sql.DB
	alive func(pid int) bool
}

// NewRegistry creates a registry over db.
func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db, alive: processAlive}
}

func aliasKey(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

// Claim takes c.Node for c.Alias. Rows left behind by processes that have
// exited are cleared first.
func (r *Registry) Claim(c Claim) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("claim node %d: %w", c.Node, err)
	}
	defer tx.Rollback()

	key := db.BBSKey(c.BBSName)
	rows, err := tx.Query(
		"SELECT node, pid FROM nodes WHERE bbs_key = ? AND alias_key = ? AND node != ?",
		key, aliasKey(c.Alias), c.Node,
	)
	if err != nil {
		return fmt.Errorf("claim node %d: %w", c.Node, err)
	}
	type holder struct{ node, pid int }
	var holders []holder
	for rows.Next() {
		var h holder
		if err := rows.Scan(&h.node, &h.pid); err != nil {
			rows.Close()
			return fmt.Errorf("claim node %d: %w", c.Node, err)
		}
		holders = append(holders, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("claim node %d: %w", c.Node, err)
	}

	for _, h := range holders {
		if h.pid != c.PID && r.alive(h.pid) {
			return fmt.Errorf("%w (node %d)", ErrCharacterInUse, h.node)
		}
		if _, err := tx.Exec("DELETE FROM nodes WHERE bbs_key = ? AND node = ?", key, h.node); err != nil {
			return fmt.Errorf("clear stale node %d: %w", h.node, err)
		}
	}

	// The host never assigns an occupied node, so any row already on this
	// node is a leftover.
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO nodes (bbs_key, node, bbs_name, alias, alias_key, pid, transport, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, key, c.Node, c.BBSName, c.Alias, aliasKey(c.Alias), c.PID, c.Transport, time.Now())
	if err != nil {
		return fmt.Errorf("claim node %d: %w", c.Node, err)
	}
	return tx.Commit()
}

// Release frees a node held by pid. Rows taken over by another process are
// left alone.
func (r *Registry) Release(bbsName string, node, pid int) error {
	_, err := r.db.Exec(
		"DELETE FROM nodes WHERE bbs_key = ? AND node = ? AND pid = ?",
		db.BBSKey(bbsName), node, pid,
	)
	if err != nil {
		return fmt.Errorf("release node %d: %w", node, err)
	}
	return nil
}

// ForceRelease frees a node regardless of its holder.
func (r *Registry) ForceRelease(bbsName string, node int) error {
	_, err := r.db.Exec("DELETE FROM nodes WHERE bbs_key = ? AND node = ?", db.BBSKey(bbsName), node)
	if err != nil {
		return fmt.Errorf("release node %d: %w", node, err)
	}
	return nil
}

// List returns every occupied node. An empty bbsName lists all BBSes.
func (r *Registry) List(bbsName string) ([]Info, error) {
	query := "SELECT bbs_name, node, alias, pid, transport, started_at FROM nodes"
	var args []any
	if bbsName != "" {
		query += " WHERE bbs_key = ?"
		args = append(args, db.BBSKey(bbsName))
	}
	query += " ORDER BY bbs_key, node"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var n Info
		if err := rows.Scan(&n.BBSName, &n.Node, &n.Alias, &n.PID, &n.Transport, &n.StartedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Alive = r.alive(n.PID)
		out = append(out, n)
	}
	return out, rows.Err()
}

// Prune removes rows whose process has exited and returns how many.
func (r *Registry) Prune() (int, error) {
	nodes, err := r.List("")
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, n := range nodes {
		if n.Alive {
			continue
		}
		res, err := r.db.Exec(
			"DELETE FROM nodes WHERE bbs_key = ? AND node = ? AND pid = ?",
			db.BBSKey(n.BBSName), n.Node, n.PID,
		)
		if err != nil {
			return pruned, fmt.Errorf("prune node %d: %w", n.Node, err)
		}
		if k, _ := res.RowsAffected(); k > 0 {
			pruned++
		}
	}
	return pruned, nil
}

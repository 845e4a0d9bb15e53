package db

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "create nodes table",
		sql: `
			CREATE TABLE IF NOT EXISTS nodes (
				bbs_key TEXT NOT NULL,
				node INTEGER NOT NULL,
				bbs_name TEXT NOT NULL DEFAULT '',
				alias TEXT NOT NULL,
				alias_key TEXT NOT NULL,
				pid INTEGER NOT NULL,
				transport TEXT NOT NULL DEFAULT '',
				started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (bbs_key, node)
			);
			CREATE INDEX IF NOT EXISTS idx_nodes_alias ON nodes(bbs_key, alias_key);
		`,
	},
	{
		name: "create calls table",
		sql: `
			CREATE TABLE IF NOT EXISTS calls (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				bbs_key TEXT NOT NULL,
				node INTEGER NOT NULL,
				alias TEXT NOT NULL,
				security_level INTEGER DEFAULT 0,
				transport TEXT DEFAULT '',
				started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				ended_at DATETIME,
				end_reason TEXT DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_calls_bbs ON calls(bbs_key, id);
		`,
	},
	{
		name: "create bbs settings table",
		sql: `
			CREATE TABLE IF NOT EXISTS bbs_settings (
				bbs_key TEXT PRIMARY KEY,
				bbs_name TEXT NOT NULL,
				sysop_threshold INTEGER NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
}

package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS todos (
	scope            TEXT NOT NULL,
	id               TEXT NOT NULL,
	assignee_user_id TEXT NOT NULL,
	creator_user_id  TEXT NOT NULL,
	assignee_name    TEXT NOT NULL DEFAULT '',
	creator_name     TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'open',
	priority         TEXT NOT NULL DEFAULT 'p2',
	action_type      TEXT NOT NULL DEFAULT 'do',
	source_type      TEXT NOT NULL DEFAULT 'custom',
	source_id        TEXT NOT NULL DEFAULT '',
	start_at         DATETIME,
	due_at           DATETIME,
	done_at          DATETIME,
	blocked_reason   TEXT NOT NULL DEFAULT '',
	dismiss_reason   TEXT NOT NULL DEFAULT '',
	review_comment   TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL,
	PRIMARY KEY (scope, id)
);

CREATE INDEX IF NOT EXISTS idx_todos_status ON todos(scope, status);
CREATE INDEX IF NOT EXISTS idx_todos_updated_at ON todos(updated_at);

CREATE TABLE IF NOT EXISTS snapshots (
	scope      TEXT PRIMARY KEY,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS subordinates (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

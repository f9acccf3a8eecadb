package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Timestamps are stored as epoch milliseconds so that the poll start time
// can be compared against seen_locally_at without any string parsing.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id              TEXT PRIMARY KEY,
	position        INTEGER NOT NULL,
	message         TEXT NOT NULL DEFAULT '',
	seen            INTEGER NOT NULL DEFAULT 0 CHECK(seen IN (0, 1)),
	originator      TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL DEFAULT 0,
	source_url      TEXT NOT NULL DEFAULT '',
	seen_locally_at INTEGER,
	fetched_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fetch_state (
	id                INTEGER PRIMARY KEY CHECK(id = 1),
	last_fetched      INTEGER,
	last_error        TEXT NOT NULL DEFAULT '',
	last_error_at     INTEGER,
	last_unread_count INTEGER NOT NULL DEFAULT 0,
	badge_text        TEXT NOT NULL DEFAULT '',
	badge_color       TEXT NOT NULL DEFAULT '#4285F4',
	version           INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO fetch_state (id) VALUES (1);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_position ON notifications(position);
CREATE INDEX IF NOT EXISTS idx_notifications_seen ON notifications(seen, position);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

package cache

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

CREATE TABLE IF NOT EXISTS notifications (
	id                       TEXT PRIMARY KEY,
	position                 INTEGER NOT NULL,
	notification_id          INTEGER,
	source                   TEXT NOT NULL DEFAULT '',
	title                    TEXT NOT NULL DEFAULT '',
	message                  TEXT NOT NULL DEFAULT '',
	message_preview          TEXT NOT NULL DEFAULT '',
	type                     TEXT NOT NULL DEFAULT '',
	priority                 TEXT NOT NULL DEFAULT '',
	requires_acknowledgement INTEGER NOT NULL DEFAULT 0 CHECK(requires_acknowledgement IN (0, 1)),
	is_read                  INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	is_acknowledged          INTEGER NOT NULL DEFAULT 0 CHECK(is_acknowledged IN (0, 1)),
	read_at                  DATETIME,
	acknowledged_at          DATETIME,
	created_at               DATETIME NOT NULL,
	time_ago                 TEXT NOT NULL DEFAULT '',
	data                     TEXT NOT NULL DEFAULT '{}',
	cached_at                DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS counters (
	id                       INTEGER PRIMARY KEY CHECK(id = 1),
	unread_count             INTEGER NOT NULL DEFAULT 0,
	admin_unread             INTEGER NOT NULL DEFAULT 0,
	push_unread              INTEGER NOT NULL DEFAULT 0,
	acknowledgement_required INTEGER NOT NULL DEFAULT 0,
	has_more                 INTEGER NOT NULL DEFAULT 0,
	updated_at               DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_position ON notifications(position);
CREATE INDEX IF NOT EXISTS idx_notifications_cached_at ON notifications(cached_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

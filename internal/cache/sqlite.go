package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/smsexpert/internal/model"
)

// SQLiteCache implements Cache using a local SQLite database.
type SQLiteCache struct {
	db *sqlx.DB
}

var _ Cache = (*SQLiteCache)(nil)

// NewSQLiteCache opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps :memory: databases coherent and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *SQLiteCache) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the applied schema version.
func (c *SQLiteCache) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := c.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

type notificationRow struct {
	ID                      string        `db:"id"`
	Position                int           `db:"position"`
	NotificationID          sql.NullInt64 `db:"notification_id"`
	Source                  string        `db:"source"`
	Title                   string        `db:"title"`
	Message                 string        `db:"message"`
	MessagePreview          string        `db:"message_preview"`
	Type                    string        `db:"type"`
	Priority                string        `db:"priority"`
	RequiresAcknowledgement int           `db:"requires_acknowledgement"`
	IsRead                  int           `db:"is_read"`
	IsAcknowledged          int           `db:"is_acknowledged"`
	ReadAt                  sql.NullTime  `db:"read_at"`
	AcknowledgedAt          sql.NullTime  `db:"acknowledged_at"`
	CreatedAt               time.Time     `db:"created_at"`
	TimeAgo                 string        `db:"time_ago"`
	Data                    string        `db:"data"`
	CachedAt                time.Time     `db:"cached_at"`
}

type counterRow struct {
	UnreadCount             int       `db:"unread_count"`
	AdminUnread             int       `db:"admin_unread"`
	PushUnread              int       `db:"push_unread"`
	AcknowledgementRequired int       `db:"acknowledgement_required"`
	HasMore                 int       `db:"has_more"`
	UpdatedAt               time.Time `db:"updated_at"`
}

const insertNotification = `
	INSERT OR REPLACE INTO notifications (
		id, position, notification_id, source,
		title, message, message_preview, type, priority,
		requires_acknowledgement, is_read, is_acknowledged,
		read_at, acknowledged_at, created_at,
		time_ago, data, cached_at
	) VALUES (
		:id, :position, :notification_id, :source,
		:title, :message, :message_preview, :type, :priority,
		:requires_acknowledgement, :is_read, :is_acknowledged,
		:read_at, :acknowledged_at, :created_at,
		:time_ago, :data, :cached_at
	)`

const upsertCounters = `
	INSERT INTO counters (
		id, unread_count, admin_unread, push_unread, acknowledgement_required, has_more, updated_at
	) VALUES (1, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		unread_count = excluded.unread_count,
		admin_unread = excluded.admin_unread,
		push_unread = excluded.push_unread,
		acknowledgement_required = excluded.acknowledgement_required,
		has_more = excluded.has_more,
		updated_at = excluded.updated_at`

// SaveSnapshot replaces the cached notifications and counters in one
// transaction.
func (c *SQLiteCache) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	savedAt = savedAt.UTC()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing cached notifications: %w", err)
	}

	for i, n := range snap.Notifications {
		row, err := toRow(n, i, savedAt)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertNotification, row); err != nil {
			return fmt.Errorf("caching notification %s: %w", n.ID, err)
		}
	}

	counts := snap.Counts
	_, err = tx.ExecContext(ctx, upsertCounters,
		counts.UnreadCount, counts.AdminUnread, counts.PushUnread, counts.AcknowledgementRequired,
		boolToInt(snap.HasMore), savedAt,
	)
	if err != nil {
		return fmt.Errorf("caching counters: %w", err)
	}

	return tx.Commit()
}

// SaveCounts updates the cached counters, keeping the list untouched.
func (c *SQLiteCache) SaveCounts(ctx context.Context, counts model.UnreadCounts) error {
	const query = `
		INSERT INTO counters (
			id, unread_count, admin_unread, push_unread, acknowledgement_required, has_more, updated_at
		) VALUES (1, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			unread_count = excluded.unread_count,
			admin_unread = excluded.admin_unread,
			push_unread = excluded.push_unread,
			acknowledgement_required = excluded.acknowledgement_required,
			updated_at = excluded.updated_at`

	_, err := c.db.ExecContext(ctx, query,
		counts.UnreadCount, counts.AdminUnread, counts.PushUnread, counts.AcknowledgementRequired,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("caching counters: %w", err)
	}
	return nil
}

// LoadSnapshot returns the cached notifications in their original order
// together with the counters.
func (c *SQLiteCache) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var counters counterRow
	err := c.db.GetContext(ctx, &counters, `
		SELECT unread_count, admin_unread, push_unread, acknowledgement_required, has_more, updated_at
		FROM counters WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("loading cached counters: %w", err)
	}

	var rows []notificationRow
	if err := c.db.SelectContext(ctx, &rows, "SELECT * FROM notifications ORDER BY position ASC"); err != nil {
		return nil, fmt.Errorf("loading cached notifications: %w", err)
	}

	snap := &Snapshot{
		Notifications: make([]model.Notification, 0, len(rows)),
		Counts: model.UnreadCounts{
			UnreadCount:             counters.UnreadCount,
			AdminUnread:             counters.AdminUnread,
			PushUnread:              counters.PushUnread,
			AcknowledgementRequired: counters.AcknowledgementRequired,
		},
		HasMore: counters.HasMore != 0,
		SavedAt: counters.UpdatedAt,
	}
	for _, r := range rows {
		n, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		snap.Notifications = append(snap.Notifications, n)
	}

	return snap, nil
}

// Prune deletes cached notifications saved before cutoff.
func (c *SQLiteCache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM notifications WHERE cached_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning cached notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning cached notifications: %w", err)
	}
	return n, nil
}

func toRow(n model.Notification, position int, cachedAt time.Time) (notificationRow, error) {
	data := "{}"
	if n.HasData() {
		if !json.Valid(n.Data) {
			return notificationRow{}, fmt.Errorf("invalid data payload for notification %s", n.ID)
		}
		data = string(n.Data)
	}

	row := notificationRow{
		ID:                      n.ID,
		Position:                position,
		Source:                  string(n.Source),
		Title:                   n.Title,
		Message:                 n.Message,
		MessagePreview:          n.MessagePreview,
		Type:                    string(n.Type),
		Priority:                n.Priority,
		RequiresAcknowledgement: boolToInt(n.RequiresAcknowledgement),
		IsRead:                  boolToInt(n.IsRead),
		IsAcknowledged:          boolToInt(n.IsAcknowledged),
		CreatedAt:               n.CreatedAt.UTC(),
		TimeAgo:                 n.TimeAgo,
		Data:                    data,
		CachedAt:                cachedAt,
	}
	if n.NotificationID != nil {
		row.NotificationID = sql.NullInt64{Int64: *n.NotificationID, Valid: true}
	}
	if n.ReadAt != nil {
		row.ReadAt = sql.NullTime{Time: n.ReadAt.UTC(), Valid: true}
	}
	if n.AcknowledgedAt != nil {
		row.AcknowledgedAt = sql.NullTime{Time: n.AcknowledgedAt.UTC(), Valid: true}
	}
	return row, nil
}

func fromRow(r notificationRow) (model.Notification, error) {
	n := model.Notification{
		ID:                      r.ID,
		Source:                  model.NotificationSource(r.Source),
		Title:                   r.Title,
		Message:                 r.Message,
		MessagePreview:          r.MessagePreview,
		Type:                    model.NotificationType(r.Type),
		Priority:                r.Priority,
		RequiresAcknowledgement: r.RequiresAcknowledgement != 0,
		IsRead:                  r.IsRead != 0,
		IsAcknowledged:          r.IsAcknowledged != 0,
		CreatedAt:               r.CreatedAt,
		TimeAgo:                 r.TimeAgo,
	}
	if r.NotificationID.Valid {
		id := r.NotificationID.Int64
		n.NotificationID = &id
	}
	if r.ReadAt.Valid {
		t := r.ReadAt.Time
		n.ReadAt = &t
	}
	if r.AcknowledgedAt.Valid {
		t := r.AcknowledgedAt.Time
		n.AcknowledgedAt = &t
	}
	if r.Data != "" && r.Data != "{}" {
		n.Data = json.RawMessage(r.Data)
	}
	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

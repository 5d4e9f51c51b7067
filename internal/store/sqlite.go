package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/taskboard/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
// Live queries are served by an in-process feed woken on every commit.
type SQLiteStore struct {
	db           *sqlx.DB
	feed         *feed
	now          func() time.Time
	groupQueries bool
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the clock used for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// WithoutGroupQueries makes notification queries that span every project
// fail with CodeFailedPrecondition, as a backend without the supporting
// index would.
func WithoutGroupQueries() Option {
	return func(s *SQLiteStore) {
		s.groupQueries = false
	}
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection serializes writers and keeps ":memory:" databases
	// shared between queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:           db,
		feed:         newFeed(),
		now:          time.Now,
		groupQueries: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const notificationColumns = `
	project_id, id, kind, task_id, recipient_id, actor_id, message_id,
	old_status, new_status, old_priority, new_priority, read, created_at`

// UpsertNotification inserts n or overwrites the document with the same
// (project, id), resetting read and created_at.
func (s *SQLiteStore) UpsertNotification(ctx context.Context, n model.Notification) error {
	const op = "upserting notification"
	if n.ProjectID == "" || n.ID == "" {
		return Errorf(op, CodeInvalidArgument, "project and id are required")
	}

	n.Read = false
	n.CreatedAt = s.now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (
			:project_id, :id, :kind, :task_id, :recipient_id, :actor_id, :message_id,
			:old_status, :new_status, :old_priority, :new_priority, :read, :created_at
		)
		ON CONFLICT(project_id, id) DO UPDATE SET
			kind = excluded.kind,
			task_id = excluded.task_id,
			recipient_id = excluded.recipient_id,
			actor_id = excluded.actor_id,
			message_id = excluded.message_id,
			old_status = excluded.old_status,
			new_status = excluded.new_status,
			old_priority = excluded.old_priority,
			new_priority = excluded.new_priority,
			read = excluded.read,
			created_at = excluded.created_at`, n)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, n.ID, err)
	}

	s.feed.publish(topicNotifications)
	return nil
}

// SetNotificationRead updates the read flag of a single notification.
func (s *SQLiteStore) SetNotificationRead(
	ctx context.Context,
	ref model.NotificationRef,
	read bool,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = ? WHERE project_id = ? AND id = ?",
		boolToInt(read), ref.ProjectID, ref.ID,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s: %w", ref.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return Errorf("marking notification", CodeNotFound, "notification %s not found", ref.ID)
	}

	s.feed.publish(topicNotifications)
	return nil
}

// DeleteNotification removes a notification. Deleting a missing document
// is not an error.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, ref model.NotificationRef) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE project_id = ? AND id = ?",
		ref.ProjectID, ref.ID,
	)
	if err != nil {
		return fmt.Errorf("deleting notification %s: %w", ref.ID, err)
	}

	s.feed.publish(topicNotifications)
	return nil
}

// QueryNotifications returns the notifications matching f, newest first.
func (s *SQLiteStore) QueryNotifications(
	ctx context.Context,
	f NotificationFilter,
) ([]model.Notification, error) {
	const op = "querying notifications"
	if f.RecipientID == "" {
		return nil, Errorf(op, CodeInvalidArgument, "recipient is required")
	}
	if f.Grouped() && !s.groupQueries {
		return nil, Errorf(op, CodeFailedPrecondition,
			"cross-project notification query requires an index")
	}

	query := "SELECT " + notificationColumns + " FROM notifications WHERE recipient_id = ?"
	args := []interface{}{f.RecipientID}
	if !f.Grouped() {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.UnreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC"

	var list []model.Notification
	if err := s.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("%s for %s: %w", op, f.RecipientID, err)
	}
	return list, nil
}

// WatchNotifications runs f as a live query.
func (s *SQLiteStore) WatchNotifications(
	f NotificationFilter,
	onChange func([]model.Notification),
	onError func(error),
) Unsubscribe {
	return watchQuery(s.feed, topicNotifications,
		func(ctx context.Context) ([]model.Notification, error) {
			return s.QueryNotifications(ctx, f)
		},
		onChange, onError,
	)
}

// CommitBatch applies ops in one transaction. An update of a missing
// notification aborts the whole batch.
func (s *SQLiteStore) CommitBatch(ctx context.Context, ops []BatchOp) error {
	const op = "committing batch"
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > MaxBatchWrites {
		return Errorf(op, CodeInvalidArgument,
			"%d writes exceeds the limit of %d", len(ops), MaxBatchWrites)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, o := range ops {
		switch o.Kind {
		case BatchSetRead:
			result, err := tx.ExecContext(ctx,
				"UPDATE notifications SET read = ? WHERE project_id = ? AND id = ?",
				boolToInt(o.Read), o.Ref.ProjectID, o.Ref.ID,
			)
			if err != nil {
				return fmt.Errorf("%s: updating %s: %w", op, o.Ref.ID, err)
			}
			if rows, _ := result.RowsAffected(); rows == 0 {
				return Errorf(op, CodeNotFound, "notification %s not found", o.Ref.ID)
			}
		case BatchDelete:
			_, err := tx.ExecContext(ctx,
				"DELETE FROM notifications WHERE project_id = ? AND id = ?",
				o.Ref.ProjectID, o.Ref.ID,
			)
			if err != nil {
				return fmt.Errorf("%s: deleting %s: %w", op, o.Ref.ID, err)
			}
		default:
			return Errorf(op, CodeInvalidArgument, "unknown batch op %d", o.Kind)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.feed.publish(topicNotifications)
	return nil
}

// notFoundOr converts sql.ErrNoRows into a CodeNotFound error.
func notFoundOr(err error, op, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return Errorf(op, CodeNotFound, "%s %s not found", what, id)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

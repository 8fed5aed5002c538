package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// SQLite persists reminders and the scheduler checkpoint. It satisfies
// reminder.Store.
type SQLite struct {
	db  *sql.DB
	log logx.Logger
}

var _ reminder.Store = (*SQLite)(nil)

// Open opens (creating if needed) the database at cfg.Path and applies the
// embedded schema.
func Open(cfg Config, log logx.Logger) (*SQLite, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer; this also serializes our mutations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &SQLite{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(owner_id, hour, minute, label, created_at)
		 VALUES(?,?,?,?,?)`,
		r.OwnerID, r.Hour, r.Minute, r.Label, r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return nil
}

const reminderCols = `id, owner_id, hour, minute, label, created_at`

func scanReminder(row interface{ Scan(...any) error }) (reminder.Reminder, error) {
	var r reminder.Reminder
	var createdMS int64
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Hour, &r.Minute, &r.Label, &createdMS); err != nil {
		return reminder.Reminder{}, err
	}
	r.CreatedAt = time.UnixMilli(createdMS)
	return r, nil
}

func collectReminders(rows *sql.Rows) ([]reminder.Reminder, error) {
	defer rows.Close()
	var out []reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListByOwner returns the owner's reminders ordered by creation; the
// position in this list (1-based) is the display ordinal.
func (s *SQLite) ListByOwner(ctx context.Context, ownerID int64) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderCols+` FROM reminders
		 WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return collectReminders(rows)
}

func (s *SQLite) ScanAll(ctx context.Context) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderCols+` FROM reminders ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("scan reminders: %w", err)
	}
	return collectReminders(rows)
}

// DeleteByOrdinal resolves the 1-based ordinal against the owner's current
// createdAt ordering and removes that reminder. Select and delete run in one
// transaction so a concurrent mutation cannot shift the ordinal under us.
func (s *SQLite) DeleteByOrdinal(ctx context.Context, ownerID int64, ordinal int) (reminder.Reminder, error) {
	if ordinal < 1 {
		return reminder.Reminder{}, fmt.Errorf("%w: ordinal %d", ErrNotFound, ordinal)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+reminderCols+` FROM reminders
		 WHERE owner_id = ? ORDER BY created_at, id
		 LIMIT 1 OFFSET ?`, ownerID, ordinal-1)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return reminder.Reminder{}, fmt.Errorf("%w: ordinal %d", ErrNotFound, ordinal)
	}
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("resolve ordinal: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND owner_id = ?`, r.ID, ownerID); err != nil {
		return reminder.Reminder{}, fmt.Errorf("delete reminder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return reminder.Reminder{}, fmt.Errorf("commit delete: %w", err)
	}
	return r, nil
}

// Checkpoint returns the persisted last-checked instant; ok is false before
// the first SetCheckpoint (fresh install).
func (s *SQLite) Checkpoint(ctx context.Context) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_checked_at FROM checkpoint WHERE id = 1`).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

// SetCheckpoint persists t. The row-level max() guard makes the checkpoint
// monotonic even if a caller ever handed us an older instant.
func (s *SQLite) SetCheckpoint(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoint(id, last_checked_at) VALUES(1, ?)
		 ON CONFLICT(id) DO UPDATE SET last_checked_at = max(excluded.last_checked_at, last_checked_at)`,
		t.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kilupskalvis/doctrack/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteLocks is a lock table kept in SQLite, so that processes that do
// not share the bbolt file can still coordinate.
type SQLiteLocks struct {
	db *sql.DB
}

// NewSQLiteLocks opens or creates the lock database at dbPath.
func NewSQLiteLocks(dbPath string) (*SQLiteLocks, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open lock database: %w", err)
	}

	l := &SQLiteLocks{db: db}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database connection
func (l *SQLiteLocks) Close() error {
	return l.db.Close()
}

func (l *SQLiteLocks) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS locks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		field TEXT NOT NULL,
		taken_by TEXT NOT NULL,
		taken_at INTEGER NOT NULL,
		UNIQUE(document_id, field)
	);

	CREATE INDEX IF NOT EXISTS idx_locks_taken_by ON locks(taken_by);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize lock schema: %w", err)
	}
	return nil
}

// FindOneAndUpsert inserts onInsert unless a row exists for key, then
// returns the stored row.
func (l *SQLiteLocks) FindOneAndUpsert(ctx context.Context, key LockKey, onInsert *models.Lock) (*models.Lock, error) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO locks (id, document_id, field, taken_by, taken_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id, field) DO NOTHING`,
		onInsert.ID, key.DocumentID, key.Field, onInsert.TakenBy, onInsert.TakenAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("upsert lock: %w", err)
	}

	row := l.db.QueryRowContext(ctx, `
		SELECT id, document_id, field, taken_by, taken_at
		FROM locks WHERE document_id = ? AND field = ?`,
		key.DocumentID, key.Field)
	lock, err := scanLock(row)
	if err != nil {
		return nil, fmt.Errorf("read lock: %w", err)
	}
	return lock, nil
}

// DeleteMany removes rows owned by filter.Owner, restricted to filter.Keys
// when given.
func (l *SQLiteLocks) DeleteMany(ctx context.Context, filter LockFilter) (int, error) {
	query := "DELETE FROM locks WHERE taken_by = ?"
	args := []any{filter.Owner}

	if len(filter.Keys) > 0 {
		conds := make([]string, len(filter.Keys))
		for i, key := range filter.Keys {
			conds[i] = "(document_id = ? AND field = ?)"
			args = append(args, key.DocumentID, key.Field)
		}
		query += " AND (" + strings.Join(conds, " OR ") + ")"
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete locks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// List returns every lock row ordered by document and field.
func (l *SQLiteLocks) List(ctx context.Context) ([]*models.Lock, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, document_id, field, taken_by, taken_at
		FROM locks ORDER BY document_id, field`)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	defer rows.Close()

	var locks []*models.Lock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, err
		}
		locks = append(locks, lock)
	}
	return locks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLock(s scanner) (*models.Lock, error) {
	var lock models.Lock
	var takenAt int64
	if err := s.Scan(&lock.ID, &lock.DocumentID, &lock.Field, &lock.TakenBy, &takenAt); err != nil {
		return nil, err
	}
	lock.TakenAt = time.Unix(0, takenAt).UTC()
	return &lock, nil
}

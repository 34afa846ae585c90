package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/prompterlab/fedopt/pkg/errors"
)

// SQLiteStore implements Store on a single SQLite database file. Each
// document is one row; SQLite's transactional writes give the atomic
// whole-document semantics the callers rely on.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes if needed) the store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageUnavailable, "failed to open sqlite database")
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StorageUnavailable, "failed to initialize sqlite schema")
	}

	// WAL keeps readers from blocking the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StorageUnavailable, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StorageUnavailable, "failed to set synchronous mode")
	}

	return s, nil
}

func (s *SQLiteStore) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithFields(
			errors.Wrap(err, errors.StorageUnavailable, "failed to read document"),
			errors.Fields{"key": key})
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UnixNano()); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageUnavailable, "failed to write document"),
			errors.Fields{"key": key})
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageUnavailable, "failed to delete document"),
			errors.Fields{"key": key})
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE key LIKE ? || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageUnavailable, "failed to list documents")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, errors.StorageUnavailable, "failed to scan document key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.StorageUnavailable, "failed to list documents")
	}
	return keys, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

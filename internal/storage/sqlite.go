package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLiteBackend stores documents in a single table of a local database.
// Multi-document writes run in one transaction.
type SQLiteBackend struct {
	conn *sqlite.Conn
	mu   sync.Mutex
}

// NewSQLiteBackend opens or creates the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	err = sqlitex.Execute(conn, `
		CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteBackend{conn: conn}, nil
}

func (s *SQLiteBackend) Read(ctx context.Context, name Dataset) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	var (
		body  []byte
		found bool
	)

	err := sqlitex.Execute(s.conn, "SELECT body FROM documents WHERE name = ?", &sqlitex.ExecOptions{
		Args: []any{string(name)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			body = []byte(stmt.ColumnText(0))
			found = true

			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if !found {
		return nil, ErrNotExist
	}

	return body, nil
}

// Write upserts every document inside a single transaction.
func (s *SQLiteBackend) Write(ctx context.Context, docs ...Document) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	if err := sqlitex.Execute(s.conn, "BEGIN IMMEDIATE TRANSACTION", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = sqlitex.Execute(s.conn, "ROLLBACK", nil)
		}
	}()

	now := time.Now().UnixMilli()

	for _, doc := range docs {
		err = sqlitex.Execute(s.conn, `
			INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
		`, &sqlitex.ExecOptions{
			Args: []any{string(doc.Name), string(doc.Body), now},
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", doc.Name, err)
		}
	}

	if err = sqlitex.Execute(s.conn, "COMMIT", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *SQLiteBackend) Exists(ctx context.Context, name Dataset) (bool, error) {
	_, err := s.Read(ctx, name)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, ErrNotExist) {
		return false, nil
	}

	return false, err
}

func (s *SQLiteBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Close()
}

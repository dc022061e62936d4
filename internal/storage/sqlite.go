package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"namematch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

// Load decodes the JSON value stored under key into dst.
func (s *SQLite) Load(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save stores v as JSON under key.
func (s *SQLite) Save(ctx context.Context, key string, v any) error {
	return s.SaveAll(ctx, map[string]any{key: v})
}

// SaveAll stores every value as JSON in a single transaction.
func (s *SQLite) SaveAll(ctx context.Context, values map[string]any) error {
	encoded := make(map[string]string, len(values))
	for key, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		encoded[key] = string(raw)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.stamp()
	for key, raw := range encoded {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, raw, now,
		)
		if err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// DeleteAll removes every stored key.
func (s *SQLite) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// Enqueue appends a pending op and returns its id.
func (s *SQLite) Enqueue(ctx context.Context, kind string, payload []byte) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_ops (kind, payload, created_at) VALUES (?, ?, ?)`,
		kind, string(payload), s.stamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert op: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Pending returns the oldest ops first.
func (s *SQLite) Pending(ctx context.Context, limit int) ([]Op, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, payload, attempts, last_error, created_at
		 FROM pending_ops ORDER BY id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ops []Op
	for rows.Next() {
		var (
			op      Op
			payload string
			lastErr sql.NullString
			created string
		)
		if err := rows.Scan(&op.ID, &op.Kind, &payload, &op.Attempts, &lastErr, &created); err != nil {
			return nil, fmt.Errorf("scan op: %w", err)
		}
		op.Payload = []byte(payload)
		op.LastError = lastErr.String
		op.CreatedAt, _ = time.Parse(timeLayout, created)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Done removes a completed op.
func (s *SQLite) Done(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_ops WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete op: %w", err)
	}
	return nil
}

// Fail records a failed attempt on an op.
func (s *SQLite) Fail(ctx context.Context, id int64, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_ops SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("update op: %w", err)
	}
	return nil
}

// ClearOps drops every pending op.
func (s *SQLite) ClearOps(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_ops`); err != nil {
		return fmt.Errorf("delete ops: %w", err)
	}
	return nil
}

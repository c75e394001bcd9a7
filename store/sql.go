package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// SQLStore persists records through database/sql. The caller supplies the
// driver; the DDL and placeholders target SQLite-compatible databases.
type SQLStore struct {
	db    *sql.DB
	table string
}

// NewSQLStore builds a store over db writing to the given table. An empty
// table name defaults to "fsm_records". The schema is created on first use.
func NewSQLStore(db *sql.DB, table string) *SQLStore {
	if table == "" {
		table = "fsm_records"
	}
	return &SQLStore{db: db, table: table}
}

// Load reads one record, or (nil, nil) when no row exists.
func (s *SQLStore) Load(ctx context.Context, resource, id string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sql store not configured", errors.CategoryBadInput)
	}
	if err := s.ensureSchema(ctx, s.db); err != nil {
		return nil, err
	}
	return loadSQLRecord(ctx, s.db, s.table, resource, id)
}

// SaveIfVersion writes the record using an optimistic version compare.
func (s *SQLStore) SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("sql store not configured", errors.CategoryBadInput)
	}
	if err := s.ensureSchema(ctx, s.db); err != nil {
		return 0, err
	}
	return saveSQLRecord(ctx, s.db, s.table, rec, expectedVersion)
}

// RunInTransaction executes fn inside a database transaction.
func (s *SQLStore) RunInTransaction(ctx context.Context, fn func(Tx) error) error {
	if s == nil || s.db == nil {
		return errors.New("sql store not configured", errors.CategoryBadInput)
	}
	if fn == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fn(&sqlTx{table: s.table, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	table string
	tx    *sql.Tx
}

func (s *sqlTx) Load(ctx context.Context, resource, id string) (*Record, error) {
	if s == nil || s.tx == nil {
		return nil, errors.New("sql transaction not configured", errors.CategoryBadInput)
	}
	return loadSQLRecord(ctx, s.tx, s.table, resource, id)
}

func (s *sqlTx) SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int64) (int64, error) {
	if s == nil || s.tx == nil {
		return 0, errors.New("sql transaction not configured", errors.CategoryBadInput)
	}
	return saveSQLRecord(ctx, s.tx, s.table, rec, expectedVersion)
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadSQLRecord(ctx context.Context, q sqlQuerier, table, resource, id string) (*Record, error) {
	key := recordKey(resource, id)
	if key == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT resource, id, state, version, attributes, updated_at FROM %s WHERE resource = ? AND id = ?`, table)
	var (
		rec            Record
		attributesJSON string
		updatedAtStr   string
	)
	err := q.QueryRowContext(ctx, query, resourceKey(resource), strings.TrimSpace(id)).Scan(
		&rec.Resource,
		&rec.ID,
		&rec.State,
		&rec.Version,
		&attributesJSON,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if attributesJSON != "" {
		_ = json.Unmarshal([]byte(attributesJSON), &rec.Attributes)
	}
	if updatedAtStr != "" {
		if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAtStr); parseErr == nil {
			rec.UpdatedAt = ts
		}
	}
	return &rec, nil
}

func saveSQLRecord(ctx context.Context, q sqlQuerier, table string, rec *Record, expected int64) (int64, error) {
	rec = cloneRecord(rec)
	if err := normalizeRecord(rec); err != nil {
		return 0, err
	}
	if expected < 0 {
		expected = 0
	}
	attributesJSON, err := json.Marshal(rec.Attributes)
	if err != nil {
		return 0, err
	}
	updatedAt := rec.UpdatedAt.UTC().Format(time.RFC3339Nano)

	if expected == 0 {
		query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (resource, id, state, version, attributes, updated_at) VALUES (?, ?, ?, 1, ?, ?)`, table)
		result, err := q.ExecContext(ctx, query, rec.Resource, rec.ID, rec.State, string(attributesJSON), updatedAt)
		if err != nil {
			return 0, err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return 0, versionConflict(rec.Resource, rec.ID, expected)
		}
		return 1, nil
	}

	newVersion := expected + 1
	query := fmt.Sprintf(`UPDATE %s SET state=?, version=?, attributes=?, updated_at=? WHERE resource=? AND id=? AND version=?`, table)
	result, err := q.ExecContext(ctx, query, rec.State, newVersion, string(attributesJSON), updatedAt, rec.Resource, rec.ID, expected)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return 0, versionConflict(rec.Resource, rec.ID, expected)
	}
	return newVersion, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context, q sqlQuerier) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		resource TEXT NOT NULL,
		id TEXT NOT NULL,
		state TEXT NOT NULL,
		version INTEGER NOT NULL,
		attributes TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (resource, id)
	)`, s.table)
	_, err := q.ExecContext(ctx, ddl)
	return err
}


package sheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sheet_rows (
	row_num     INTEGER PRIMARY KEY AUTOINCREMENT,
	cells_json  TEXT NOT NULL,
	appended_at TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store is a Sheet kept in a SQLite table, one JSON array of cells per row.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	s, err := NewStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB runs migrations on an existing connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (spool, event log).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region header
// AppendHeaderIfAbsent probes for an empty sheet before writing the header.
func (s *Store) AppendHeaderIfAbsent(ctx context.Context, header []string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheet_rows`).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: probe: %v", ErrUnavailable, err)
	}
	if count > 0 {
		return false, nil
	}
	if err := s.AppendRows(ctx, [][]string{header}); err != nil {
		return false, err
	}
	return true, nil
}

// #endregion header

// #region append-rows
// AppendRows inserts all rows in one transaction.
func (s *Store) AppendRows(ctx context.Context, rows [][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sheet_rows (cells_json, appended_at) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", ErrUnavailable, err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, row := range rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, string(cells), now); err != nil {
			return fmt.Errorf("%w: insert row %d: %v", ErrUnavailable, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	return nil
}

// #endregion append-rows

// #region rows
// Rows returns all rows in append order.
func (s *Store) Rows(ctx context.Context) ([][]string, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT cells_json FROM sheet_rows ORDER BY row_num`)
	if err != nil {
		return nil, fmt.Errorf("%w: list rows: %v", ErrUnavailable, err)
	}
	defer rs.Close()

	var out [][]string
	for rs.Next() {
		var cellsJSON string
		if err := rs.Scan(&cellsJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
			return nil, fmt.Errorf("unmarshal row: %w", err)
		}
		out = append(out, cells)
	}
	return out, rs.Err()
}

// #endregion rows

package gate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region schema
const spoolSchema = `
CREATE TABLE IF NOT EXISTS unsaved_submissions (
	id            TEXT PRIMARY KEY,
	participant   TEXT NOT NULL,
	submitted_at  TEXT NOT NULL,
	records_json  TEXT NOT NULL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	last_error    TEXT,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region spool
// Spool persists batches that could not be submitted.
type Spool struct {
	db *sql.DB
}

// NewSpool creates the unsaved_submissions table if needed.
func NewSpool(db *sql.DB) (*Spool, error) {
	if _, err := db.Exec(spoolSchema); err != nil {
		return nil, fmt.Errorf("migrate spool: %w", err)
	}
	return &Spool{db: db}, nil
}

// #endregion spool

// #region put
// Put stores p and returns its id.
func (s *Spool) Put(ctx context.Context, p Pending) (string, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	recs, err := json.Marshal(p.Records)
	if err != nil {
		return "", fmt.Errorf("marshal records: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO unsaved_submissions (id, participant, submitted_at, records_json, attempts, last_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Participant, p.SubmittedAt, string(recs), p.Attempts, nullIfEmpty(p.LastError),
		p.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("spool put: %w", err)
	}
	return p.ID, nil
}

// #endregion put

// #region list
// List returns spooled batches, oldest first.
func (s *Spool) List(ctx context.Context) ([]Pending, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, participant, submitted_at, records_json, attempts, last_error, created_at
		 FROM unsaved_submissions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("spool list: %w", err)
	}
	defer rows.Close()

	var out []Pending
	for rows.Next() {
		var p Pending
		var recs, created string
		var lastErr sql.NullString
		if err := rows.Scan(&p.ID, &p.Participant, &p.SubmittedAt, &recs, &p.Attempts, &lastErr, &created); err != nil {
			return nil, fmt.Errorf("scan spool row: %w", err)
		}
		if err := json.Unmarshal([]byte(recs), &p.Records); err != nil {
			return nil, fmt.Errorf("unmarshal spool %s: %w", p.ID, err)
		}
		if lastErr.Valid {
			p.LastError = lastErr.String
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// #endregion list

// #region update
// MarkAttempt records a failed resubmission.
func (s *Spool) MarkAttempt(ctx context.Context, id string, tries int, cause error) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE unsaved_submissions SET attempts = attempts + ?, last_error = ? WHERE id = ?`,
		tries, cause.Error(), id)
	if err != nil {
		return fmt.Errorf("spool mark %s: %w", id, err)
	}
	return nil
}

// Delete removes a batch after it reached the sheet.
func (s *Spool) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM unsaved_submissions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("spool delete %s: %w", id, err)
	}
	return nil
}

// #endregion update

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers

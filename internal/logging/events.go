package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/choice-experiment/internal/session"
)

// #region schema
const eventSchema = `
CREATE TABLE IF NOT EXISTS session_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	participant TEXT,
	event       TEXT NOT NULL,
	decision    TEXT NOT NULL,
	from_phase  TEXT NOT NULL,
	to_phase    TEXT NOT NULL,
	block       TEXT,
	step        INTEGER NOT NULL,
	reason      TEXT,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region event-entry
// EventEntry is a single row in the session_events table.
type EventEntry struct {
	SessionID   string
	Participant string
	Event       string
	Decision    string // "recorded" | "ignored" | "rejected" | "started"
	FromPhase   string
	ToPhase     string
	Block       string
	Step        int
	Reason      string
	CreatedAt   time.Time
}

// #endregion event-entry

// #region log-event
// LogEvent writes an entry to the session_events table.
func LogEvent(ctx context.Context, db *sql.DB, entry EventEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO session_events (session_id, participant, event, decision, from_phase, to_phase, block, step, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		nullIfEmpty(entry.Participant),
		entry.Event,
		entry.Decision,
		entry.FromPhase,
		entry.ToPhase,
		nullIfEmpty(entry.Block),
		entry.Step,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// #endregion log-event

// #region event-log
// EventLog records every session transition; it satisfies session.Observer.
type EventLog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventLog creates the session_events table if needed.
func NewEventLog(db *sql.DB, logger *zap.Logger) (*EventLog, error) {
	if _, err := db.Exec(eventSchema); err != nil {
		return nil, fmt.Errorf("migrate events: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLog{db: db, logger: logger}, nil
}

// Observe stores t. Write failures are logged, never returned to the session.
func (l *EventLog) Observe(ctx context.Context, t session.Transition) {
	err := LogEvent(ctx, l.db, EventEntry{
		SessionID:   t.SessionID,
		Participant: t.Participant,
		Event:       string(t.Event),
		Decision:    string(t.Decision),
		FromPhase:   string(t.From),
		ToPhase:     string(t.To),
		Block:       t.Block,
		Step:        t.Step,
		Reason:      t.Reason,
		CreatedAt:   t.At,
	})
	if err != nil {
		l.logger.Warn("event log write failed", zap.String("session_id", t.SessionID), zap.Error(err))
	}
}

// Recent returns the latest entries, newest first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]EventEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT session_id, participant, event, decision, from_phase, to_phase, block, step, reason, created_at
		 FROM session_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []EventEntry
	for rows.Next() {
		var e EventEntry
		var participant, block, reason sql.NullString
		var created string
		if err := rows.Scan(&e.SessionID, &participant, &e.Event, &e.Decision, &e.FromPhase, &e.ToPhase,
			&block, &e.Step, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Participant = participant.String
		e.Block = block.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion event-log

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers

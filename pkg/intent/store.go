// Package intent persists confirmation intents for sensitive actions.
//
// A payment is never executed directly from a request: the request
// produces a pending intent with a preview, and only an explicit
// confirmation of that intent releases execution. Intents are durable
// so a crash between preview and confirmation cannot lose the gate,
// and deduplicated so repeated previews of the same action reuse one
// intent instead of stacking confirmations.
package intent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	// Pure-Go SQLite driver, registered for database/sql.
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no intent matches the given id, or
	// when the intent is no longer pending (already confirmed,
	// cancelled, or expired and rewritten).
	ErrNotFound = errors.New("intent not found")

	// ErrExpired is returned when confirming an intent past its
	// confirmation window.
	ErrExpired = errors.New("intent expired")
)

// Store is the durable pending-intent store backed by SQLite.
// Uniqueness of (session_id, args_hash) among pending rows is
// enforced by a partial unique index, not application code, so
// concurrent writers cannot race two pending intents into existence.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the intent database at path. Use ":memory:"
// for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open intent db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping intent db: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate intent db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS pending_intents (
		intent_id    TEXT PRIMARY KEY,
		session_id   TEXT NOT NULL,
		action_type  TEXT NOT NULL,
		tool_name    TEXT NOT NULL,
		args_json    TEXT NOT NULL,
		args_hash    TEXT NOT NULL,
		preview_text TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		created_at   TEXT NOT NULL,
		expires_at   TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_dedupe
		ON pending_intents(session_id, args_hash)
		WHERE status = 'pending';
	CREATE INDEX IF NOT EXISTS idx_pending_session_action
		ON pending_intents(session_id, action_type, created_at);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create records a new pending intent and returns its id. If a
// non-expired pending intent with the same stable-args hash already
// exists for the session, its id is returned instead of creating a
// duplicate, so repeated previews converge on one confirmation gate.
func (s *Store) Create(ctx context.Context, sessionID, actionType, toolName string, args map[string]string, previewText string, ttl time.Duration) (string, error) {
	hash := HashArgs(args)
	now := s.now().UTC()

	if existing, err := s.findPendingByHash(ctx, sessionID, hash, now); err != nil {
		return "", err
	} else if existing != nil {
		return existing.ID, nil
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode intent args: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_intents
			(intent_id, session_id, action_type, tool_name, args_json, args_hash, preview_text, status, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?)`,
		id, sessionID, actionType, toolName, string(argsJSON), hash, previewText,
		now.Format(time.RFC3339Nano), now.Add(ttl).Format(time.RFC3339Nano),
	)
	if err != nil {
		// A concurrent Create may have won the unique index race;
		// reuse its row rather than failing the preview.
		if isUniqueViolation(err) {
			if existing, ferr := s.findPendingByHash(ctx, sessionID, hash, now); ferr == nil && existing != nil {
				return existing.ID, nil
			}
		}
		return "", fmt.Errorf("insert intent: %w", err)
	}
	return id, nil
}

// Find returns the most recent non-expired pending intent for the
// session and action type, or nil when none exists.
func (s *Store) Find(ctx context.Context, sessionID, actionType string) (*Intent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT intent_id, session_id, action_type, tool_name, args_json, args_hash, preview_text, status, created_at, expires_at
		 FROM pending_intents
		 WHERE session_id = ? AND action_type = ? AND status = 'pending'
		 ORDER BY created_at DESC`,
		sessionID, actionType,
	)
	if err != nil {
		return nil, fmt.Errorf("query intents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	now := s.now().UTC()
	for rows.Next() {
		it, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		if it.Expired(now) {
			s.markExpired(ctx, it.ID)
			continue
		}
		return it, nil
	}
	return nil, rows.Err()
}

// Get returns the intent with the given id regardless of status.
func (s *Store) Get(ctx context.Context, intentID string) (*Intent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT intent_id, session_id, action_type, tool_name, args_json, args_hash, preview_text, status, created_at, expires_at
		 FROM pending_intents WHERE intent_id = ?`,
		intentID,
	)
	it, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return it, nil
}

// Confirm transitions a pending intent to confirmed and returns it
// with its stored arguments. Returns ErrExpired past the confirmation
// window and ErrNotFound when the intent does not exist or is no
// longer pending; a second Confirm of the same intent therefore fails
// with ErrNotFound instead of re-releasing execution.
func (s *Store) Confirm(ctx context.Context, intentID string) (*Intent, error) {
	it, err := s.Get(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if it.Status != StatusPending {
		return nil, ErrNotFound
	}
	if it.Expired(s.now().UTC()) {
		s.markExpired(ctx, it.ID)
		return nil, ErrExpired
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_intents SET status = 'confirmed' WHERE intent_id = ? AND status = 'pending'`,
		intentID,
	)
	if err != nil {
		return nil, fmt.Errorf("confirm intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost a race with a concurrent confirm or cancel.
		return nil, ErrNotFound
	}

	it.Status = StatusConfirmed
	return it, nil
}

// Cancel transitions a pending intent to cancelled.
func (s *Store) Cancel(ctx context.Context, intentID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_intents SET status = 'cancelled' WHERE intent_id = ? AND status = 'pending'`,
		intentID,
	)
	if err != nil {
		return fmt.Errorf("cancel intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) findPendingByHash(ctx context.Context, sessionID, hash string, now time.Time) (*Intent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT intent_id, session_id, action_type, tool_name, args_json, args_hash, preview_text, status, created_at, expires_at
		 FROM pending_intents
		 WHERE session_id = ? AND args_hash = ? AND status = 'pending'`,
		sessionID, hash,
	)
	it, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query pending intent: %w", err)
	}
	if it.Expired(now) {
		s.markExpired(ctx, it.ID)
		return nil, nil
	}
	return it, nil
}

// markExpired rewrites a row a reader observed past its window.
// Errors are deliberately ignored: expiry remains enforced by
// Expired() on every read even if the rewrite fails.
func (s *Store) markExpired(ctx context.Context, intentID string) {
	_, _ = s.db.ExecContext(ctx,
		`UPDATE pending_intents SET status = 'expired' WHERE intent_id = ? AND status = 'pending'`,
		intentID,
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*Intent, error) {
	var (
		it        Intent
		argsJSON  string
		status    string
		createdAt string
		expiresAt string
	)
	err := row.Scan(&it.ID, &it.SessionID, &it.ActionType, &it.ToolName, &argsJSON, &it.ArgsHash, &it.PreviewText, &status, &createdAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(argsJSON), &it.Args); err != nil {
		return nil, fmt.Errorf("decode intent args: %w", err)
	}
	it.Status = Status(status)
	if it.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if it.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &it, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

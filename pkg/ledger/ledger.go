// Package ledger is the single authority for whether a CE's surcharge
// has already been paid. Every other component consults it before any
// external lookup, and writes to it are hash-keyed inserts so retries
// and concurrent executions collapse into one record.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/freightops/afrmm/pkg/money"

	_ "modernc.org/sqlite"
)

// Ledger persists completed payments in SQLite. The UNIQUE constraint
// on payload_hash is the only concurrency control: insert-if-absent
// semantics make repeated RecordSuccess calls with identical facts
// no-ops after the first.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger database at path. Use ":memory:"
// for tests.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping ledger db: %w", err)
	}

	l := &Ledger{db: db, now: time.Now}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS payment_records (
		record_id         TEXT PRIMARY KEY,
		ce_number         TEXT NOT NULL,
		process_ref       TEXT NOT NULL,
		status            TEXT NOT NULL,
		bank_code         TEXT NOT NULL,
		branch            TEXT NOT NULL,
		account           TEXT NOT NULL,
		amount_due_cents  INTEGER NOT NULL,
		amount_paid_cents INTEGER NOT NULL,
		receipt_ref       TEXT NOT NULL DEFAULT '',
		payload_hash      TEXT NOT NULL UNIQUE,
		created_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_ce
		ON payment_records(ce_number, created_at);`
	_, err := l.db.ExecContext(context.Background(), query)
	return err
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordSuccess persists a completed payment and returns the record
// id. Calling it again with identical facts returns the id of the
// existing record without writing a second row, regardless of how
// much later the retry happens.
func (l *Ledger) RecordSuccess(ctx context.Context, facts Facts, receiptRef string) (string, error) {
	hash := facts.PayloadHash()
	id := uuid.New().String()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO payment_records
			(record_id, ce_number, process_ref, status, bank_code, branch, account,
			 amount_due_cents, amount_paid_cents, receipt_ref, payload_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(payload_hash) DO NOTHING`,
		id, facts.CENumber, facts.ProcessRef, string(facts.Status),
		facts.Bank.BankCode, facts.Bank.Branch, facts.Bank.Account,
		int64(facts.AmountDue), int64(facts.AmountPaid), receiptRef, hash,
		l.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert payment record: %w", err)
	}

	// Read back by hash: either our row or the earlier winner's.
	var recordID string
	err = l.db.QueryRowContext(ctx,
		`SELECT record_id FROM payment_records WHERE payload_hash = ?`, hash,
	).Scan(&recordID)
	if err != nil {
		return "", fmt.Errorf("read back payment record: %w", err)
	}
	return recordID, nil
}

// FindLastSuccess returns the most recent completed-payment record for
// the CE number, or nil when none exists.
func (l *Ledger) FindLastSuccess(ctx context.Context, ceNumber string) (*Record, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT record_id, ce_number, process_ref, status, bank_code, branch, account,
			amount_due_cents, amount_paid_cents, receipt_ref, payload_hash, created_at
		 FROM payment_records
		 WHERE ce_number = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		ceNumber,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query payment record: %w", err)
	}
	return rec, nil
}

// Get returns the record with the given id.
func (l *Ledger) Get(ctx context.Context, recordID string) (*Record, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT record_id, ce_number, process_ref, status, bank_code, branch, account,
			amount_due_cents, amount_paid_cents, receipt_ref, payload_hash, created_at
		 FROM payment_records WHERE record_id = ?`,
		recordID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment record %s not found", recordID)
		}
		return nil, err
	}
	return rec, nil
}

// List returns the newest records up to limit, for operator inspection.
func (l *Ledger) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT record_id, ce_number, process_ref, status, bank_code, branch, account,
			amount_due_cents, amount_paid_cents, receipt_ref, payload_hash, created_at
		 FROM payment_records
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		status    string
		dueCents  int64
		paidCents int64
		createdAt string
	)
	err := row.Scan(&rec.ID, &rec.CENumber, &rec.ProcessRef, &status,
		&rec.Bank.BankCode, &rec.Bank.Branch, &rec.Bank.Account,
		&dueCents, &paidCents, &rec.ReceiptRef, &rec.PayloadHash, &createdAt)
	if err != nil {
		return nil, err
	}

	rec.Status = RecordStatus(status)
	rec.AmountDue = money.Centavos(dueCents)
	rec.AmountPaid = money.Centavos(paidCents)
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &rec, nil
}

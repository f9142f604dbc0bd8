package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"firewall-discovery-go/internal/domain"

	_ "modernc.org/sqlite"
)

// Audit is an append-only trail of served discovery and connectivity
// requests. It is never read to build a response.
type Audit struct {
	db *sql.DB
}

// dsn examples:
//
//	file:audit.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)
//	./audit.db
func New(ctx context.Context, dsn string) (*Audit, error) {
	if dsn == "" {
		return nil, errors.New("APP_AUDIT_DSN is empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Safe even when already set in the DSN.
	_, _ = db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`)
	_, _ = db.ExecContext(ctx, `PRAGMA busy_timeout=5000;`)

	return &Audit{db: db}, nil
}

func (a *Audit) Close() { _ = a.db.Close() }

// Record appends one entry. Callers treat failures as non-fatal.
func (a *Audit) Record(ctx context.Context, e domain.AuditEntry) error {
	createdAt := e.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := a.db.ExecContext(ctx, `
		insert into checks (kind, target, source, destination, port, protocol, outcome, created_at)
		values (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Kind, e.Target, e.Source, e.Destination, e.Port, e.Protocol, e.Outcome, createdAt)
	return err
}

// Recent returns the newest entries, newest first.
func (a *Audit) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
		select id, kind, target, source, destination, port, protocol, outcome, created_at
		from checks
		order by id desc
		limit ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Target, &e.Source, &e.Destination,
			&e.Port, &e.Protocol, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

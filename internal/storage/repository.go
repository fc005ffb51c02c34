// Package storage persists contribution records in a local SQLite file.
//
// The store is append-only: records are never updated or deleted, and every
// read returns the full snapshot. The database file doubles as the unit of
// remote mirroring (Snapshot/Replace).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"contribs/internal/core"

	_ "modernc.org/sqlite"
)

// StorageError wraps an I/O or constraint failure of the underlying store.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

type Repository struct {
	db   *sql.DB
	path string
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, &StorageError{Op: "create db directory", Cause: err}
	}

	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	return &Repository{db: db, path: dbPath}, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &StorageError{Op: "open", Cause: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "ping", Cause: err}
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, &StorageError{Op: "migrate", Cause: err}
	}

	return db, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the location of the database file.
func (r *Repository) Path() string {
	return r.path
}

// Append persists a single record and returns the id assigned by the store.
func (r *Repository) Append(ctx context.Context, c core.Contribution) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, &StorageError{Op: "append", Cause: err}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contributions (phone, amount, transfer_date) VALUES (?, ?, ?)`,
		c.Phone, c.Amount.Units(), c.TransferDate.String())
	if err != nil {
		return 0, &StorageError{Op: "append", Cause: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &StorageError{Op: "append", Cause: err}
	}

	slog.InfoContext(ctx, "Contribution saved",
		"id", id,
		"phone", c.Phone,
		"amount_cents", c.Amount.Cents,
		"transfer_date", c.TransferDate.String())

	return id, nil
}

// AppendBatch inserts the records in the given order inside a single
// transaction: either every record is committed or the store is left
// unchanged. Returns the number of records inserted.
func (r *Repository) AppendBatch(ctx context.Context, records []core.Contribution) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StorageError{Op: "append batch", Cause: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contributions (phone, amount, transfer_date) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, &StorageError{Op: "append batch", Cause: err}
	}
	defer stmt.Close()

	for _, c := range records {
		if err := c.Validate(); err != nil {
			return 0, &StorageError{Op: "append batch", Cause: err}
		}
		if _, err := stmt.ExecContext(ctx, c.Phone, c.Amount.Units(), c.TransferDate.String()); err != nil {
			return 0, &StorageError{Op: "append batch", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Op: "append batch", Cause: err}
	}

	slog.InfoContext(ctx, "Contribution batch saved", "count", len(records))
	return len(records), nil
}

// LoadAll returns every persisted record, ordered by id.
func (r *Repository) LoadAll(ctx context.Context) ([]core.Contribution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, phone, amount, transfer_date FROM contributions ORDER BY id`)
	if err != nil {
		return nil, &StorageError{Op: "load", Cause: err}
	}
	defer rows.Close()

	var out []core.Contribution
	for rows.Next() {
		var (
			c       core.Contribution
			amount  float64
			dateStr string
		)
		if err := rows.Scan(&c.ID, &c.Phone, &amount, &dateStr); err != nil {
			return nil, &StorageError{Op: "load", Cause: err}
		}
		c.Amount = core.FromUnits(amount)
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, &StorageError{Op: "load", Cause: fmt.Errorf("row %d: %w", c.ID, err)}
		}
		c.TransferDate = d
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "load", Cause: err}
	}
	return out, nil
}

// Count returns the number of persisted records.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contributions`).Scan(&n); err != nil {
		return 0, &StorageError{Op: "count", Cause: err}
	}
	return n, nil
}

// Snapshot returns the raw bytes of the database file for the remote mirror.
// Callers must not interleave snapshots with local writes; the tool is
// single-operator and sync runs as a separate phase.
func (r *Repository) Snapshot() ([]byte, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, &StorageError{Op: "snapshot", Cause: err}
	}
	return data, nil
}

// Replace overwrites the local database file with a downloaded snapshot and
// reopens the connection. Used by restore-from-remote before first use.
func (r *Repository) Replace(data []byte) error {
	if err := r.db.Close(); err != nil {
		return &StorageError{Op: "replace", Cause: err}
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return &StorageError{Op: "replace", Cause: err}
	}
	db, err := openDB(r.path)
	if err != nil {
		return err
	}
	r.db = db
	return nil
}

// Package ledger keeps a SQLite record of every legacy id an import run
// migrated and the destination id it became.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

const schema = `
CREATE TABLE IF NOT EXISTS remap (
	run      TEXT    NOT NULL,
	kind     TEXT    NOT NULL,
	legacy   INTEGER NOT NULL,
	id       TEXT    NOT NULL,
	label    TEXT    NOT NULL,
	recorded INTEGER NOT NULL,
	PRIMARY KEY (run, kind, legacy)
)`

// Entry kinds.
const (
	KindAccount = "account"
	KindObject  = "object"
)

// Entry is one ledger row. Label is the account name or object class.
type Entry struct {
	Run      string
	Kind     string
	Legacy   gamedb.DBRef
	ID       uuid.UUID
	Label    string
	Recorded time.Time
}

// Ledger appends remap rows for one run. It implements importer.Ledger.
type Ledger struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
	run  string
	now  func() time.Time
}

// Open opens a SQLite database, sets WAL mode and busy timeout, and starts
// a new run.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create table: %w", err)
	}
	return &Ledger{
		db:   db,
		path: path,
		run:  uuid.NewString(),
		now:  time.Now,
	}, nil
}

// Close checkpoints the WAL and closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	_, cerr := l.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	err := l.db.Close()
	l.db = nil
	if err != nil {
		return err
	}
	return cerr
}

// Checkpoint folds the WAL into the main database file so the file can
// be copied on its own.
func (l *Ledger) Checkpoint(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return fmt.Errorf("ledger: closed")
	}
	if _, err := l.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("ledger: checkpoint: %w", err)
	}
	return nil
}

func (l *Ledger) Path() string { return l.path }

// Run identifies the rows this Ledger writes.
func (l *Ledger) Run() string { return l.run }

func (l *Ledger) RecordAccount(ctx context.Context, legacy gamedb.DBRef, id uuid.UUID, name string) error {
	return l.record(ctx, KindAccount, legacy, id, name)
}

func (l *Ledger) RecordObject(ctx context.Context, legacy gamedb.DBRef, id uuid.UUID, class string) error {
	return l.record(ctx, KindObject, legacy, id, class)
}

func (l *Ledger) record(ctx context.Context, kind string, legacy gamedb.DBRef, id uuid.UUID, label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return fmt.Errorf("ledger: closed")
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO remap (run, kind, legacy, id, label, recorded) VALUES (?, ?, ?, ?, ?, ?)`,
		l.run, kind, int(legacy), id.String(), label, l.now().Unix())
	if err != nil {
		return fmt.Errorf("ledger: record %s %s: %w", kind, legacy, err)
	}
	return nil
}

// Entries returns the rows of one run ordered by kind and legacy id. An
// empty run selects this Ledger's own.
func (l *Ledger) Entries(ctx context.Context, run string) ([]Entry, error) {
	if run == "" {
		run = l.run
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, fmt.Errorf("ledger: closed")
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT run, kind, legacy, id, label, recorded FROM remap WHERE run = ? ORDER BY kind, legacy`, run)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var legacy int
		var id string
		var recorded int64
		if err := rows.Scan(&e.Run, &e.Kind, &legacy, &id, &e.Label, &recorded); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("ledger: row %s %d: %w", e.Kind, legacy, err)
		}
		e.Legacy = gamedb.DBRef(legacy)
		e.Recorded = time.Unix(recorded, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

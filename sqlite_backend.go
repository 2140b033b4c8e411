package main

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const createLedgerTableSQL = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	ledger   TEXT NOT NULL,
	url      TEXT NOT NULL,
	position INTEGER NOT NULL,
	title    TEXT NOT NULL,
	score    REAL,
	summary  TEXT NOT NULL DEFAULT '',
	grp      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (ledger, url)
);
`

// SQLiteBackend keeps all three ledgers in one SQLite database. Save runs in
// a single transaction.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at dbPath
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set WAL mode: %w", err)
	}

	if _, err := db.Exec(createLedgerTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create tables: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load() (LedgerSnapshot, error) {
	var snapshot LedgerSnapshot
	var err error
	if snapshot.Results, err = b.read(LedgerResults); err != nil {
		return snapshot, err
	}
	if snapshot.Known, err = b.read(LedgerKnown); err != nil {
		return snapshot, err
	}
	if snapshot.Failed, err = b.read(LedgerFailed); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

func (b *SQLiteBackend) read(name LedgerName) ([]Article, error) {
	rows, err := b.db.Query(
		`SELECT url, title, score, summary, grp FROM ledger_entries
		 WHERE ledger = ? ORDER BY position`, string(name),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s ledger: %w", name, err)
	}
	defer rows.Close()

	var items []Article
	for rows.Next() {
		var a Article
		var score sql.NullFloat64
		if err := rows.Scan(&a.URL, &a.Title, &score, &a.Summary, &a.Group); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s entry: %w", name, err)
		}
		if score.Valid {
			a.Score = floatPtr(score.Float64)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate %s ledger: %w", name, err)
	}
	return items, nil
}

func (b *SQLiteBackend) Save(snapshot LedgerSnapshot) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ledger_entries`); err != nil {
		return fmt.Errorf("sqlite: clear ledgers: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO ledger_entries (ledger, url, position, title, score, summary, grp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	ledgers := []struct {
		name  LedgerName
		items []Article
	}{
		{LedgerResults, snapshot.Results},
		{LedgerFailed, snapshot.Failed},
		{LedgerKnown, snapshot.Known},
	}
	for _, l := range ledgers {
		for i, a := range l.items {
			var score sql.NullFloat64
			if a.Score != nil {
				score = sql.NullFloat64{Float64: *a.Score, Valid: true}
			}
			if _, err := stmt.Exec(string(l.name), a.URL, i, a.Title, score, a.Summary, a.Group); err != nil {
				return fmt.Errorf("sqlite: insert %s entry %s: %w", l.name, a.URL, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LedgerBackend persists the three ledgers of a run
type LedgerBackend interface {
	// Load returns the persisted ledgers. Missing ledgers are empty.
	Load() (LedgerSnapshot, error)
	// Save replaces every ledger. A failed Save must leave each
	// previously persisted ledger readable.
	Save(snapshot LedgerSnapshot) error
	Close() error
}

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// OpenBackend opens the configured backend for runDir
func OpenBackend(kind, runDir string) (LedgerBackend, error) {
	switch kind {
	case "", BackendJSON:
		return NewJSONBackend(runDir), nil
	case BackendSQLite:
		return NewSQLiteBackend(filepath.Join(runDir, "ledgers.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

// JSONBackend stores each ledger as a JSON array file in the run directory
type JSONBackend struct {
	dir string
}

// NewJSONBackend creates a backend writing results.json, known.json and
// failed.json under dir
func NewJSONBackend(dir string) *JSONBackend {
	return &JSONBackend{dir: dir}
}

func (b *JSONBackend) path(name LedgerName) string {
	return filepath.Join(b.dir, string(name)+".json")
}

func (b *JSONBackend) Load() (LedgerSnapshot, error) {
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

func (b *JSONBackend) read(name LedgerName) ([]Article, error) {
	data, err := os.ReadFile(b.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s ledger: %w", name, err)
	}

	var items []Article
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s ledger: %w", name, err)
	}
	return items, nil
}

// Save writes results and failed before known, so an interrupted save never
// leaves known ahead of the ledgers it indexes.
func (b *JSONBackend) Save(snapshot LedgerSnapshot) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	writes := []struct {
		name  LedgerName
		items []Article
	}{
		{LedgerResults, snapshot.Results},
		{LedgerFailed, snapshot.Failed},
		{LedgerKnown, snapshot.Known},
	}
	for _, w := range writes {
		items := w.items
		if items == nil {
			items = []Article{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s ledger: %w", w.name, err)
		}
		if err := writeFileAtomic(b.path(w.name), data); err != nil {
			return fmt.Errorf("writing %s ledger: %w", w.name, err)
		}
	}
	return nil
}

func (b *JSONBackend) Close() error {
	return nil
}

// writeFileAtomic replaces path with data via a synced temp file and rename
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

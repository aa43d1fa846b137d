package lexicon

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{`CREATE TABLE IF NOT EXISTS lexicon_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	form       TEXT NOT NULL,
	lemma      TEXT NOT NULL DEFAULT '',
	lemma_id   INTEGER NOT NULL DEFAULT 0,
	root       TEXT NOT NULL DEFAULT '',
	pos        TEXT NOT NULL DEFAULT '',
	frequency  INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS idx_lexicon_form ON lexicon_entries(form, frequency DESC, seq)`,
}

// SQLiteStore is a lexicon backed by a SQLite database. Insertion order is
// the seq column, which breaks frequency ties.
type SQLiteStore struct {
	db       *sql.DB
	manifest *Manifest
	closed   atomic.Bool
}

// OpenSQLite opens (or creates) the SQLite lexicon at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open lexicon db: %w", err)
	}
	for _, ddl := range sqliteSchema {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create lexicon schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Lookup implements Lexicon.
func (s *SQLiteStore) Lookup(ctx context.Context, form string, limit Limit) ([]Candidate, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	n := -1
	if limit == First {
		n = 1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT frequency, lemma, lemma_id, root, pos
		FROM lexicon_entries WHERE form = ?
		ORDER BY frequency DESC, seq LIMIT ?`, form, n)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", form, err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Frequency, &c.Lemma, &c.LemmaID, &c.Root, &c.POS); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Insert appends candidates under form in a single transaction.
func (s *SQLiteStore) Insert(ctx context.Context, form string, cs ...Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertAll(ctx, tx, form, cs); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertAll writes every entry in sorted key order, keeping each candidate
// list's order for frequency ties.
func (s *SQLiteStore) InsertAll(ctx context.Context, entries map[string][]Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := insertAll(ctx, tx, k, entries[k]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertAll(ctx context.Context, tx *sql.Tx, form string, cs []Candidate) error {
	const q = `INSERT INTO lexicon_entries (form, lemma, lemma_id, root, pos, frequency)
		VALUES (?, ?, ?, ?, ?, ?)`
	for _, c := range cs {
		if _, err := tx.ExecContext(ctx, q, form, c.Lemma, c.LemmaID, c.Root, c.POS, c.Frequency); err != nil {
			return fmt.Errorf("insert %q: %w", form, err)
		}
	}
	return nil
}

// SaveSQLite writes entries into a new or existing SQLite lexicon at path.
func SaveSQLite(ctx context.Context, entries map[string][]Candidate, path string) error {
	s, err := OpenSQLite(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.InsertAll(ctx, entries)
}

// Manifest returns the manifest the store was opened with, if any.
func (s *SQLiteStore) Manifest() *Manifest { return s.manifest }

// Len returns the number of distinct forms.
func (s *SQLiteStore) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT form) FROM lexicon_entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the database. Later lookups return ErrClosed.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

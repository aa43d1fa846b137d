package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnknownSource is returned for an adapter id that has no row.
var ErrUnknownSource = errors.New("unknown source")

const sourcesDDL = `CREATE TABLE IF NOT EXISTS lexicon_sources (
	adapter_id    TEXT PRIMARY KEY,
	lexicon_id    TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	source_url    TEXT NOT NULL DEFAULT '',
	url_override  INTEGER NOT NULL DEFAULT 0,
	license       TEXT NOT NULL DEFAULT '',
	storage       TEXT NOT NULL DEFAULT '',
	normalize     TEXT NOT NULL DEFAULT '',
	imported_at   INTEGER,
	import_rows   INTEGER NOT NULL DEFAULT 0,
	import_keys   INTEGER NOT NULL DEFAULT 0,
	import_error  TEXT NOT NULL DEFAULT '',
	checked_at    INTEGER,
	check_status  INTEGER NOT NULL DEFAULT 0,
	check_error   TEXT NOT NULL DEFAULT '',
	updated_at    INTEGER NOT NULL
)`

// Source is the declared and observed state of one lexicon source.
type Source struct {
	AdapterID   string
	LexiconID   string
	Description string
	SourceURL   string
	Overridden  bool // SourceURL was set by hand and survives Sync
	License     string
	Storage     string
	Normalize   string

	ImportedAt  time.Time // zero: never imported successfully
	Rows        int
	Keys        int
	ImportError string

	CheckedAt   time.Time // zero: never checked
	CheckStatus int       // HTTP status, 0 on network error
	CheckError  string

	UpdatedAt time.Time
}

// Healthy reports whether the last check reached the source.
func (s Source) Healthy() bool {
	return s.CheckStatus >= 200 && s.CheckStatus < 400
}

// SourceDB keeps lexicon sources and their import and check history in
// SQLite, next to the lexicons they produce.
type SourceDB struct {
	db *sql.DB
}

// OpenSourceDB opens (or creates) the database at path.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}
	if _, err := db.Exec(sourcesDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create lexicon_sources: %w", err)
	}
	return &SourceDB{db: db}, nil
}

// Close closes the underlying database.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Sync upserts one row per adapter. Declared fields follow the adapter;
// the URL follows it too unless it was overridden with SetURL. Import and
// check history is kept.
func (s *SourceDB) Sync(ctx context.Context, adapters []Adapter) error {
	const q = `INSERT INTO lexicon_sources
		(adapter_id, lexicon_id, description, source_url, license, storage, normalize, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(adapter_id) DO UPDATE SET
			lexicon_id  = excluded.lexicon_id,
			description = excluded.description,
			source_url  = CASE WHEN url_override THEN source_url ELSE excluded.source_url END,
			license     = excluded.license,
			storage     = excluded.storage,
			normalize   = excluded.normalize,
			updated_at  = excluded.updated_at`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync sources: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, a := range adapters {
		var storage, norm string
		if d, ok := a.(*Delimited); ok {
			storage, norm = d.spec.Storage, d.spec.Format.Normalize
		}
		if _, err := tx.ExecContext(ctx, q, a.ID(), a.LexiconID(), a.Description(), a.DefaultURL(),
			a.License(), storage, norm, now); err != nil {
			return fmt.Errorf("sync %s: %w", a.ID(), err)
		}
	}
	return tx.Commit()
}

// URL returns the URL an import of adapterID should fetch.
func (s *SourceDB) URL(ctx context.Context, adapterID string) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx,
		`SELECT source_url FROM lexicon_sources WHERE adapter_id = ?`, adapterID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	if err != nil {
		return "", fmt.Errorf("url of %s: %w", adapterID, err)
	}
	return url, nil
}

// SetURL pins the URL of adapterID. An empty url drops the override and
// the next Sync restores the declared URL.
func (s *SourceDB) SetURL(ctx context.Context, adapterID, url string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE lexicon_sources SET source_url = ?, url_override = ?, updated_at = ? WHERE adapter_id = ?`,
		url, boolInt(url != ""), time.Now().Unix(), adapterID)
	if err != nil {
		return fmt.Errorf("set url of %s: %w", adapterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	return nil
}

// RecordImport stores the outcome of an import. A failed import keeps the
// counts and time of the last successful one.
func (s *SourceDB) RecordImport(ctx context.Context, adapterID string, res ImportResult, importErr error) error {
	var q string
	var args []any
	if importErr != nil {
		q = `UPDATE lexicon_sources SET import_error = ? WHERE adapter_id = ?`
		args = []any{importErr.Error(), adapterID}
	} else {
		q = `UPDATE lexicon_sources SET imported_at = ?, import_rows = ?, import_keys = ?,
			storage = ?, import_error = '' WHERE adapter_id = ?`
		args = []any{res.At.Unix(), res.Rows, res.Keys, res.Storage, adapterID}
	}
	r, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("record import of %s: %w", adapterID, err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	return nil
}

// RecordCheck stores the outcome of an availability check.
func (s *SourceDB) RecordCheck(ctx context.Context, adapterID string, status int, checkErr error) error {
	msg := ""
	if checkErr != nil {
		msg = checkErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE lexicon_sources SET checked_at = ?, check_status = ?, check_error = ? WHERE adapter_id = ?`,
		time.Now().Unix(), status, msg, adapterID)
	if err != nil {
		return fmt.Errorf("record check of %s: %w", adapterID, err)
	}
	return nil
}

const sourceColumns = `adapter_id, lexicon_id, description, source_url, url_override, license,
	storage, normalize, imported_at, import_rows, import_keys, import_error,
	checked_at, check_status, check_error, updated_at`

// Get returns the row of adapterID.
func (s *SourceDB) Get(ctx context.Context, adapterID string) (Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM lexicon_sources WHERE adapter_id = ?`, adapterID)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	return src, err
}

// List returns every source ordered by lexicon then adapter id.
func (s *SourceDB) List(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM lexicon_sources ORDER BY lexicon_id, adapter_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func scanSource(row interface{ Scan(...any) error }) (Source, error) {
	var (
		src               Source
		imported, checked sql.NullInt64
		updated           int64
	)
	err := row.Scan(&src.AdapterID, &src.LexiconID, &src.Description, &src.SourceURL, &src.Overridden,
		&src.License, &src.Storage, &src.Normalize, &imported, &src.Rows, &src.Keys, &src.ImportError,
		&checked, &src.CheckStatus, &src.CheckError, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Source{}, err
		}
		return Source{}, fmt.Errorf("scan source: %w", err)
	}
	if imported.Valid {
		src.ImportedAt = time.Unix(imported.Int64, 0)
	}
	if checked.Valid {
		src.CheckedAt = time.Unix(checked.Int64, 0)
	}
	src.UpdatedAt = time.Unix(updated, 0)
	return src, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

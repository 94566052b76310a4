// Package sqlite persists the registry in an embedded SQLite database, one
// JSON row per record.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/repository"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		kind    TEXT NOT NULL,
		id      TEXT NOT NULL,
		version INTEGER NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (kind, id)
	)`,
	`CREATE TABLE IF NOT EXISTS catalog (
		kind    TEXT NOT NULL,
		id      TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (kind, id)
	)`,
}

// Store is a SQLite-backed repository.Store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (and creates when needed) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "croptrace.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; sqlite serialises writes anyway
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Snapshot loads every record and catalog entry.
func (s *Store) Snapshot(ctx context.Context) (*models.Registry, error) {
	reg := models.NewRegistry()
	if err := s.loadRecords(ctx, reg); err != nil {
		return nil, err
	}
	if err := s.loadCatalog(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Store) loadRecords(ctx context.Context, reg *models.Registry) error {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, version, payload FROM records`)
	if err != nil {
		return fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind string
		var version int64
		var payload []byte
		if err := rows.Scan(&kind, &version, &payload); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		rec, err := models.NewRecord(models.Kind(kind))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(payload, rec); err != nil {
			return fmt.Errorf("decode %s record: %w", kind, err)
		}
		// checks bump the column without rewriting the payload
		rec.SetVersion(version)
		reg.Put(rec)
	}
	return rows.Err()
}

func (s *Store) loadCatalog(ctx context.Context, reg *models.Registry) error {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, payload FROM catalog`)
	if err != nil {
		return fmt.Errorf("select catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind string
		var version int64
		var payload []byte
		if err := rows.Scan(&kind, &version, &payload); err != nil {
			return fmt.Errorf("scan catalog: %w", err)
		}
		entry, ok := models.NewCatalogEntry(models.CatalogKind(kind))
		if !ok {
			return fmt.Errorf("unknown catalog kind %q", kind)
		}
		if err := json.Unmarshal(payload, entry); err != nil {
			return fmt.Errorf("decode %s entry: %w", kind, err)
		}
		reg.PutCatalog(entry)
	}
	return rows.Err()
}

// Commit applies the batch in one transaction. Every write is conditioned on
// the version the record was read at.
func (s *Store) Commit(ctx context.Context, batch repository.Batch) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, rec := range batch.Puts {
		if err := put(ctx, tx, rec); err != nil {
			return err
		}
	}
	for _, rec := range batch.Deletes {
		ref := rec.Ref()
		res, err := tx.ExecContext(ctx,
			`DELETE FROM records WHERE kind = ? AND id = ? AND version = ?`,
			string(ref.Kind), ref.ID, rec.GetVersion())
		if err != nil {
			return fmt.Errorf("delete %s: %w", ref, err)
		}
		if err := expectOne(res); err != nil {
			return err
		}
	}
	for _, rec := range batch.Checks {
		ref := rec.Ref()
		res, err := tx.ExecContext(ctx,
			`UPDATE records SET version = version + 1 WHERE kind = ? AND id = ? AND version = ?`,
			string(ref.Kind), ref.ID, rec.GetVersion())
		if err != nil {
			return fmt.Errorf("check %s: %w", ref, err)
		}
		if err := expectOne(res); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func put(ctx context.Context, tx *sql.Tx, rec models.Record) error {
	ref := rec.Ref()
	stored := repository.Stamp(rec)
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ref, err)
	}

	var res sql.Result
	if rec.GetVersion() == 0 {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO records (kind, id, version, payload) VALUES (?, ?, ?, ?)
			 ON CONFLICT (kind, id) DO NOTHING`,
			string(ref.Kind), ref.ID, stored.GetVersion(), payload)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE records SET version = ?, payload = ? WHERE kind = ? AND id = ? AND version = ?`,
			stored.GetVersion(), payload, string(ref.Kind), ref.ID, rec.GetVersion())
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", ref, err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return repository.ErrVersionConflict
	}
	return nil
}

// SaveCatalog upserts a reference entry.
func (s *Store) SaveCatalog(ctx context.Context, entry models.CatalogEntry) error {
	kind, id := entry.CatalogKey()
	payload, err := json.Marshal(models.WithID(entry, id))
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, id, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalog (kind, id, payload) VALUES (?, ?, ?)
		 ON CONFLICT (kind, id) DO UPDATE SET payload = excluded.payload`,
		string(kind), id, payload)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", kind, id, err)
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

// Package repository defines the persistent store contract for the lot
// registry.
package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/croptrace/internal/domain/models"
)

var (
	// ErrVersionConflict means a record changed since the snapshot the batch
	// was computed from. Nothing in the batch was applied.
	ErrVersionConflict = errors.New("version conflict")
	// ErrOutcomeUnknown means the store lost track of a commit; it may or may
	// not have been applied.
	ErrOutcomeUnknown = errors.New("commit outcome unknown")
)

// Batch is an all-or-nothing set of writes. Every record carries the version
// it was read at; a create carries version 0.
//
// Checks are records the batch depends on without changing them. Commit
// fails unless each is still at the version it carries, and bumps that
// version so a concurrent batch that read the same record conflicts too.
type Batch struct {
	Puts    []models.Record
	Deletes []models.Record
	Checks  []models.Record
}

// Empty reports whether the batch has nothing to write.
func (b Batch) Empty() bool {
	return len(b.Puts) == 0 && len(b.Deletes) == 0 && len(b.Checks) == 0
}

// Store persists records and reference data.
type Store interface {
	// Snapshot loads every record and catalog entry.
	Snapshot(ctx context.Context) (*models.Registry, error)
	// Commit applies the batch atomically, bumping the version of every
	// written or checked record, or returns ErrVersionConflict and applies
	// nothing.
	Commit(ctx context.Context, batch Batch) error
	// SaveCatalog upserts one reference entry.
	SaveCatalog(ctx context.Context, entry models.CatalogEntry) error
	Close(ctx context.Context) error
}

// Stamp prepares the stored form of a put: a copy carrying the next version.
func Stamp(rec models.Record) models.Record {
	next := rec.Clone()
	next.SetVersion(rec.GetVersion() + 1)
	return next
}

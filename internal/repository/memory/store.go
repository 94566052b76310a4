// Package memory is a process-local store used for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/repository"
)

// Store keeps the registry in memory behind a mutex.
type Store struct {
	mu  sync.RWMutex
	reg *models.Registry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{reg: models.NewRegistry()}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot(_ context.Context) (*models.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.Clone(), nil
}

// Commit checks every expected version, then applies the whole batch.
func (s *Store) Commit(ctx context.Context, batch repository.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range batch.Puts {
		if s.currentVersion(rec.Ref()) != rec.GetVersion() {
			return repository.ErrVersionConflict
		}
	}
	for _, group := range [][]models.Record{batch.Deletes, batch.Checks} {
		for _, rec := range group {
			cur, ok := s.reg.Get(rec.Ref())
			if !ok || cur.GetVersion() != rec.GetVersion() {
				return repository.ErrVersionConflict
			}
		}
	}

	for _, rec := range batch.Puts {
		s.reg.Put(repository.Stamp(rec))
	}
	for _, rec := range batch.Checks {
		cur, _ := s.reg.Get(rec.Ref())
		s.reg.Put(repository.Stamp(cur))
	}
	for _, rec := range batch.Deletes {
		s.reg.Remove(rec.Ref())
	}
	return nil
}

func (s *Store) currentVersion(ref models.Ref) int64 {
	cur, ok := s.reg.Get(ref)
	if !ok {
		return 0
	}
	return cur.GetVersion()
}

// SaveCatalog upserts a reference entry.
func (s *Store) SaveCatalog(_ context.Context, entry models.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.PutCatalog(entry)
	return nil
}

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

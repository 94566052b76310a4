// Package production runs stock operations end to end: it reads a registry
// snapshot, lets the stock engine plan the change and commits the result as
// one version-checked batch, retrying from a fresh snapshot on conflict.
package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/metrics"
	"github.com/mamadbah2/croptrace/internal/repository"
	"github.com/mamadbah2/croptrace/internal/service/costing"
	"github.com/mamadbah2/croptrace/internal/service/stock"
)

// Options tunes commit behaviour.
type Options struct {
	CommitTimeout time.Duration
	MaxAttempts   int
}

// Service is the transactional entry point for every registry write.
type Service struct {
	store   repository.Store
	engine  *stock.Engine
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options

	now   func() time.Time
	newID func() string
}

// NewService wires a new production service.
func NewService(store repository.Store, engine *stock.Engine, m *metrics.Metrics, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = stock.NewEngine(stock.DefaultPolicy())
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 5 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	return &Service{
		store:   store,
		engine:  engine,
		metrics: m,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Snapshot returns the current registry.
func (s *Service) Snapshot(ctx context.Context) (*models.Registry, error) {
	reg, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, stock.Persistence(fmt.Errorf("load snapshot: %w", err), false)
	}
	return reg, nil
}

// Record looks up one record.
func (s *Service) Record(ctx context.Context, ref models.Ref) (models.Record, error) {
	reg, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := reg.Get(ref)
	if !ok {
		return nil, stock.RecordNotFound(ref)
	}
	return rec, nil
}

// Save creates or edits a record. A record without id is a create and gets a
// fresh id; otherwise the stored record with that id, if any, is replaced.
func (s *Service) Save(ctx context.Context, candidate models.Record) (*stock.Result, error) {
	candidate = candidate.Clone()
	if candidate.RecordID() == "" {
		candidate.SetID(s.newID())
	}
	ref := candidate.Ref()

	var result *stock.Result
	err := s.run(ctx, "save", ref, func(snap *models.Registry) (repository.Batch, error) {
		old, _ := snap.Get(ref)
		res, err := s.engine.Save(old, candidate, snap)
		if err != nil {
			return repository.Batch{}, err
		}
		now := s.now().UTC()
		res.Record.Touch(now)
		batch := repository.Batch{Puts: []models.Record{res.Record}}
		written := map[models.Ref]bool{ref: true}
		for _, change := range res.WriteSet {
			change.Lot.Touch(now)
			batch.Puts = append(batch.Puts, change.Lot)
			written[change.Lot.Ref()] = true
		}
		for _, rec := range res.Reads {
			if !written[rec.Ref()] {
				batch.Checks = append(batch.Checks, rec)
			}
		}
		result = res
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a record and returns whatever stock it held to its sources.
func (s *Service) Delete(ctx context.Context, ref models.Ref) (*stock.Result, error) {
	var result *stock.Result
	err := s.run(ctx, "delete", ref, func(snap *models.Registry) (repository.Batch, error) {
		rec, ok := snap.Get(ref)
		if !ok {
			return repository.Batch{}, stock.RecordNotFound(ref)
		}
		res, err := s.engine.Delete(rec, snap)
		if err != nil {
			return repository.Batch{}, err
		}
		now := s.now().UTC()
		batch := repository.Batch{Deletes: []models.Record{rec}}
		for _, change := range res.WriteSet {
			change.Lot.Touch(now)
			batch.Puts = append(batch.Puts, change.Lot)
		}
		result = res
		return batch, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Recost recomputes every derived cost and stores the records that changed.
// It returns how many records were rewritten.
func (s *Service) Recost(ctx context.Context) (int, error) {
	var count int
	err := s.run(ctx, "recost", models.Ref{}, func(snap *models.Registry) (repository.Batch, error) {
		changed := costing.Cascade(snap)
		now := s.now().UTC()
		for _, rec := range changed {
			rec.Touch(now)
		}
		count = len(changed)
		return repository.Batch{Puts: changed}, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SaveCatalog upserts reference data, assigning an id when missing.
func (s *Service) SaveCatalog(ctx context.Context, entry models.CatalogEntry) (models.CatalogEntry, error) {
	_, id := entry.CatalogKey()
	if id == "" {
		id = s.newID()
	}
	entry = models.WithID(entry, id)

	cctx, cancel := context.WithTimeout(ctx, s.opts.CommitTimeout)
	defer cancel()
	if err := s.store.SaveCatalog(cctx, entry); err != nil {
		s.logger.Error("catalog write failed", zap.String("id", id), zap.Error(err))
		return nil, stock.Persistence(err, isUnknown(err))
	}
	return entry, nil
}

type planFunc func(snap *models.Registry) (repository.Batch, error)

func (s *Service) run(ctx context.Context, op string, ref models.Ref, plan planFunc) error {
	start := time.Now()
	kind := string(ref.Kind)

	for attempt := 1; ; attempt++ {
		snap, err := s.store.Snapshot(ctx)
		if err != nil {
			s.observe(op, kind, stock.KindPersistenceFailure, start)
			s.logger.Error("snapshot failed", zap.String("operation", op), zap.Error(err))
			return stock.Persistence(fmt.Errorf("load snapshot: %w", err), false)
		}

		batch, err := plan(snap)
		if err != nil {
			outcome := stock.KindInvalidRecord
			if se, ok := stock.AsError(err); ok {
				outcome = se.Kind
			}
			s.observe(op, kind, outcome, start)
			s.logger.Warn("stock operation rejected",
				zap.String("operation", op),
				zap.String("record", ref.String()),
				zap.Error(err))
			return err
		}

		err = s.commit(ctx, batch)
		if err == nil {
			s.observe(op, kind, "ok", start)
			for _, rec := range batch.Puts {
				if rec.Ref() != ref {
					s.metrics.RecordLotWritten(string(rec.Ref().Kind))
				}
			}
			s.logger.Debug("stock operation committed",
				zap.String("operation", op),
				zap.String("record", ref.String()),
				zap.Int("puts", len(batch.Puts)),
				zap.Int("deletes", len(batch.Deletes)),
				zap.Int("checks", len(batch.Checks)),
				zap.Int("attempt", attempt))
			return nil
		}

		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.RecordCommitConflict(op)
			if attempt < s.opts.MaxAttempts {
				s.logger.Debug("commit conflict, retrying",
					zap.String("operation", op),
					zap.String("record", ref.String()),
					zap.Int("attempt", attempt))
				continue
			}
			s.observe(op, kind, stock.KindPersistenceFailure, start)
			s.logger.Error("commit kept conflicting",
				zap.String("operation", op),
				zap.String("record", ref.String()),
				zap.Int("attempts", attempt))
			return stock.Persistence(fmt.Errorf("gave up after %d attempts: %w", attempt, err), false)
		}

		unknown := isUnknown(err)
		s.observe(op, kind, stock.KindPersistenceFailure, start)
		s.logger.Error("commit failed",
			zap.String("operation", op),
			zap.String("record", ref.String()),
			zap.Bool("outcome_unknown", unknown),
			zap.Error(err))
		return stock.Persistence(err, unknown)
	}
}

func (s *Service) commit(ctx context.Context, batch repository.Batch) error {
	if batch.Empty() {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.CommitTimeout)
	defer cancel()
	return s.store.Commit(cctx, batch)
}

func (s *Service) observe(op, kind string, outcome stock.ErrorKind, start time.Time) {
	s.metrics.RecordStockOperation(op, kind, string(outcome), time.Since(start))
}

func isUnknown(err error) bool {
	return errors.Is(err, repository.ErrOutcomeUnknown) || errors.Is(err, context.DeadlineExceeded)
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/repository"
)

var recordCollections = map[models.Kind]string{
	models.KindIngredient:        "ingredient_lots",
	models.KindPackaging:         "packaging_lots",
	models.KindAgriculturalInput: "agricultural_input_lots",
	models.KindCultivation:       "cultivation_projects",
	models.KindHarvest:           "harvest_lots",
	models.KindTransformation:    "transformation_steps",
	models.KindManufacturing:     "manufacturing_lots",
	models.KindSale:              "sales",
}

var catalogCollections = map[models.CatalogKind]string{
	models.CatalogWorkers:    "workers",
	models.CatalogProducts:   "products",
	models.CatalogThresholds: "thresholds",
	models.CatalogRecipes:    "recipes",
}

// MongoDBRepository implements repository.Store on MongoDB. Commits run in a
// multi-document transaction, so the deployment must be a replica set.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository connects and pings the server.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(NewRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// Snapshot loads every collection concurrently.
func (r *MongoDBRepository) Snapshot(ctx context.Context) (*models.Registry, error) {
	var mu sync.Mutex
	reg := models.NewRegistry()
	g, gctx := errgroup.WithContext(ctx)

	for kind, name := range recordCollections {
		kind, name := kind, name
		g.Go(func() error {
			recs, err := r.loadRecords(gctx, kind, name)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, rec := range recs {
				reg.Put(rec)
			}
			return nil
		})
	}
	for kind, name := range catalogCollections {
		kind, name := kind, name
		g.Go(func() error {
			entries, err := r.loadCatalog(gctx, kind, name)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, e := range entries {
				reg.PutCatalog(e)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *MongoDBRepository) loadRecords(ctx context.Context, kind models.Kind, name string) ([]models.Record, error) {
	cursor, err := r.db.Collection(name).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	var out []models.Record
	for cursor.Next(ctx) {
		rec, err := models.NewRecord(kind)
		if err != nil {
			return nil, err
		}
		if err := cursor.Decode(rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		out = append(out, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	return out, nil
}

func (r *MongoDBRepository) loadCatalog(ctx context.Context, kind models.CatalogKind, name string) ([]models.CatalogEntry, error) {
	cursor, err := r.db.Collection(name).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	var out []models.CatalogEntry
	for cursor.Next(ctx) {
		entry, _ := models.NewCatalogEntry(kind)
		if err := cursor.Decode(entry); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		out = append(out, entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	return out, nil
}

// Commit applies the batch inside a transaction. Each write matches on the
// version the record was read at.
func (r *MongoDBRepository) Commit(ctx context.Context, batch repository.Batch) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, rec := range batch.Puts {
			if err := r.put(sc, rec); err != nil {
				return nil, err
			}
		}
		for _, rec := range batch.Deletes {
			if err := r.delete(sc, rec); err != nil {
				return nil, err
			}
		}
		for _, rec := range batch.Checks {
			if err := r.check(sc, rec); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrVersionConflict) {
		return repository.ErrVersionConflict
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) || errors.Is(err, context.DeadlineExceeded) {
		r.logger.Warn("commit outcome unknown", zap.Error(err))
		return fmt.Errorf("%w: %v", repository.ErrOutcomeUnknown, err)
	}
	return fmt.Errorf("commit transaction: %w", err)
}

func (r *MongoDBRepository) put(ctx context.Context, rec models.Record) error {
	ref := rec.Ref()
	coll := r.db.Collection(recordCollections[ref.Kind])
	stored := repository.Stamp(rec)

	if rec.GetVersion() == 0 {
		if _, err := coll.InsertOne(ctx, stored); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return repository.ErrVersionConflict
			}
			return fmt.Errorf("insert %s: %w", ref, err)
		}
		return nil
	}

	filter := bson.M{"_id": ref.ID, "version": rec.GetVersion()}
	res, err := coll.ReplaceOne(ctx, filter, stored)
	if err != nil {
		return fmt.Errorf("replace %s: %w", ref, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}

func (r *MongoDBRepository) delete(ctx context.Context, rec models.Record) error {
	ref := rec.Ref()
	coll := r.db.Collection(recordCollections[ref.Kind])
	res, err := coll.DeleteOne(ctx, bson.M{"_id": ref.ID, "version": rec.GetVersion()})
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}

// check bumps the version of a record the batch only read. Reads inside a
// transaction do not conflict with concurrent writers; this update does.
func (r *MongoDBRepository) check(ctx context.Context, rec models.Record) error {
	ref := rec.Ref()
	coll := r.db.Collection(recordCollections[ref.Kind])
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": ref.ID, "version": rec.GetVersion()},
		bson.M{"$inc": bson.M{"version": 1}})
	if err != nil {
		return fmt.Errorf("check %s: %w", ref, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}

// SaveCatalog upserts a reference entry.
func (r *MongoDBRepository) SaveCatalog(ctx context.Context, entry models.CatalogEntry) error {
	kind, id := entry.CatalogKey()
	name, ok := catalogCollections[kind]
	if !ok {
		return fmt.Errorf("unknown catalog kind %q", kind)
	}
	_, err := r.db.Collection(name).ReplaceOne(ctx,
		bson.M{"_id": id},
		models.WithID(entry, id),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", kind, id, err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// Package mongostore implements store.Store on MongoDB. Documents use
// sequential int64 ids drawn from a counters collection so that API ids stay
// numeric.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

const (
	colCounters    = "counters"
	colUsers       = "users"
	colIssues      = "issues"
	colOTPs        = "otps"
	colClusters    = "geo_clusters"
	colRuns        = "clustering_runs"
	colAssignments = "issue_cluster_assignments"
)

type Store struct {
	db *mongo.Database
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the indexes the queries rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "mobile_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "is_active", Value: 1}}},
		},
		colIssues: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "assigned_parshad_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "issue_type", Value: 1}}},
		},
		colClusters: {
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "parshad_id", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return models.EnsureOTPIndexes(s.db.Collection(colOTPs))
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// nextID atomically increments and returns the named sequence.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return counter.Seq, nil
}

func (s *Store) insert(ctx context.Context, collection string, doc interface{}) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, collection string, filter bson.M, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find in %s: %w", collection, err)
	}
	return nil
}

func (s *Store) replace(ctx context.Context, collection string, id int64, doc interface{}) error {
	res, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("replace in %s: %w", collection, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func findOptions(opts store.ListOptions) *options.FindOptions {
	fo := options.Find()
	dir := 1
	if opts.Desc {
		dir = -1
	}
	sort := bson.D{{Key: "_id", Value: dir}}
	if opts.SortBy != "" && opts.SortBy != "_id" {
		sort = append(bson.D{{Key: opts.SortBy, Value: dir}}, sort...)
	}
	fo.SetSort(sort)
	if opts.Offset > 0 {
		fo.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	return fo
}

func contains(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// list runs a filtered, paged find together with the matching count.
func list[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts store.ListOptions) ([]T, int64, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	cursor, err := coll.Find(ctx, filter, findOptions(opts))
	if err != nil {
		return nil, 0, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return items, total, nil
}

package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

// ReplaceClusters runs in a transaction when the deployment supports one
// (replica set); a standalone server falls back to sequential writes.
func (s *Store) ReplaceClusters(ctx context.Context, clusters []models.GeoCluster) error {
	apply := func(ctx context.Context) error {
		if _, err := s.db.Collection(colClusters).UpdateMany(ctx, bson.M{"is_active": true}, bson.M{"$set": bson.M{"is_active": false}}); err != nil {
			return fmt.Errorf("deactivate clusters: %w", err)
		}
		if len(clusters) == 0 {
			return nil
		}
		docs := make([]interface{}, 0, len(clusters))
		for i := range clusters {
			id, err := s.nextID(ctx, colClusters)
			if err != nil {
				return err
			}
			clusters[i].ID = id
			docs = append(docs, clusters[i])
		}
		if _, err := s.db.Collection(colClusters).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert clusters: %w", err)
		}
		return nil
	}

	session, err := s.db.Client().StartSession()
	if err != nil {
		return apply(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, apply(sc)
	})
	if err != nil && isTransactionUnsupported(err) {
		return apply(ctx)
	}
	return err
}

func isTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	// IllegalOperation: transactions need a replica set member or mongos.
	return errors.As(err, &cmdErr) && cmdErr.Code == 20
}

func (s *Store) ListClusters(ctx context.Context, f store.ClusterFilter) ([]models.GeoCluster, error) {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["is_active"] = true
	}
	if f.MappedOnly {
		filter["parshad_id"] = bson.M{"$ne": nil}
	}
	clusters, _, err := list[models.GeoCluster](ctx, s.db.Collection(colClusters), filter, store.ListOptions{})
	return clusters, err
}

func (s *Store) GetCluster(ctx context.Context, id int64) (*models.GeoCluster, error) {
	var c models.GeoCluster
	if err := s.findOne(ctx, colClusters, bson.M{"_id": id}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateCluster(ctx context.Context, c *models.GeoCluster) error {
	return s.replace(ctx, colClusters, c.ID, c)
}

func (s *Store) CreateClusteringRun(ctx context.Context, r *models.ClusteringRun) error {
	id, err := s.nextID(ctx, colRuns)
	if err != nil {
		return err
	}
	r.ID = id
	return s.insert(ctx, colRuns, r)
}

func (s *Store) CreateClusterAssignment(ctx context.Context, a *models.IssueClusterAssignment) error {
	id, err := s.nextID(ctx, colAssignments)
	if err != nil {
		return err
	}
	a.ID = id
	return s.insert(ctx, colAssignments, a)
}

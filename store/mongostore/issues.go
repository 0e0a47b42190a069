package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

func issueFilter(f store.IssueFilter) bson.M {
	filter := bson.M{}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	switch {
	case f.AssignedParshadID != nil:
		filter["assigned_parshad_id"] = *f.AssignedParshadID
	case f.Assigned != nil && *f.Assigned:
		filter["assigned_parshad_id"] = bson.M{"$ne": nil}
	case f.Assigned != nil:
		filter["assigned_parshad_id"] = nil
	}
	if f.IssueType != "" {
		filter["issue_type"] = f.IssueType
	}
	if len(f.Statuses) == 1 {
		filter["status"] = f.Statuses[0]
	} else if len(f.Statuses) > 1 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.Search != "" {
		filter["description"] = contains(f.Search)
	}
	if !f.CreatedFrom.IsZero() {
		filter["created_at"] = bson.M{"$gte": f.CreatedFrom}
	}
	return filter
}

func (s *Store) CreateIssue(ctx context.Context, i *models.Issue) error {
	id, err := s.nextID(ctx, colIssues)
	if err != nil {
		return err
	}
	i.ID = id
	if i.Photos == nil {
		i.Photos = []models.IssuePhoto{}
	}
	for p := range i.Photos {
		i.Photos[p].IssueID = id
	}
	return s.insert(ctx, colIssues, i)
}

func (s *Store) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	var i models.Issue
	if err := s.findOne(ctx, colIssues, bson.M{"_id": id}, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *Store) UpdateIssue(ctx context.Context, i *models.Issue) error {
	return s.replace(ctx, colIssues, i.ID, i)
}

func (s *Store) ListIssues(ctx context.Context, f store.IssueFilter, opts store.ListOptions) ([]models.Issue, int64, error) {
	return list[models.Issue](ctx, s.db.Collection(colIssues), issueFilter(f), opts)
}

func (s *Store) CountIssues(ctx context.Context, f store.IssueFilter) (int64, error) {
	return s.db.Collection(colIssues).CountDocuments(ctx, issueFilter(f))
}

func (s *Store) CountAssignedParshads(ctx context.Context, f store.IssueFilter) (int64, error) {
	filter := issueFilter(f)
	if _, ok := filter["assigned_parshad_id"]; !ok {
		filter["assigned_parshad_id"] = bson.M{"$ne": nil}
	}
	ids, err := s.db.Collection(colIssues).Distinct(ctx, "assigned_parshad_id", filter)
	if err != nil {
		return 0, fmt.Errorf("distinct parshads: %w", err)
	}
	return int64(len(ids)), nil
}

func (s *Store) NextPhotoID(ctx context.Context) (int64, error) {
	return s.nextID(ctx, "issue_photos")
}

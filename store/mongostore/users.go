package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

func userFilter(f store.UserFilter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	}
	var or []bson.M
	if f.NameOrVillage != "" {
		or = append(or, bson.M{"name": contains(f.NameOrVillage)}, bson.M{"village_name": contains(f.NameOrVillage)})
	}
	if f.NameOrMobile != "" {
		or = append(or, bson.M{"name": contains(f.NameOrMobile)}, bson.M{"mobile_number": contains(f.NameOrMobile)})
	}
	if len(or) > 0 {
		filter["$or"] = or
	}
	return filter
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	id, err := s.nextID(ctx, colUsers)
	if err != nil {
		return err
	}
	u.ID = id
	return s.insert(ctx, colUsers, u)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.findOne(ctx, colUsers, bson.M{"_id": id}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByMobile(ctx context.Context, mobile string) (*models.User, error) {
	var u models.User
	if err := s.findOne(ctx, colUsers, bson.M{"mobile_number": mobile}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	return s.replace(ctx, colUsers, u.ID, u)
}

func (s *Store) ListUsers(ctx context.Context, f store.UserFilter, opts store.ListOptions) ([]models.User, int64, error) {
	return list[models.User](ctx, s.db.Collection(colUsers), userFilter(f), opts)
}

func (s *Store) CountUsers(ctx context.Context, f store.UserFilter) (int64, error) {
	return s.db.Collection(colUsers).CountDocuments(ctx, userFilter(f))
}

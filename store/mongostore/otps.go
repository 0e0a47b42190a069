package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

func (s *Store) CreateOTP(ctx context.Context, o *models.OTP) error {
	id, err := s.nextID(ctx, colOTPs)
	if err != nil {
		return err
	}
	o.ID = id
	return s.insert(ctx, colOTPs, o)
}

func (s *Store) LatestUnusedOTP(ctx context.Context, mobile string) (*models.OTP, error) {
	var o models.OTP
	err := s.db.Collection(colOTPs).FindOne(ctx,
		bson.M{"mobile_number": mobile, "is_used": false},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find otp: %w", err)
	}
	return &o, nil
}

func (s *Store) ReserveOTPAttempt(ctx context.Context, id int64, max int) (*models.OTP, error) {
	var o models.OTP
	err := s.db.Collection(colOTPs).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_used": false, "attempt_count": bson.M{"$lt": max}},
		bson.M{"$inc": bson.M{"attempt_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reserve otp attempt: %w", err)
	}
	return &o, nil
}

func (s *Store) ConsumeOTP(ctx context.Context, id int64, usedAt time.Time) error {
	res, err := s.db.Collection(colOTPs).UpdateOne(ctx,
		bson.M{"_id": id, "is_used": false},
		bson.M{"$set": bson.M{"is_used": true, "used_at": usedAt}},
	)
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// OTP is a one time code sent to a mobile number. Only the bcrypt hash of
// the code is stored.
type OTP struct {
	ID           int64      `bson:"_id" json:"id"`
	MobileNumber string     `bson:"mobile_number" json:"mobile_number"`
	CodeHash     string     `bson:"code_hash" json:"-"`
	IsUsed       bool       `bson:"is_used" json:"is_used"`
	AttemptCount int        `bson:"attempt_count" json:"attempt_count"`
	ExpiresAt    time.Time  `bson:"expires_at" json:"expires_at"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UsedAt       *time.Time `bson:"used_at,omitempty" json:"used_at,omitempty"`
}

func (o *OTP) HashCode(code string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.CodeHash = string(hashed)
	return nil
}

func (o *OTP) CompareCode(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(o.CodeHash), []byte(candidate))
	return err == nil
}

func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// EnsureOTPIndexes creates the lookup index on (mobile_number, created_at)
// and a TTL index that drops codes a day after they expire.
func EnsureOTPIndexes(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "mobile_number", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32((24 * time.Hour).Seconds())),
		},
	})
	return err
}

package models

import "time"

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleParshad   UserRole = "parshad"
	RolePWDWorker UserRole = "pwd_worker"
)

func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleParshad || r == RolePWDWorker
}

type User struct {
	ID           int64     `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	MobileNumber string    `bson:"mobile_number" json:"mobile_number"`
	Role         UserRole  `bson:"role" json:"role"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
	IsVerified   bool      `bson:"is_verified" json:"is_verified"`
	VillageName  *string   `bson:"village_name,omitempty" json:"village_name"`
	Latitude     *float64  `bson:"latitude,omitempty" json:"latitude"`
	Longitude    *float64  `bson:"longitude,omitempty" json:"longitude"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

func (u *User) IsParshad() bool   { return u.Role == RoleParshad }
func (u *User) IsPWDWorker() bool { return u.Role == RolePWDWorker }

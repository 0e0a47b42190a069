// Package store defines the persistence contract used by the HTTP layer.
// mongostore is the production implementation; memstore backs tests and
// local development.
package store

import (
	"context"
	"errors"
	"time"

	"jansarthi-be/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// ListOptions controls ordering and paging. A zero Limit means no limit.
type ListOptions struct {
	Offset int
	Limit  int
	SortBy string
	Desc   bool
}

// IssueFilter narrows issue queries. Zero fields do not filter.
type IssueFilter struct {
	UserID            *int64
	AssignedParshadID *int64
	Assigned          *bool
	IssueType         models.IssueType
	Statuses          []models.IssueStatus
	Search            string
	CreatedFrom       time.Time
}

type UserFilter struct {
	Role     models.UserRole
	IsActive *bool
	// NameOrVillage and NameOrMobile are case-insensitive substring matches.
	NameOrVillage string
	NameOrMobile  string
}

type ClusterFilter struct {
	ActiveOnly bool
	MappedOnly bool
}

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByMobile(ctx context.Context, mobile string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, f UserFilter, opts ListOptions) ([]models.User, int64, error)
	CountUsers(ctx context.Context, f UserFilter) (int64, error)
}

type Issues interface {
	CreateIssue(ctx context.Context, i *models.Issue) error
	GetIssue(ctx context.Context, id int64) (*models.Issue, error)
	UpdateIssue(ctx context.Context, i *models.Issue) error
	ListIssues(ctx context.Context, f IssueFilter, opts ListOptions) ([]models.Issue, int64, error)
	CountIssues(ctx context.Context, f IssueFilter) (int64, error)
	// CountAssignedParshads counts the distinct Parshads holding a matching issue.
	CountAssignedParshads(ctx context.Context, f IssueFilter) (int64, error)
	NextPhotoID(ctx context.Context) (int64, error)
}

type OTPs interface {
	CreateOTP(ctx context.Context, o *models.OTP) error
	// LatestUnusedOTP returns the newest code for the number that has not
	// been consumed, expired or not.
	LatestUnusedOTP(ctx context.Context, mobile string) (*models.OTP, error)
	// ReserveOTPAttempt atomically counts one verification attempt against
	// an unused code with fewer than max attempts and returns the updated
	// record. ErrNotFound means the code is used, missing or exhausted.
	ReserveOTPAttempt(ctx context.Context, id int64, max int) (*models.OTP, error)
	// ConsumeOTP marks an unused code used. ErrNotFound means it was
	// already consumed.
	ConsumeOTP(ctx context.Context, id int64, usedAt time.Time) error
}

type Clusters interface {
	// ReplaceClusters deactivates every existing cluster and inserts the
	// given ones, assigning their ids.
	ReplaceClusters(ctx context.Context, clusters []models.GeoCluster) error
	ListClusters(ctx context.Context, f ClusterFilter) ([]models.GeoCluster, error)
	GetCluster(ctx context.Context, id int64) (*models.GeoCluster, error)
	UpdateCluster(ctx context.Context, c *models.GeoCluster) error
	CreateClusteringRun(ctx context.Context, r *models.ClusteringRun) error
	CreateClusterAssignment(ctx context.Context, a *models.IssueClusterAssignment) error
}

type Store interface {
	Users
	Issues
	OTPs
	Clusters
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

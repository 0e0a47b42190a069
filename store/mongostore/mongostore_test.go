package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi-be/config"
	"jansarthi-be/models"
	"jansarthi-be/store"
)

// newTestStore connects to MONGODB_TEST_URI and returns a store on a
// throwaway database that is dropped when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	db, err := config.ConnectDB(ctx, uri, fmt.Sprintf("jansarthi_test_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = db.Client().Disconnect(ctx)
	})

	s := New(db)
	require.NoError(t, s.EnsureIndexes(ctx))
	return s
}

func TestMongoStore_Users(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Name: "Asha", MobileNumber: "+919876543210", Role: models.RoleUser, IsActive: true}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, int64(1), u.ID)

	err := s.CreateUser(ctx, &models.User{Name: "Dup", MobileNumber: "+919876543210"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	got, err := s.GetUserByMobile(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got.IsVerified = true
	require.NoError(t, s.UpdateUser(ctx, got))
	again, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, again.IsVerified)

	_, err = s.GetUser(ctx, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMongoStore_Issues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 3; i++ {
		issue := &models.Issue{
			IssueType:   models.Water,
			Description: "leaking pipe near school",
			Status:      models.StatusReported,
			UserID:      1,
			CreatedAt:   now.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   now,
		}
		if i == 0 {
			issue.AssignTo(7, nil)
		}
		require.NoError(t, s.CreateIssue(ctx, issue))
	}

	items, total, err := s.ListIssues(ctx, store.IssueFilter{Search: "PIPE"}, store.ListOptions{SortBy: "created_at", Desc: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ID)

	n, err := s.CountIssues(ctx, store.IssueFilter{Assigned: func() *bool { b := false; return &b }()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.CountAssignedParshads(ctx, store.IssueFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMongoStore_Clusters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []models.GeoCluster{{ClusterLabel: 0, IsActive: true}}
	require.NoError(t, s.ReplaceClusters(ctx, first))
	second := []models.GeoCluster{{ClusterLabel: 0, IsActive: true}}
	require.NoError(t, s.ReplaceClusters(ctx, second))

	active, err := s.ListClusters(ctx, store.ClusterFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second[0].ID, active[0].ID)
}

package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

func ptr[T any](v T) *T { return &v }

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := &models.User{Name: "Asha", MobileNumber: "+919876543210", Role: models.RoleUser, IsActive: true}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, int64(1), u.ID)

	dup := &models.User{Name: "Other", MobileNumber: "+919876543210"}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), store.ErrDuplicate)

	got, err := s.GetUserByMobile(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)

	_, err = s.GetUser(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)

	village := "Rajpur"
	require.NoError(t, s.CreateUser(ctx, &models.User{Name: "Ravi", MobileNumber: "+919000000001", Role: models.RoleParshad, IsActive: true, VillageName: &village}))
	require.NoError(t, s.CreateUser(ctx, &models.User{Name: "Bina", MobileNumber: "+919000000002", Role: models.RoleParshad}))

	parshads, total, err := s.ListUsers(ctx, store.UserFilter{Role: models.RoleParshad}, store.ListOptions{SortBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Bina", parshads[0].Name)

	n, err := s.CountUsers(ctx, store.UserFilter{Role: models.RoleParshad, IsActive: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, _, err := s.ListUsers(ctx, store.UserFilter{NameOrVillage: "rajpur"}, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ravi", found[0].Name)

	found, _, err = s.ListUsers(ctx, store.UserFilter{NameOrMobile: "0002"}, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Bina", found[0].Name)
}

func TestIssues_FilterSortPage(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		issue := &models.Issue{
			IssueType:   models.Road,
			Description: "pothole number",
			Status:      models.StatusReported,
			UserID:      1,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if i%2 == 0 {
			issue.AssignTo(9, nil)
		}
		require.NoError(t, s.CreateIssue(ctx, issue))
	}

	items, total, err := s.ListIssues(ctx, store.IssueFilter{UserID: ptr(int64(1))}, store.ListOptions{SortBy: "created_at", Desc: true, Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(4), items[0].ID)
	assert.Equal(t, int64(3), items[1].ID)

	n, err := s.CountIssues(ctx, store.IssueFilter{Assigned: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.CountIssues(ctx, store.IssueFilter{Statuses: []models.IssueStatus{models.StatusAssigned}, CreatedFrom: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.CountAssignedParshads(ctx, store.IssueFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.CountIssues(ctx, store.IssueFilter{Search: "POTHOLE"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	items, _, err = s.ListIssues(ctx, store.IssueFilter{}, store.ListOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, _, err = s.ListIssues(ctx, store.IssueFilter{}, store.ListOptions{Offset: -4, Limit: 2, SortBy: "created_at"})
	require.NoError(t, err)
	require.Len(t, items, 2, "negative offset reads from the start")
	assert.Equal(t, int64(1), items[0].ID)
}

func TestIssues_CopiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New()
	issue := &models.Issue{Photos: []models.IssuePhoto{{ID: 1, Filename: "a.jpg"}}}
	require.NoError(t, s.CreateIssue(ctx, issue))
	assert.Equal(t, issue.ID, issue.Photos[0].IssueID)

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	got.Photos[0].Filename = "changed"

	again, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", again.Photos[0].Filename)
}

func TestOTPs_LatestUnused(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	first := &models.OTP{MobileNumber: "+91", CreatedAt: now.Add(-time.Minute)}
	second := &models.OTP{MobileNumber: "+91", CreatedAt: now}
	require.NoError(t, s.CreateOTP(ctx, first))
	require.NoError(t, s.CreateOTP(ctx, second))

	got, err := s.LatestUnusedOTP(ctx, "+91")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	reserved, err := s.ReserveOTPAttempt(ctx, second.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, reserved.AttemptCount)
	_, err = s.ReserveOTPAttempt(ctx, second.ID, 2)
	require.NoError(t, err)
	_, err = s.ReserveOTPAttempt(ctx, second.ID, 2)
	assert.ErrorIs(t, err, store.ErrNotFound, "attempts exhausted")

	require.NoError(t, s.ConsumeOTP(ctx, second.ID, now))
	assert.ErrorIs(t, s.ConsumeOTP(ctx, second.ID, now), store.ErrNotFound)
	_, err = s.ReserveOTPAttempt(ctx, second.ID, 5)
	assert.ErrorIs(t, err, store.ErrNotFound, "used codes take no attempts")

	got, err = s.LatestUnusedOTP(ctx, "+91")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.LatestUnusedOTP(ctx, "+1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClusters_Replace(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.ReplaceClusters(ctx, []models.GeoCluster{{ClusterLabel: 0, IsActive: true}}))
	fresh := []models.GeoCluster{{ClusterLabel: 0, IsActive: true}, {ClusterLabel: 1, IsActive: true}}
	require.NoError(t, s.ReplaceClusters(ctx, fresh))
	assert.Equal(t, int64(2), fresh[0].ID)

	active, err := s.ListClusters(ctx, store.ClusterFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := s.ListClusters(ctx, store.ClusterFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fresh[0].ParshadID = ptr(int64(5))
	require.NoError(t, s.UpdateCluster(ctx, &fresh[0]))
	mapped, err := s.ListClusters(ctx, store.ClusterFilter{ActiveOnly: true, MappedOnly: true})
	require.NoError(t, err)
	require.Len(t, mapped, 1)
	assert.Equal(t, fresh[0].ID, mapped[0].ID)
}

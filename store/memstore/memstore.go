// Package memstore is an in-memory store.Store. It is safe for concurrent
// use and keeps no state across restarts.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

type Store struct {
	mu          sync.RWMutex
	seq         map[string]int64
	users       map[int64]models.User
	issues      map[int64]models.Issue
	otps        map[int64]models.OTP
	clusters    map[int64]models.GeoCluster
	runs        []models.ClusteringRun
	assignments []models.IssueClusterAssignment
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		seq:      make(map[string]int64),
		users:    make(map[int64]models.User),
		issues:   make(map[int64]models.Issue),
		otps:     make(map[int64]models.OTP),
		clusters: make(map[int64]models.GeoCluster),
	}
}

func (s *Store) next(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func page[T any](items []T, opts store.ListOptions) []T {
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Offset >= len(items) {
		return []T{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// Users

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.MobileNumber == u.MobileNumber {
			return store.ErrDuplicate
		}
	}
	u.ID = s.next("users")
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByMobile(_ context.Context, mobile string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.MobileNumber == mobile {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	s.users[u.ID] = *u
	return nil
}

func matchUser(u *models.User, f store.UserFilter) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.IsActive != nil && u.IsActive != *f.IsActive {
		return false
	}
	if f.NameOrVillage != "" {
		village := ""
		if u.VillageName != nil {
			village = *u.VillageName
		}
		if !containsFold(u.Name, f.NameOrVillage) && !containsFold(village, f.NameOrVillage) {
			return false
		}
	}
	if f.NameOrMobile != "" && !containsFold(u.Name, f.NameOrMobile) && !containsFold(u.MobileNumber, f.NameOrMobile) {
		return false
	}
	return true
}

func (s *Store) filterUsers(f store.UserFilter) []models.User {
	var out []models.User
	for _, u := range s.users {
		if matchUser(&u, f) {
			out = append(out, u)
		}
	}
	return out
}

func (s *Store) ListUsers(_ context.Context, f store.UserFilter, opts store.ListOptions) ([]models.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := s.filterUsers(f)
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		var less bool
		switch opts.SortBy {
		case "name":
			if a.Name == b.Name {
				less = a.ID < b.ID
			} else {
				less = a.Name < b.Name
			}
		case "created_at":
			less = a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID < b.ID)
		default:
			less = a.ID < b.ID
		}
		if opts.Desc {
			return !less
		}
		return less
	})
	return page(users, opts), int64(len(users)), nil
}

func (s *Store) CountUsers(_ context.Context, f store.UserFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterUsers(f))), nil
}

// Issues

func (s *Store) CreateIssue(_ context.Context, i *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.next("issues")
	for p := range i.Photos {
		i.Photos[p].IssueID = i.ID
	}
	s.issues[i.ID] = cloneIssue(*i)
	return nil
}

func cloneIssue(i models.Issue) models.Issue {
	i.Photos = append([]models.IssuePhoto(nil), i.Photos...)
	return i
}

func (s *Store) GetIssue(_ context.Context, id int64) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.issues[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	i = cloneIssue(i)
	return &i, nil
}

func (s *Store) UpdateIssue(_ context.Context, i *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[i.ID]; !ok {
		return store.ErrNotFound
	}
	s.issues[i.ID] = cloneIssue(*i)
	return nil
}

func matchIssue(i *models.Issue, f store.IssueFilter) bool {
	if f.UserID != nil && i.UserID != *f.UserID {
		return false
	}
	if f.AssignedParshadID != nil && (i.AssignedParshadID == nil || *i.AssignedParshadID != *f.AssignedParshadID) {
		return false
	}
	if f.Assigned != nil && (i.AssignedParshadID != nil) != *f.Assigned {
		return false
	}
	if f.IssueType != "" && i.IssueType != f.IssueType {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if i.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" && !containsFold(i.Description, f.Search) {
		return false
	}
	if !f.CreatedFrom.IsZero() && i.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	return true
}

func (s *Store) filterIssues(f store.IssueFilter) []models.Issue {
	var out []models.Issue
	for _, i := range s.issues {
		if matchIssue(&i, f) {
			out = append(out, cloneIssue(i))
		}
	}
	return out
}

func (s *Store) ListIssues(_ context.Context, f store.IssueFilter, opts store.ListOptions) ([]models.Issue, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issues := s.filterIssues(f)
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		var less bool
		switch opts.SortBy {
		case "updated_at":
			less = a.UpdatedAt.Before(b.UpdatedAt) || (a.UpdatedAt.Equal(b.UpdatedAt) && a.ID < b.ID)
		case "created_at":
			less = a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID < b.ID)
		default:
			less = a.ID < b.ID
		}
		if opts.Desc {
			return !less
		}
		return less
	})
	return page(issues, opts), int64(len(issues)), nil
}

func (s *Store) CountIssues(_ context.Context, f store.IssueFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterIssues(f))), nil
}

func (s *Store) CountAssignedParshads(_ context.Context, f store.IssueFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[int64]struct{})
	for _, i := range s.filterIssues(f) {
		if i.AssignedParshadID != nil {
			seen[*i.AssignedParshadID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (s *Store) NextPhotoID(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next("issue_photos"), nil
}

// OTPs

func (s *Store) CreateOTP(_ context.Context, o *models.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.next("otps")
	s.otps[o.ID] = *o
	return nil
}

func (s *Store) LatestUnusedOTP(_ context.Context, mobile string) (*models.OTP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.OTP
	for _, o := range s.otps {
		if o.MobileNumber != mobile || o.IsUsed {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) ||
			(o.CreatedAt.Equal(latest.CreatedAt) && o.ID > latest.ID) {
			o := o
			latest = &o
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (s *Store) ReserveOTPAttempt(_ context.Context, id int64, max int) (*models.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[id]
	if !ok || o.IsUsed || o.AttemptCount >= max {
		return nil, store.ErrNotFound
	}
	o.AttemptCount++
	s.otps[id] = o
	return &o, nil
}

func (s *Store) ConsumeOTP(_ context.Context, id int64, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[id]
	if !ok || o.IsUsed {
		return store.ErrNotFound
	}
	o.IsUsed = true
	o.UsedAt = &usedAt
	s.otps[id] = o
	return nil
}

// Clusters

func (s *Store) ReplaceClusters(_ context.Context, clusters []models.GeoCluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clusters {
		c.IsActive = false
		s.clusters[id] = c
	}
	for i := range clusters {
		clusters[i].ID = s.next("geo_clusters")
		s.clusters[clusters[i].ID] = clusters[i]
	}
	return nil
}

func (s *Store) ListClusters(_ context.Context, f store.ClusterFilter) ([]models.GeoCluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.GeoCluster{}
	for _, c := range s.clusters {
		if f.ActiveOnly && !c.IsActive {
			continue
		}
		if f.MappedOnly && c.ParshadID == nil {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCluster(_ context.Context, id int64) (*models.GeoCluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clusters[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCluster(_ context.Context, c *models.GeoCluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clusters[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.clusters[c.ID] = *c
	return nil
}

func (s *Store) CreateClusteringRun(_ context.Context, r *models.ClusteringRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.next("clustering_runs")
	s.runs = append(s.runs, *r)
	return nil
}

// ClusteringRuns returns every recorded run, oldest first.
func (s *Store) ClusteringRuns() []models.ClusteringRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ClusteringRun(nil), s.runs...)
}

func (s *Store) CreateClusterAssignment(_ context.Context, a *models.IssueClusterAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.next("issue_cluster_assignments")
	s.assignments = append(s.assignments, *a)
	return nil
}

// Assignments returns every recorded cluster assignment, oldest first.
func (s *Store) Assignments() []models.IssueClusterAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.IssueClusterAssignment(nil), s.assignments...)
}

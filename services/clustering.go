package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"jansarthi-be/geo"
	"jansarthi-be/models"
	"jansarthi-be/observability"
	"jansarthi-be/store"
)

// DefaultAssignRadius is how far from a centroid an issue may lie and still
// be routed to that cluster's Parshad.
const DefaultAssignRadius = 5000.0

var (
	ErrAlgorithmUnsupported = errors.New("clustering algorithm not supported")
	ErrNoCluster            = errors.New("no suitable cluster")
	ErrClusterUnmapped      = errors.New("cluster has no parshad")
	ErrNotParshad           = errors.New("user is not a parshad")
)

type ClusterService struct {
	Store     store.Store
	Metrics   *observability.Metrics
	MaxRadius float64
	Now       func() time.Time
}

func (s *ClusterService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *ClusterService) radius() float64 {
	if s.MaxRadius > 0 {
		return s.MaxRadius
	}
	return DefaultAssignRadius
}

// RunResult summarises one clustering pass.
type RunResult struct {
	Clusters    int
	Noise       int
	TotalPoints int
}

// Run clusters every reported issue and replaces the active cluster set.
// With fewer issues than minClusterSize nothing is changed.
func (s *ClusterService) Run(ctx context.Context, algorithm models.ClusteringAlgorithm, minClusterSize int, epsMeters float64) (RunResult, error) {
	if algorithm != models.AlgorithmDBSCAN {
		return RunResult{}, fmt.Errorf("%w: %s", ErrAlgorithmUnsupported, algorithm)
	}
	issues, _, err := s.Store.ListIssues(ctx, store.IssueFilter{}, store.ListOptions{})
	if err != nil {
		return RunResult{}, fmt.Errorf("load issues: %w", err)
	}
	res := RunResult{TotalPoints: len(issues)}
	if len(issues) < minClusterSize {
		slog.Info("Not enough issues for clustering", "issues", len(issues), "min_cluster_size", minClusterSize)
		return res, nil
	}

	points := make([]geo.Point, len(issues))
	for i, is := range issues {
		points[i] = geo.Point{Lat: is.Latitude, Lon: is.Longitude}
	}
	labels := geo.DBSCAN(points, epsMeters, minClusterSize)
	groups := geo.Groups(points, labels)
	res.Clusters = len(groups)
	res.Noise = geo.CountNoise(labels)

	now := s.now()
	clusters := make([]models.GeoCluster, len(groups))
	for i, g := range groups {
		name := fmt.Sprintf("Cluster %d", g.Label+1)
		radius := g.RadiusMeters
		clusters[i] = models.GeoCluster{
			ClusterLabel: g.Label,
			CentroidLat:  g.Centroid.Lat,
			CentroidLon:  g.Centroid.Lon,
			ClusterName:  &name,
			IssueCount:   len(g.Members),
			RadiusMeters: &radius,
			IsActive:     true,
			LastUpdated:  now,
			CreatedAt:    now,
		}
	}

	run := &models.ClusteringRun{
		Algorithm:      algorithm,
		MinSamples:     minClusterSize,
		Eps:            epsMeters,
		MinClusterSize: minClusterSize,
		NumClusters:    res.Clusters,
		NumNoisePoints: res.Noise,
		TotalPoints:    res.TotalPoints,
		Status:         models.RunCompleted,
		CreatedAt:      now,
	}
	if err := s.Store.ReplaceClusters(ctx, clusters); err != nil {
		msg := err.Error()
		run.Status = models.RunFailed
		run.ErrorMessage = &msg
		s.logRun(ctx, run)
		return RunResult{}, fmt.Errorf("replace clusters: %w", err)
	}
	s.logRun(ctx, run)
	return res, nil
}

func (s *ClusterService) logRun(ctx context.Context, run *models.ClusteringRun) {
	if err := s.Store.CreateClusteringRun(ctx, run); err != nil {
		slog.Error("Failed to record clustering run", "error", err)
	}
	if s.Metrics != nil {
		s.Metrics.ClusteringRuns.WithLabelValues(string(run.Algorithm), string(run.Status)).Inc()
	}
}

// MapToParshad links a cluster to a Parshad. Empty name or description
// leave the current values.
func (s *ClusterService) MapToParshad(ctx context.Context, clusterID, parshadID int64, name, description *string) (*models.GeoCluster, error) {
	c, err := s.Store.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	p, err := s.Store.GetUser(ctx, parshadID)
	if err != nil {
		return nil, err
	}
	if !p.IsParshad() {
		return nil, ErrNotParshad
	}
	c.ParshadID = &p.ID
	if name != nil && *name != "" {
		c.ClusterName = name
	}
	if description != nil && *description != "" {
		c.AreaDescription = description
	}
	c.LastUpdated = s.now()
	if err := s.Store.UpdateCluster(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// FindNearest returns the closest active mapped cluster within the assign
// radius and its distance in meters.
func (s *ClusterService) FindNearest(ctx context.Context, p geo.Point) (*models.GeoCluster, float64, error) {
	clusters, err := s.Store.ListClusters(ctx, store.ClusterFilter{ActiveOnly: true, MappedOnly: true})
	if err != nil {
		return nil, 0, err
	}
	var best *models.GeoCluster
	bestDist := math.Inf(1)
	for i := range clusters {
		d := geo.DistanceMeters(p, geo.Point{Lat: clusters[i].CentroidLat, Lon: clusters[i].CentroidLon})
		if d < bestDist && d <= s.radius() {
			best, bestDist = &clusters[i], d
		}
	}
	if best == nil {
		return nil, 0, ErrNoCluster
	}
	return best, bestDist, nil
}

// AutoAssign routes the issue to the Parshad of the nearest mapped cluster,
// records the assignment and bumps the cluster's issue count.
func (s *ClusterService) AutoAssign(ctx context.Context, issue *models.Issue) (*models.GeoCluster, float64, error) {
	c, dist, err := s.FindNearest(ctx, geo.Point{Lat: issue.Latitude, Lon: issue.Longitude})
	if err != nil {
		s.countAssign("no_cluster")
		return nil, 0, err
	}
	if c.ParshadID == nil {
		s.countAssign("no_cluster")
		return nil, 0, ErrClusterUnmapped
	}

	now := s.now()
	issue.AssignTo(*c.ParshadID, nil)
	issue.WardName = c.ClusterName
	issue.UpdatedAt = now
	if err := s.Store.UpdateIssue(ctx, issue); err != nil {
		s.countAssign("error")
		return nil, 0, fmt.Errorf("update issue: %w", err)
	}
	if err := s.Store.CreateClusterAssignment(ctx, &models.IssueClusterAssignment{
		IssueID:              issue.ID,
		ClusterID:            c.ID,
		DistanceFromCentroid: dist,
		AssignmentMethod:     models.AssignmentNearestCentroid,
		CreatedAt:            now,
	}); err != nil {
		slog.Error("Failed to record cluster assignment", "issue_id", issue.ID, "error", err)
	}
	c.IssueCount++
	c.LastUpdated = now
	if err := s.Store.UpdateCluster(ctx, c); err != nil {
		slog.Error("Failed to update cluster count", "cluster_id", c.ID, "error", err)
	}
	s.countAssign("assigned")
	return c, dist, nil
}

func (s *ClusterService) countAssign(result string) {
	if s.Metrics != nil {
		s.Metrics.AutoAssignments.WithLabelValues(result).Inc()
	}
}

func (s *ClusterService) Statistics(ctx context.Context) (models.ClusterStatistics, error) {
	clusters, err := s.Store.ListClusters(ctx, store.ClusterFilter{ActiveOnly: true})
	if err != nil {
		return models.ClusterStatistics{}, err
	}
	stats := models.ClusterStatistics{TotalClusters: len(clusters), Clusters: make([]models.ClusterStat, 0, len(clusters))}
	for _, c := range clusters {
		stats.TotalIssuesInClusters += c.IssueCount
		if c.ParshadID != nil {
			stats.MappedClusters++
		}
		stats.Clusters = append(stats.Clusters, models.ClusterStat{
			ID:           c.ID,
			Label:        c.ClusterLabel,
			Name:         c.ClusterName,
			Centroid:     [2]float64{c.CentroidLat, c.CentroidLon},
			RadiusMeters: c.RadiusMeters,
			IssueCount:   c.IssueCount,
			ParshadID:    c.ParshadID,
			IsMapped:     c.ParshadID != nil,
		})
	}
	stats.UnmappedClusters = stats.TotalClusters - stats.MappedClusters
	return stats, nil
}

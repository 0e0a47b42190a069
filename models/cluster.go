package models

import "time"

// GeoCluster is a group of nearby issues found by a clustering run.
// Mapping a cluster to a Parshad lets new issues in its area be routed
// automatically.
type GeoCluster struct {
	ID              int64     `bson:"_id" json:"id"`
	ClusterLabel    int       `bson:"cluster_label" json:"cluster_label"`
	CentroidLat     float64   `bson:"centroid_latitude" json:"centroid_latitude"`
	CentroidLon     float64   `bson:"centroid_longitude" json:"centroid_longitude"`
	ClusterName     *string   `bson:"cluster_name,omitempty" json:"cluster_name"`
	AreaDescription *string   `bson:"area_description,omitempty" json:"area_description"`
	ParshadID       *int64    `bson:"parshad_id,omitempty" json:"parshad_id"`
	IssueCount      int       `bson:"issue_count" json:"issue_count"`
	RadiusMeters    *float64  `bson:"radius_meters,omitempty" json:"radius_meters"`
	IsActive        bool      `bson:"is_active" json:"is_active"`
	LastUpdated     time.Time `bson:"last_updated" json:"last_updated"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

type ClusteringAlgorithm string

const (
	AlgorithmDBSCAN  ClusteringAlgorithm = "dbscan"
	AlgorithmHDBSCAN ClusteringAlgorithm = "hdbscan"
)

type ClusteringRunStatus string

const (
	RunRunning   ClusteringRunStatus = "running"
	RunCompleted ClusteringRunStatus = "completed"
	RunFailed    ClusteringRunStatus = "failed"
)

// ClusteringRun records the parameters and outcome of one clustering pass.
type ClusteringRun struct {
	ID             int64               `bson:"_id" json:"id"`
	Algorithm      ClusteringAlgorithm `bson:"algorithm" json:"algorithm"`
	MinSamples     int                 `bson:"min_samples" json:"min_samples"`
	Eps            float64             `bson:"eps" json:"eps"`
	MinClusterSize int                 `bson:"min_cluster_size" json:"min_cluster_size"`
	NumClusters    int                 `bson:"num_clusters" json:"num_clusters"`
	NumNoisePoints int                 `bson:"num_noise_points" json:"num_noise_points"`
	TotalPoints    int                 `bson:"total_points" json:"total_points"`
	Status         ClusteringRunStatus `bson:"status" json:"status"`
	ErrorMessage   *string             `bson:"error_message,omitempty" json:"error_message"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}

const AssignmentNearestCentroid = "nearest_centroid"

// IssueClusterAssignment is the audit row written when an issue is routed
// through a cluster.
type IssueClusterAssignment struct {
	ID                   int64     `bson:"_id" json:"id"`
	IssueID              int64     `bson:"issue_id" json:"issue_id"`
	ClusterID            int64     `bson:"cluster_id" json:"cluster_id"`
	DistanceFromCentroid float64   `bson:"distance_from_centroid" json:"distance_from_centroid"`
	AssignmentMethod     string    `bson:"assignment_method" json:"assignment_method"`
	CreatedAt            time.Time `bson:"created_at" json:"created_at"`
}

package models

import "time"

type OTPResponse struct {
	Message          string `json:"message"`
	MobileNumber     string `json:"mobile_number"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Page is the paginated envelope shared by every list endpoint.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage computes total_pages, reporting a single page for an empty result.
func NewPage[T any](items []T, total int64, page, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 1
	if total > 0 && size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: size, TotalPages: pages}
}

// IssueResponse is the citizen facing view of an issue.
type IssueResponse struct {
	ID          int64        `json:"id"`
	IssueType   IssueType    `json:"issue_type"`
	Description string       `json:"description"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	WardID      *int         `json:"ward_id"`
	WardName    *string      `json:"ward_name"`
	Status      IssueStatus  `json:"status"`
	Stage       int          `json:"stage"`
	UserID      int64        `json:"user_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Photos      []IssuePhoto `json:"photos"`
}

func NewIssueResponse(i *Issue) IssueResponse {
	photos := i.Photos
	if photos == nil {
		photos = []IssuePhoto{}
	}
	return IssueResponse{
		ID:          i.ID,
		IssueType:   i.IssueType,
		Description: i.Description,
		Latitude:    i.Latitude,
		Longitude:   i.Longitude,
		WardID:      i.WardID,
		WardName:    i.WardName,
		Status:      i.Status,
		Stage:       i.Status.Stage(),
		UserID:      i.UserID,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		Photos:      photos,
	}
}

type IssueMapItem struct {
	ID        int64       `json:"id"`
	IssueType IssueType   `json:"issue_type"`
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Status    IssueStatus `json:"status"`
}

type UserInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	MobileNumber string `json:"mobile_number"`
}

type ParshadInfo struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	MobileNumber string   `json:"mobile_number"`
	VillageName  *string  `json:"village_name"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

func NewParshadInfo(u *User) ParshadInfo {
	return ParshadInfo{
		ID:           u.ID,
		Name:         u.Name,
		MobileNumber: u.MobileNumber,
		VillageName:  u.VillageName,
		Latitude:     u.Latitude,
		Longitude:    u.Longitude,
	}
}

type ParshadList struct {
	Items []ParshadInfo `json:"items"`
	Total int           `json:"total"`
}

// AdminIssueResponse is the PWD and Parshad view with assignment details.
type AdminIssueResponse struct {
	IssueResponse
	Reporter          *UserInfo    `json:"reporter"`
	AssignedParshadID *int64       `json:"assigned_parshad_id"`
	AssignedParshad   *ParshadInfo `json:"assigned_parshad"`
	AssignmentNotes   *string      `json:"assignment_notes"`
	ProgressNotes     *string      `json:"progress_notes"`
	PhotoCount        int          `json:"photo_count"`
}

type AdminUserResponse struct {
	User
	TotalReports   int64 `json:"total_reports"`
	AssignedIssues int64 `json:"assigned_issues"`
}

type PWDDashboard struct {
	TotalIssues      int64                 `json:"total_issues"`
	UnassignedIssues int64                 `json:"unassigned_issues"`
	AssignedIssues   int64                 `json:"assigned_issues"`
	InProgressIssues int64                 `json:"in_progress_issues"`
	CompletedIssues  int64                 `json:"completed_issues"`
	TotalParshads    int64                 `json:"total_parshads"`
	ActiveParshads   int64                 `json:"active_parshads"`
	IssuesByType     map[IssueType]int64   `json:"issues_by_type"`
	IssuesByStatus   map[IssueStatus]int64 `json:"issues_by_status"`
	IssuesToday      int64                 `json:"issues_today"`
	IssuesThisWeek   int64                 `json:"issues_this_week"`
}

type ParshadDashboard struct {
	TotalAssigned          int64               `json:"total_assigned"`
	PendingAcknowledgement int64               `json:"pending_acknowledgement"`
	InProgress             int64               `json:"in_progress"`
	Completed              int64               `json:"completed"`
	IssuesByType           map[IssueType]int64 `json:"issues_by_type"`
}

type ClusterInfo struct {
	ID              int64    `json:"id"`
	ClusterLabel    int      `json:"cluster_label"`
	ClusterName     *string  `json:"cluster_name"`
	AreaDescription *string  `json:"area_description"`
	CentroidLat     float64  `json:"centroid_latitude"`
	CentroidLon     float64  `json:"centroid_longitude"`
	RadiusMeters    *float64 `json:"radius_meters"`
	IssueCount      int      `json:"issue_count"`
	ParshadID       *int64   `json:"parshad_id"`
	ParshadName     *string  `json:"parshad_name"`
	IsActive        bool     `json:"is_active"`
	IsMapped        bool     `json:"is_mapped"`
}

func NewClusterInfo(c *GeoCluster, parshad *User) ClusterInfo {
	info := ClusterInfo{
		ID:              c.ID,
		ClusterLabel:    c.ClusterLabel,
		ClusterName:     c.ClusterName,
		AreaDescription: c.AreaDescription,
		CentroidLat:     c.CentroidLat,
		CentroidLon:     c.CentroidLon,
		RadiusMeters:    c.RadiusMeters,
		IssueCount:      c.IssueCount,
		ParshadID:       c.ParshadID,
		IsActive:        c.IsActive,
		IsMapped:        c.ParshadID != nil,
	}
	if parshad != nil {
		info.ParshadName = &parshad.Name
	}
	return info
}

type ClusterList struct {
	TotalClusters         int           `json:"total_clusters"`
	MappedClusters        int           `json:"mapped_clusters"`
	UnmappedClusters      int           `json:"unmapped_clusters"`
	TotalIssuesInClusters int           `json:"total_issues_in_clusters"`
	Clusters              []ClusterInfo `json:"clusters"`
}

type ClusteringRunResponse struct {
	Success              bool   `json:"success"`
	Algorithm            string `json:"algorithm"`
	NumClustersCreated   int    `json:"num_clusters_created"`
	NumNoisePoints       int    `json:"num_noise_points"`
	TotalPointsProcessed int    `json:"total_points_processed"`
	Message              string `json:"message"`
}

type GeocodeResponse struct {
	Success      bool     `json:"success"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	AddressQuery string   `json:"address_query"`
	Message      string   `json:"message"`
}

type ReverseGeocodeResponse struct {
	Success     bool              `json:"success"`
	DisplayName *string           `json:"display_name"`
	Address     map[string]string `json:"address"`
	Message     string            `json:"message"`
}

type ParshadLookupResponse struct {
	Found                     bool     `json:"found"`
	ParshadID                 *int64   `json:"parshad_id"`
	ParshadName               *string  `json:"parshad_name"`
	ParshadMobile             *string  `json:"parshad_mobile"`
	ParshadVillage            *string  `json:"parshad_village"`
	ClusterName               *string  `json:"cluster_name"`
	DistanceFromClusterCenter *float64 `json:"distance_from_cluster_center"`
	Message                   string   `json:"message"`
}

type AutoAssignResponse struct {
	Success             bool     `json:"success"`
	IssueID             int64    `json:"issue_id"`
	AssignedParshadID   *int64   `json:"assigned_parshad_id"`
	AssignedParshadName *string  `json:"assigned_parshad_name"`
	ClusterName         *string  `json:"cluster_name"`
	DistanceMeters      *float64 `json:"distance_meters"`
	Message             string   `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ClusterStat struct {
	ID           int64      `json:"id"`
	Label        int        `json:"label"`
	Name         *string    `json:"name"`
	Centroid     [2]float64 `json:"centroid"`
	RadiusMeters *float64   `json:"radius_meters"`
	IssueCount   int        `json:"issue_count"`
	ParshadID    *int64     `json:"parshad_id"`
	IsMapped     bool       `json:"is_mapped"`
}

type ClusterStatistics struct {
	TotalClusters         int           `json:"total_clusters"`
	MappedClusters        int           `json:"mapped_clusters"`
	UnmappedClusters      int           `json:"unmapped_clusters"`
	TotalIssuesInClusters int           `json:"total_issues_in_clusters"`
	Clusters              []ClusterStat `json:"clusters"`
}

package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"jansarthi-be/geo"
	"jansarthi-be/models"
	"jansarthi-be/services"
	"jansarthi-be/store"
)

type runClusteringRequest struct {
	Algorithm      string  `json:"algorithm" binding:"oneof=dbscan hdbscan"`
	MinClusterSize int     `json:"min_cluster_size" binding:"gte=2"`
	EpsMeters      float64 `json:"eps_meters" binding:"gte=100,lte=5000"`
}

type mapClusterRequest struct {
	ClusterID       int64   `json:"cluster_id" binding:"required,gt=0"`
	ParshadID       int64   `json:"parshad_id" binding:"required,gt=0"`
	ClusterName     *string `json:"cluster_name" binding:"omitempty,max=200"`
	AreaDescription *string `json:"area_description" binding:"omitempty,max=500"`
}

type geocodeRequest struct {
	Address string `json:"address" binding:"required,min=3,max=500"`
	City    string `json:"city" binding:"max=100"`
	State   string `json:"state" binding:"max=100"`
	Country string `json:"country" binding:"max=100"`
}

// RunClustering regroups all issues. An empty body runs DBSCAN with the
// default parameters.
func (h *Controller) RunClustering(c *gin.Context) {
	input := runClusteringRequest{Algorithm: string(models.AlgorithmDBSCAN), MinClusterSize: 5, EpsMeters: 500}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	algorithm := models.ClusteringAlgorithm(input.Algorithm)
	res, err := h.Clusters.Run(c.Request.Context(), algorithm, input.MinClusterSize, input.EpsMeters)
	if errors.Is(err, services.ErrAlgorithmUnsupported) {
		detail(c, http.StatusNotImplemented, fmt.Sprintf("Algorithm %s is not supported. Use dbscan.", algorithm))
		return
	}
	if err != nil {
		internalError(c, "Clustering failed: "+err.Error(), err)
		return
	}
	c.JSON(http.StatusOK, models.ClusteringRunResponse{
		Success:              true,
		Algorithm:            string(algorithm),
		NumClustersCreated:   res.Clusters,
		NumNoisePoints:       res.Noise,
		TotalPointsProcessed: res.TotalPoints,
		Message:              fmt.Sprintf("Successfully created %d clusters from %d issues", res.Clusters, res.TotalPoints),
	})
}

func (h *Controller) MapCluster(c *gin.Context) {
	var input mapClusterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	cluster, err := h.Clusters.MapToParshad(ctx, input.ClusterID, input.ParshadID, input.ClusterName, input.AreaDescription)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, services.ErrNotParshad) {
		detail(c, http.StatusBadRequest, "Failed to map cluster. Check cluster and parshad IDs.")
		return
	}
	if err != nil {
		internalError(c, "Failed to map cluster", err)
		return
	}
	c.JSON(http.StatusOK, h.clusterInfo(ctx, cluster))
}

// clusterInfo resolves the Parshad name of a mapped cluster.
func (h *Controller) clusterInfo(ctx context.Context, cluster *models.GeoCluster) models.ClusterInfo {
	var parshad *models.User
	if cluster.ParshadID != nil {
		if p, err := h.Store.GetUser(ctx, *cluster.ParshadID); err == nil {
			parshad = p
		}
	}
	return models.NewClusterInfo(cluster, parshad)
}

func (h *Controller) GetClusters(c *gin.Context) {
	q := newQuery(c)
	f := store.ClusterFilter{
		ActiveOnly: q.boolean("active_only", true),
		MappedOnly: q.boolean("mapped_only", false),
	}
	if q.failed() {
		return
	}
	ctx := c.Request.Context()
	clusters, err := h.Store.ListClusters(ctx, f)
	if err != nil {
		internalError(c, "Failed to fetch clusters", err)
		return
	}
	list := models.ClusterList{TotalClusters: len(clusters), Clusters: make([]models.ClusterInfo, len(clusters))}
	for i := range clusters {
		list.Clusters[i] = h.clusterInfo(ctx, &clusters[i])
		list.TotalIssuesInClusters += clusters[i].IssueCount
		if clusters[i].ParshadID != nil {
			list.MappedClusters++
		}
	}
	list.UnmappedClusters = list.TotalClusters - list.MappedClusters
	c.JSON(http.StatusOK, list)
}

func (h *Controller) GetCluster(c *gin.Context) {
	id, ok := pathID(c, "cluster_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cluster, err := h.Store.GetCluster(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, "Cluster not found")
		return
	}
	if err != nil {
		internalError(c, "Failed to fetch cluster", err)
		return
	}
	c.JSON(http.StatusOK, h.clusterInfo(ctx, cluster))
}

func (h *Controller) GetClusterStatistics(c *gin.Context) {
	stats, err := h.Clusters.Statistics(c.Request.Context())
	if err != nil {
		internalError(c, "Failed to compute statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Controller) GeocodeAddress(c *gin.Context) {
	input := geocodeRequest{Country: "India"}
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	query := services.AddressQuery{Address: input.Address, City: input.City, State: input.State, Country: input.Country}
	resp := models.GeocodeResponse{AddressQuery: query.String()}

	lat, lon, err := h.Geocoder.Geocode(c.Request.Context(), query)
	if err != nil {
		if !errors.Is(err, services.ErrNoGeocodeResult) {
			_ = c.Error(err)
		}
		resp.Message = "Could not find coordinates for this address"
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.Success = true
	resp.Latitude, resp.Longitude = &lat, &lon
	resp.Message = "Address successfully geocoded"
	c.JSON(http.StatusOK, resp)
}

func (h *Controller) ReverseGeocode(c *gin.Context) {
	q := newQuery(c)
	lat := q.float("latitude", 0, -90, 90, true)
	lon := q.float("longitude", 0, -180, 180, true)
	if q.failed() {
		return
	}
	res, err := h.Geocoder.Reverse(c.Request.Context(), lat, lon)
	if err != nil {
		if !errors.Is(err, services.ErrNoGeocodeResult) {
			_ = c.Error(err)
		}
		c.JSON(http.StatusOK, models.ReverseGeocodeResponse{Message: "Could not find address for these coordinates"})
		return
	}
	c.JSON(http.StatusOK, models.ReverseGeocodeResponse{
		Success:     true,
		DisplayName: &res.DisplayName,
		Address:     res.Address,
		Message:     "Address found",
	})
}

// FindParshad reports which Parshad covers a location, if any.
func (h *Controller) FindParshad(c *gin.Context) {
	q := newQuery(c)
	lat := q.float("latitude", 0, -90, 90, true)
	lon := q.float("longitude", 0, -180, 180, true)
	if q.failed() {
		return
	}
	ctx := c.Request.Context()
	cluster, dist, err := h.Clusters.FindNearest(ctx, geo.Point{Lat: lat, Lon: lon})
	if errors.Is(err, services.ErrNoCluster) {
		c.JSON(http.StatusOK, models.ParshadLookupResponse{Message: "No cluster found for this location. Area may not be mapped yet."})
		return
	}
	if err != nil {
		internalError(c, "Failed to find parshad", err)
		return
	}

	dist = math.Round(dist*100) / 100
	resp := models.ParshadLookupResponse{ClusterName: cluster.ClusterName, DistanceFromClusterCenter: &dist}
	var parshad *models.User
	if cluster.ParshadID != nil {
		parshad, _ = h.Store.GetUser(ctx, *cluster.ParshadID)
	}
	if parshad == nil {
		resp.Message = "Cluster found but no parshad assigned yet."
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.Found = true
	resp.ParshadID = &parshad.ID
	resp.ParshadName = &parshad.Name
	resp.ParshadMobile = &parshad.MobileNumber
	resp.ParshadVillage = parshad.VillageName
	resp.Message = "Found parshad: " + parshad.Name
	c.JSON(http.StatusOK, resp)
}

// AutoAssignIssue routes an unassigned issue through the nearest mapped
// cluster.
func (h *Controller) AutoAssignIssue(c *gin.Context) {
	id, ok := pathID(c, "issue_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	issue, err := h.Store.GetIssue(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, "Issue not found")
		return
	}
	if err != nil {
		internalError(c, "Failed to fetch issue", err)
		return
	}
	if issue.AssignedParshadID != nil {
		detail(c, http.StatusBadRequest, "Issue is already assigned to a parshad")
		return
	}

	resp := models.AutoAssignResponse{IssueID: issue.ID}
	from := issue.Status
	cluster, dist, err := h.Clusters.AutoAssign(ctx, issue)
	switch {
	case errors.Is(err, services.ErrNoCluster), errors.Is(err, services.ErrClusterUnmapped):
		resp.Message = "No suitable cluster found for auto-assignment"
		c.JSON(http.StatusOK, resp)
		return
	case err != nil:
		_ = c.Error(err)
		resp.Message = "Auto-assignment failed"
		c.JSON(http.StatusOK, resp)
		return
	}
	h.countTransition(from, issue.Status)

	dist = math.Round(dist*100) / 100
	resp.Success = true
	resp.AssignedParshadID = issue.AssignedParshadID
	resp.ClusterName = cluster.ClusterName
	resp.DistanceMeters = &dist
	name := fmt.Sprintf("Parshad %d", *issue.AssignedParshadID)
	if p, err := h.Store.GetUser(ctx, *issue.AssignedParshadID); err == nil {
		name = p.Name
	}
	resp.AssignedParshadName = &name
	resp.Message = "Issue assigned to " + name
	c.JSON(http.StatusOK, resp)
}

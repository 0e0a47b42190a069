package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"jansarthi-be/geo"
	"jansarthi-be/middlewares"
	"jansarthi-be/models"
	"jansarthi-be/services"
	"jansarthi-be/store"
	"jansarthi-be/wards"
)

type createIssueForm struct {
	IssueType   string   `form:"issue_type" binding:"required,oneof=water electricity road garbage sewerage"`
	Description string   `form:"description" binding:"required,min=10,max=2000"`
	Latitude    *float64 `form:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude   *float64 `form:"longitude" binding:"required,gte=-180,lte=180"`
	WardID      *int     `form:"ward_id" binding:"omitempty,gte=1,lte=100"`
	WardName    *string  `form:"ward_name" binding:"omitempty,max=200"`
}

// formFiles returns the uploaded files under key, or none when the request
// carries no multipart body.
func formFiles(c *gin.Context, key string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[key]
}

// photoError writes the response for a failed validation or upload.
func photoError(c *gin.Context, err error) {
	var reqErr *services.RequestError
	if errors.As(err, &reqErr) {
		detail(c, http.StatusBadRequest, reqErr.Message)
		return
	}
	internalError(c, fmt.Sprintf("Failed to upload photo: %v", err), err)
}

// CreateIssue files a new report with up to MaxPhotosPerIssue photos.
func (h *Controller) CreateIssue(c *gin.Context) {
	var input createIssueForm
	if err := c.ShouldBind(&input); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	user := middlewares.CurrentUser(c)

	files := formFiles(c, "photos")
	limit := h.Settings.MaxPhotosPerIssue
	if err := h.Photos.Validate(files, limit, fmt.Sprintf("Maximum %d photos allowed", limit)); err != nil {
		photoError(c, err)
		return
	}
	photos, err := h.Photos.Upload(ctx, 0, files)
	if err != nil {
		photoError(c, err)
		return
	}

	wardName := input.WardName
	if input.WardID != nil && (wardName == nil || *wardName == "") {
		if w, ok := wards.ByID(*input.WardID); ok {
			wardName = &w.Name
		}
	}

	now := h.now()
	issue := &models.Issue{
		IssueType:   models.IssueType(input.IssueType),
		Description: input.Description,
		Latitude:    *input.Latitude,
		Longitude:   *input.Longitude,
		WardID:      input.WardID,
		WardName:    wardName,
		Status:      models.StatusReported,
		UserID:      user.ID,
		Photos:      photos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Store.CreateIssue(ctx, issue); err != nil {
		h.discardPhotos(ctx, photos)
		internalError(c, "Failed to create issue", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.ReportsCreated.WithLabelValues(string(issue.IssueType)).Inc()
	}

	if h.Settings.AutoAssign && h.Clusters != nil {
		if _, _, err := h.Clusters.AutoAssign(ctx, issue); err != nil && !errors.Is(err, services.ErrNoCluster) {
			_ = c.Error(err)
		}
	}

	c.JSON(http.StatusCreated, h.issueResponse(ctx, issue))
}

// GetIssues lists the current user's reports, newest first.
func (h *Controller) GetIssues(c *gin.Context) {
	q := newQuery(c)
	page, size := q.page(10)
	issueType := q.issueType("issue_type")
	status := q.status("status")
	if q.failed() {
		return
	}
	ctx := c.Request.Context()
	user := middlewares.CurrentUser(c)

	f := store.IssueFilter{UserID: &user.ID, IssueType: issueType}
	if status != "" {
		f.Statuses = []models.IssueStatus{status}
	}
	issues, total, err := h.Store.ListIssues(ctx, f, store.ListOptions{
		Offset: offset(page, size), Limit: size, SortBy: "created_at", Desc: true,
	})
	if err != nil {
		internalError(c, "Failed to fetch issues", err)
		return
	}

	items := make([]models.IssueResponse, len(issues))
	for i := range issues {
		items[i] = h.issueResponse(ctx, &issues[i])
	}
	c.JSON(http.StatusOK, models.NewPage(items, total, page, size))
}

// GetIssuesForMap returns the minimal fields of every issue within radius
// kilometres of the given point.
func (h *Controller) GetIssuesForMap(c *gin.Context) {
	q := newQuery(c)
	lat := q.float("latitude", 0, -90, 90, true)
	lon := q.float("longitude", 0, -180, 180, true)
	radius := q.float("radius", 10, 0.1, 100, false)
	issueType := q.issueType("issue_type")
	status := q.status("status")
	if q.failed() {
		return
	}

	f := store.IssueFilter{IssueType: issueType}
	if status != "" {
		f.Statuses = []models.IssueStatus{status}
	}
	issues, _, err := h.Store.ListIssues(c.Request.Context(), f, store.ListOptions{})
	if err != nil {
		internalError(c, "Failed to fetch issues", err)
		return
	}

	center := geo.Point{Lat: lat, Lon: lon}
	items := []models.IssueMapItem{}
	for _, is := range issues {
		if geo.DistanceKM(center, geo.Point{Lat: is.Latitude, Lon: is.Longitude}) > radius {
			continue
		}
		items = append(items, models.IssueMapItem{
			ID:        is.ID,
			IssueType: is.IssueType,
			Latitude:  is.Latitude,
			Longitude: is.Longitude,
			Status:    is.Status,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetIssue handles retrieving a single issue by its ID
func (h *Controller) GetIssue(c *gin.Context) {
	issue, ok := h.loadIssue(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.issueResponse(c.Request.Context(), issue))
}

// loadIssue fetches the issue named by the :issue_id path parameter and
// writes the 404 itself.
func (h *Controller) loadIssue(c *gin.Context) (*models.Issue, bool) {
	id, ok := pathID(c, "issue_id")
	if !ok {
		return nil, false
	}
	issue, err := h.Store.GetIssue(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, fmt.Sprintf("Issue with id %d not found", id))
		return nil, false
	}
	if err != nil {
		internalError(c, "Failed to fetch issue", err)
		return nil, false
	}
	return issue, true
}

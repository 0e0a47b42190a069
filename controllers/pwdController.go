package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

type assignRequest struct {
	ParshadID       int64   `json:"parshad_id" binding:"required,gt=0"`
	AssignmentNotes *string `json:"assignment_notes" binding:"omitempty,max=1000"`
}

type issueUpdateRequest struct {
	AssignedParshadID *int64  `json:"assigned_parshad_id"`
	AssignmentNotes   *string `json:"assignment_notes" binding:"omitempty,max=1000"`
}

// startOfDay and startOfWeek are UTC; weeks start on Monday.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
}

// GetPWDDashboard aggregates issue and Parshad counts. The counts are
// independent queries and run concurrently.
func (h *Controller) GetPWDDashboard(c *gin.Context) {
	now := h.now()
	unassigned := false
	active := true
	dash := models.PWDDashboard{
		IssuesByType:   make(map[models.IssueType]int64, len(models.IssueTypes)),
		IssuesByStatus: make(map[models.IssueStatus]int64, len(models.IssueStatuses)),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(c.Request.Context())
	count := func(dst *int64, f store.IssueFilter) {
		g.Go(func() error {
			n, err := h.Store.CountIssues(ctx, f)
			*dst = n
			return err
		})
	}
	count(&dash.TotalIssues, store.IssueFilter{})
	count(&dash.UnassignedIssues, store.IssueFilter{Assigned: &unassigned, Statuses: []models.IssueStatus{models.StatusReported}})
	count(&dash.AssignedIssues, store.IssueFilter{Statuses: []models.IssueStatus{models.StatusAssigned}})
	count(&dash.InProgressIssues, store.IssueFilter{Statuses: []models.IssueStatus{models.StatusParshadCheck, models.StatusStartedWorking}})
	count(&dash.CompletedIssues, store.IssueFilter{Statuses: []models.IssueStatus{models.StatusFinishedWork}})
	count(&dash.IssuesToday, store.IssueFilter{CreatedFrom: startOfDay(now)})
	count(&dash.IssuesThisWeek, store.IssueFilter{CreatedFrom: startOfWeek(now)})

	g.Go(func() error {
		n, err := h.Store.CountUsers(ctx, store.UserFilter{Role: models.RoleParshad, IsActive: &active})
		dash.TotalParshads = n
		return err
	})
	g.Go(func() error {
		n, err := h.Store.CountAssignedParshads(ctx, store.IssueFilter{
			Statuses: []models.IssueStatus{models.StatusAssigned, models.StatusParshadCheck, models.StatusStartedWorking},
		})
		dash.ActiveParshads = n
		return err
	})
	for _, t := range models.IssueTypes {
		t := t
		g.Go(func() error {
			n, err := h.Store.CountIssues(ctx, store.IssueFilter{IssueType: t})
			mu.Lock()
			dash.IssuesByType[t] = n
			mu.Unlock()
			return err
		})
	}
	for _, s := range models.IssueStatuses {
		s := s
		g.Go(func() error {
			n, err := h.Store.CountIssues(ctx, store.IssueFilter{Statuses: []models.IssueStatus{s}})
			mu.Lock()
			dash.IssuesByStatus[s] = n
			mu.Unlock()
			return err
		})
	}

	if err := g.Wait(); err != nil {
		internalError(c, "Failed to load dashboard", err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// GetAllIssues lists every issue for PWD workers, newest first.
func (h *Controller) GetAllIssues(c *gin.Context) {
	q := newQuery(c)
	page, size := q.page(20)
	f := store.IssueFilter{
		IssueType:         q.issueType("issue_type"),
		Assigned:          q.optionalBool("assigned"),
		AssignedParshadID: q.optionalInt64("parshad_id"),
		Search:            strings.TrimSpace(c.Query("search")),
	}
	if s := q.status("status"); s != "" {
		f.Statuses = []models.IssueStatus{s}
	}
	if q.failed() {
		return
	}
	h.adminIssuePage(c, f, page, size, "created_at")
}

func (h *Controller) adminIssuePage(c *gin.Context, f store.IssueFilter, page, size int, sortBy string) {
	ctx := c.Request.Context()
	issues, total, err := h.Store.ListIssues(ctx, f, store.ListOptions{
		Offset: offset(page, size), Limit: size, SortBy: sortBy, Desc: true,
	})
	if err != nil {
		internalError(c, "Failed to fetch issues", err)
		return
	}
	c.JSON(http.StatusOK, models.NewPage(h.adminIssueList(ctx, issues), total, page, size))
}

func (h *Controller) GetIssueDetail(c *gin.Context) {
	issue, ok := h.loadIssue(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.adminIssueResponse(c.Request.Context(), issue))
}

// loadParshad fetches a user that must be an active Parshad, writing the
// error response itself.
func (h *Controller) loadParshad(c *gin.Context, id int64) (*models.User, bool) {
	p, err := h.Store.GetUser(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, fmt.Sprintf("Parshad with id %d not found", id))
		return nil, false
	}
	if err != nil {
		internalError(c, "Failed to look up parshad", err)
		return nil, false
	}
	if !p.IsParshad() {
		detail(c, http.StatusBadRequest, "Selected user is not a Parshad")
		return nil, false
	}
	if !p.IsActive {
		detail(c, http.StatusBadRequest, "Selected Parshad is not active")
		return nil, false
	}
	return p, true
}

// AssignIssue hands an issue to a Parshad and moves it to assigned.
func (h *Controller) AssignIssue(c *gin.Context) {
	issue, ok := h.loadIssue(c)
	if !ok {
		return
	}
	var input assignRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if _, ok := h.loadParshad(c, input.ParshadID); !ok {
		return
	}
	h.saveAssignment(c, issue, input.ParshadID, input.AssignmentNotes)
}

func (h *Controller) saveAssignment(c *gin.Context, issue *models.Issue, parshadID int64, notes *string) {
	ctx := c.Request.Context()
	from := issue.Status
	issue.AssignTo(parshadID, notes)
	issue.UpdatedAt = h.now()
	if err := h.Store.UpdateIssue(ctx, issue); err != nil {
		internalError(c, "Failed to assign issue", err)
		return
	}
	h.countTransition(from, issue.Status)
	c.JSON(http.StatusOK, h.adminIssueResponse(ctx, issue))
}

// UpdateIssue changes the assignment or its notes. Naming a different
// Parshad resets the issue to assigned.
func (h *Controller) UpdateIssue(c *gin.Context) {
	issue, ok := h.loadIssue(c)
	if !ok {
		return
	}
	var input issueUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()

	if input.AssignedParshadID != nil {
		p, err := h.Store.GetUser(ctx, *input.AssignedParshadID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			internalError(c, "Failed to look up parshad", err)
			return
		}
		if err != nil || !p.IsParshad() {
			detail(c, http.StatusBadRequest, "Invalid Parshad ID")
			return
		}
		h.saveAssignment(c, issue, p.ID, input.AssignmentNotes)
		return
	}

	if input.AssignmentNotes != nil {
		issue.AssignmentNotes = input.AssignmentNotes
		issue.UpdatedAt = h.now()
		if err := h.Store.UpdateIssue(ctx, issue); err != nil {
			internalError(c, "Failed to update issue", err)
			return
		}
	}
	c.JSON(http.StatusOK, h.adminIssueResponse(ctx, issue))
}

// userStats fills total_reports and, for Parshads, assigned_issues.
func (h *Controller) userStats(ctx context.Context, u *models.User) (models.AdminUserResponse, error) {
	resp := models.AdminUserResponse{User: *u}
	n, err := h.Store.CountIssues(ctx, store.IssueFilter{UserID: &u.ID})
	if err != nil {
		return resp, err
	}
	resp.TotalReports = n
	if u.IsParshad() {
		n, err = h.Store.CountIssues(ctx, store.IssueFilter{AssignedParshadID: &u.ID})
		if err != nil {
			return resp, err
		}
		resp.AssignedIssues = n
	}
	return resp, nil
}

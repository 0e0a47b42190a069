package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"jansarthi-be/middlewares"
	"jansarthi-be/models"
	"jansarthi-be/services"
	"jansarthi-be/store"
)

type statusUpdateRequest struct {
	Status        models.IssueStatus `json:"status" form:"status" binding:"required,oneof=reported assigned parshad_check started_working finished_work"`
	ProgressNotes string             `json:"progress_notes" form:"progress_notes" binding:"max=2000"`
}

func (h *Controller) GetParshadDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	me := middlewares.CurrentUser(c).ID
	mine := func(statuses ...models.IssueStatus) store.IssueFilter {
		return store.IssueFilter{AssignedParshadID: &me, Statuses: statuses}
	}

	dash := models.ParshadDashboard{IssuesByType: make(map[models.IssueType]int64, len(models.IssueTypes))}
	counts := []struct {
		dst *int64
		f   store.IssueFilter
	}{
		{&dash.TotalAssigned, mine()},
		{&dash.PendingAcknowledgement, mine(models.StatusAssigned)},
		{&dash.InProgress, mine(models.StatusParshadCheck, models.StatusStartedWorking)},
		{&dash.Completed, mine(models.StatusFinishedWork)},
	}
	for _, q := range counts {
		n, err := h.Store.CountIssues(ctx, q.f)
		if err != nil {
			internalError(c, "Failed to load dashboard", err)
			return
		}
		*q.dst = n
	}
	for _, t := range models.IssueTypes {
		f := mine()
		f.IssueType = t
		n, err := h.Store.CountIssues(ctx, f)
		if err != nil {
			internalError(c, "Failed to load dashboard", err)
			return
		}
		dash.IssuesByType[t] = n
	}
	c.JSON(http.StatusOK, dash)
}

// GetMyIssues lists the caller's assigned issues, most recently updated first.
func (h *Controller) GetMyIssues(c *gin.Context) {
	q := newQuery(c)
	page, size := q.page(20)
	me := middlewares.CurrentUser(c).ID
	f := store.IssueFilter{AssignedParshadID: &me, IssueType: q.issueType("issue_type")}
	if s := q.status("status"); s != "" {
		f.Statuses = []models.IssueStatus{s}
	}
	if q.failed() {
		return
	}
	h.adminIssuePage(c, f, page, size, "updated_at")
}

// GetPendingIssues lists issues awaiting acknowledgement, oldest first.
func (h *Controller) GetPendingIssues(c *gin.Context) {
	q := newQuery(c)
	page, size := q.page(20)
	if q.failed() {
		return
	}
	me := middlewares.CurrentUser(c).ID
	ctx := c.Request.Context()
	issues, total, err := h.Store.ListIssues(ctx,
		store.IssueFilter{AssignedParshadID: &me, Statuses: []models.IssueStatus{models.StatusAssigned}},
		store.ListOptions{Offset: offset(page, size), Limit: size, SortBy: "created_at"})
	if err != nil {
		internalError(c, "Failed to fetch issues", err)
		return
	}
	c.JSON(http.StatusOK, models.NewPage(h.adminIssueList(ctx, issues), total, page, size))
}

func (h *Controller) GetInProgressIssues(c *gin.Context) {
	q := newQuery(c)
	page, size := q.page(20)
	if q.failed() {
		return
	}
	me := middlewares.CurrentUser(c).ID
	h.adminIssuePage(c, store.IssueFilter{
		AssignedParshadID: &me,
		Statuses:          []models.IssueStatus{models.StatusParshadCheck, models.StatusStartedWorking},
	}, page, size, "updated_at")
}

// loadOwnIssue is loadIssue restricted to issues assigned to the caller.
func (h *Controller) loadOwnIssue(c *gin.Context) (*models.Issue, bool) {
	issue, ok := h.loadIssue(c)
	if !ok {
		return nil, false
	}
	me := middlewares.CurrentUser(c).ID
	if issue.AssignedParshadID == nil || *issue.AssignedParshadID != me {
		detail(c, http.StatusForbidden, "This issue is not assigned to you")
		return nil, false
	}
	return issue, true
}

func (h *Controller) GetMyIssue(c *gin.Context) {
	issue, ok := h.loadOwnIssue(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.adminIssueResponse(c.Request.Context(), issue))
}

// workflowError maps a rejected workflow step to 400.
func workflowError(c *gin.Context, err error) bool {
	var te *models.TransitionError
	var re *services.RequestError
	switch {
	case err == nil:
		return false
	case errors.As(err, &te):
		detail(c, http.StatusBadRequest, te.Error())
	case errors.As(err, &re):
		detail(c, http.StatusBadRequest, re.Message)
	default:
		internalError(c, "Failed to update issue", err)
	}
	return true
}

// applyStep runs a workflow step on an owned issue and saves it.
func (h *Controller) applyStep(c *gin.Context, step func(issue *models.Issue) error) {
	issue, ok := h.loadOwnIssue(c)
	if !ok {
		return
	}
	from := issue.Status
	if workflowError(c, step(issue)) {
		return
	}
	h.saveStep(c, issue, from)
}

func (h *Controller) saveStep(c *gin.Context, issue *models.Issue, from models.IssueStatus) bool {
	ctx := c.Request.Context()
	if err := h.Store.UpdateIssue(ctx, issue); err != nil {
		internalError(c, "Failed to update issue", err)
		return false
	}
	h.countTransition(from, issue.Status)
	c.JSON(http.StatusOK, h.adminIssueResponse(ctx, issue))
	return true
}

func (h *Controller) UpdateIssueStatus(c *gin.Context) {
	var input statusUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	h.applyStep(c, func(issue *models.Issue) error {
		return services.Transition(issue, input.Status, input.ProgressNotes, h.now())
	})
}

// UpdateIssueWithPhotos changes the status and attaches proof photos. The
// transition is checked before anything is uploaded.
func (h *Controller) UpdateIssueWithPhotos(c *gin.Context) {
	issue, ok := h.loadOwnIssue(c)
	if !ok {
		return
	}
	var input statusUpdateRequest
	if err := c.ShouldBind(&input); err != nil {
		bindError(c, err)
		return
	}
	if !issue.Status.CanTransitionTo(input.Status) {
		workflowError(c, &models.TransitionError{From: issue.Status, To: input.Status})
		return
	}

	ctx := c.Request.Context()
	files := formFiles(c, "photos")
	limit := h.Settings.MaxProofPhotos
	if err := h.Photos.Validate(files, limit, fmt.Sprintf("Maximum %d photos allowed per update", limit)); err != nil {
		photoError(c, err)
		return
	}
	photos, err := h.Photos.Upload(ctx, issue.ID, files)
	if err != nil {
		photoError(c, err)
		return
	}

	from := issue.Status
	if workflowError(c, services.ProofUpdate(issue, input.Status, input.ProgressNotes, len(photos), h.now())) {
		h.discardPhotos(ctx, photos)
		return
	}
	issue.Photos = append(issue.Photos, photos...)
	if !h.saveStep(c, issue, from) {
		h.discardPhotos(ctx, photos)
	}
}

func (h *Controller) AcknowledgeIssue(c *gin.Context) {
	h.applyStep(c, func(issue *models.Issue) error {
		return services.Acknowledge(issue, h.now())
	})
}

func (h *Controller) StartWork(c *gin.Context) {
	notes := c.Query("notes")
	h.applyStep(c, func(issue *models.Issue) error {
		return services.StartWork(issue, notes, h.now())
	})
}

func (h *Controller) CompleteWork(c *gin.Context) {
	notes := c.Query("notes")
	h.applyStep(c, func(issue *models.Issue) error {
		return services.Complete(issue, notes, h.now())
	})
}

package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jansarthi-be/middlewares"
	"jansarthi-be/models"
	"jansarthi-be/store"
	"jansarthi-be/utils"
)

type createParshadRequest struct {
	Name         string   `json:"name" binding:"required,min=1,max=255"`
	MobileNumber string   `json:"mobile_number" binding:"required,mobile"`
	VillageName  *string  `json:"village_name" binding:"omitempty,max=255"`
	Latitude     *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

type userUpdateRequest struct {
	Role        *models.UserRole `json:"role" binding:"omitempty,oneof=user parshad pwd_worker"`
	IsActive    *bool            `json:"is_active"`
	VillageName *string          `json:"village_name" binding:"omitempty,max=255"`
	Latitude    *float64         `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude   *float64         `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

// CreateParshad registers a pre-verified Parshad. An existing account that
// is not yet a Parshad is upgraded in place.
func (h *Controller) CreateParshad(c *gin.Context) {
	var input createParshadRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	mobile := utils.NormalizePhone(input.MobileNumber)
	now := h.now()

	user, err := h.Store.GetUserByMobile(ctx, mobile)
	switch {
	case err == nil:
		if user.IsParshad() {
			detail(c, http.StatusBadRequest, "A Parshad with this mobile number already exists")
			return
		}
		user.Role = models.RoleParshad
		user.IsVerified = true
		user.VillageName = input.VillageName
		user.Latitude = input.Latitude
		user.Longitude = input.Longitude
		user.UpdatedAt = now
		err = h.Store.UpdateUser(ctx, user)
	case errors.Is(err, store.ErrNotFound):
		user = &models.User{
			Name:         input.Name,
			MobileNumber: mobile,
			Role:         models.RoleParshad,
			IsActive:     true,
			IsVerified:   true,
			VillageName:  input.VillageName,
			Latitude:     input.Latitude,
			Longitude:    input.Longitude,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = h.Store.CreateUser(ctx, user)
	}
	if err != nil {
		internalError(c, "Failed to create parshad", err)
		return
	}
	c.JSON(http.StatusCreated, models.AdminUserResponse{User: *user})
}

// GetParshads lists Parshads ordered by name.
func (h *Controller) GetParshads(c *gin.Context) {
	q := newQuery(c)
	isActive := q.optionalBool("is_active")
	if q.failed() {
		return
	}
	users, total, err := h.Store.ListUsers(c.Request.Context(), store.UserFilter{
		Role:          models.RoleParshad,
		IsActive:      isActive,
		NameOrVillage: strings.TrimSpace(c.Query("search")),
	}, store.ListOptions{SortBy: "name"})
	if err != nil {
		internalError(c, "Failed to fetch parshads", err)
		return
	}
	items := make([]models.ParshadInfo, len(users))
	for i := range users {
		items[i] = models.NewParshadInfo(&users[i])
	}
	c.JSON(http.StatusOK, models.ParshadList{Items: items, Total: int(total)})
}

// GetParshadIssues lists the issues assigned to one Parshad, most recently
// updated first.
func (h *Controller) GetParshadIssues(c *gin.Context) {
	id, ok := pathID(c, "parshad_id")
	if !ok {
		return
	}
	q := newQuery(c)
	page, size := q.page(20)
	status := q.status("status")
	if q.failed() {
		return
	}
	p, err := h.Store.GetUser(c.Request.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		internalError(c, "Failed to look up parshad", err)
		return
	}
	if err != nil || !p.IsParshad() {
		detail(c, http.StatusNotFound, "Parshad not found")
		return
	}
	f := store.IssueFilter{AssignedParshadID: &p.ID}
	if status != "" {
		f.Statuses = []models.IssueStatus{status}
	}
	h.adminIssuePage(c, f, page, size, "updated_at")
}

// GetUsers lists accounts with their report and assignment counts.
func (h *Controller) GetUsers(c *gin.Context) {
	q := newQuery(c)
	page, size := q.page(20)
	f := store.UserFilter{
		Role:         q.role("role"),
		IsActive:     q.optionalBool("is_active"),
		NameOrMobile: strings.TrimSpace(c.Query("search")),
	}
	if q.failed() {
		return
	}
	ctx := c.Request.Context()
	users, total, err := h.Store.ListUsers(ctx, f, store.ListOptions{
		Offset: offset(page, size), Limit: size, SortBy: "created_at", Desc: true,
	})
	if err != nil {
		internalError(c, "Failed to fetch users", err)
		return
	}
	items := make([]models.AdminUserResponse, len(users))
	for i := range users {
		if items[i], err = h.userStats(ctx, &users[i]); err != nil {
			internalError(c, "Failed to fetch users", err)
			return
		}
	}
	c.JSON(http.StatusOK, models.NewPage(items, total, page, size))
}

// UpdateUser changes role, activation or location of a non-PWD account.
func (h *Controller) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var input userUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	user, err := h.Store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		detail(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		internalError(c, "Failed to look up user", err)
		return
	}
	if user.IsPWDWorker() && user.ID != middlewares.CurrentUser(c).ID {
		detail(c, http.StatusForbidden, "Cannot modify other PWD workers")
		return
	}
	if input.Role != nil {
		if *input.Role == models.RolePWDWorker {
			detail(c, http.StatusForbidden, "Cannot assign PWD Worker role via API")
			return
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.VillageName != nil {
		user.VillageName = input.VillageName
	}
	if input.Latitude != nil {
		user.Latitude = input.Latitude
	}
	if input.Longitude != nil {
		user.Longitude = input.Longitude
	}
	user.UpdatedAt = h.now()
	if err := h.Store.UpdateUser(ctx, user); err != nil {
		internalError(c, "Failed to update user", err)
		return
	}
	resp, err := h.userStats(ctx, user)
	if err != nil {
		internalError(c, "Failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

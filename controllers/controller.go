// Package controllers holds the Gin handlers for every API route.
package controllers

import (
	"context"
	"log/slog"
	"time"

	"jansarthi-be/config"
	"jansarthi-be/models"
	"jansarthi-be/observability"
	"jansarthi-be/services"
	"jansarthi-be/store"
	"jansarthi-be/utils"
)

// Controller carries the dependencies shared by the handlers.
type Controller struct {
	Store    store.Store
	Tokens   *utils.TokenIssuer
	OTP      *services.OTPService
	SMS      services.SMSSender
	Photos   *services.PhotoService
	Clusters *services.ClusterService
	Geocoder services.Geocoder
	Metrics  *observability.Metrics
	Settings config.Settings
	Now      func() time.Time
}

func (h *Controller) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h *Controller) countTransition(from, to models.IssueStatus) {
	if h.Metrics != nil && from != to {
		h.Metrics.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()
	}
}

// discardPhotos removes uploads whose issue record was never written.
func (h *Controller) discardPhotos(ctx context.Context, photos []models.IssuePhoto) {
	for _, p := range photos {
		if err := h.Photos.Storage.Delete(ctx, p.ObjectName); err != nil {
			slog.Warn("Failed to remove orphaned photo", "object", p.ObjectName, "error", err)
		}
	}
}

// issueResponse builds the citizen view with signed photo URLs.
func (h *Controller) issueResponse(ctx context.Context, issue *models.Issue) models.IssueResponse {
	signed := *issue
	signed.Photos = h.Photos.Presign(ctx, issue.Photos)
	return models.NewIssueResponse(&signed)
}

// adminIssueResponse adds reporter and Parshad details. Lookups that fail
// only leave the related field empty.
func (h *Controller) adminIssueResponse(ctx context.Context, issue *models.Issue) models.AdminIssueResponse {
	resp := models.AdminIssueResponse{
		IssueResponse:     h.issueResponse(ctx, issue),
		AssignedParshadID: issue.AssignedParshadID,
		AssignmentNotes:   issue.AssignmentNotes,
		ProgressNotes:     issue.ProgressNotes,
		PhotoCount:        len(issue.Photos),
	}
	if u, err := h.Store.GetUser(ctx, issue.UserID); err == nil {
		resp.Reporter = &models.UserInfo{ID: u.ID, Name: u.Name, MobileNumber: u.MobileNumber}
	} else {
		slog.Debug("Reporter lookup failed", "issue_id", issue.ID, "error", err)
	}
	if issue.AssignedParshadID != nil {
		if p, err := h.Store.GetUser(ctx, *issue.AssignedParshadID); err == nil {
			info := models.NewParshadInfo(p)
			resp.AssignedParshad = &info
		}
	}
	return resp
}

func (h *Controller) adminIssueList(ctx context.Context, issues []models.Issue) []models.AdminIssueResponse {
	out := make([]models.AdminIssueResponse, len(issues))
	for i := range issues {
		out[i] = h.adminIssueResponse(ctx, &issues[i])
	}
	return out
}

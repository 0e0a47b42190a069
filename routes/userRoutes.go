package routes

import (
	"github.com/gin-gonic/gin"

	"jansarthi-be/controllers"
	"jansarthi-be/middlewares"
	"jansarthi-be/models"
)

// PWDRoutes sets up the department dashboard, assignment and user
// management routes.
func PWDRoutes(api *gin.RouterGroup, h *controllers.Controller, auth gin.HandlerFunc) {
	g := api.Group("/pwd", auth, middlewares.RequireRole(models.RolePWDWorker, "PWD Worker privileges required"))
	{
		g.GET("/dashboard", h.GetPWDDashboard)

		g.GET("/issues", h.GetAllIssues)
		g.GET("/issues/:issue_id", h.GetIssueDetail)
		g.POST("/issues/:issue_id/assign", h.AssignIssue)
		g.PATCH("/issues/:issue_id", h.UpdateIssue)

		g.POST("/parshads", h.CreateParshad)
		g.GET("/parshads", h.GetParshads)
		g.GET("/parshads/:parshad_id/issues", h.GetParshadIssues)

		g.GET("/users", h.GetUsers)
		g.PATCH("/users/:user_id", h.UpdateUser)
	}
}

// ParshadRoutes sets up the workflow routes for ward representatives.
func ParshadRoutes(api *gin.RouterGroup, h *controllers.Controller, auth gin.HandlerFunc) {
	g := api.Group("/parshad", auth, middlewares.RequireRole(models.RoleParshad, "Parshad privileges required"))
	{
		g.GET("/dashboard", h.GetParshadDashboard)
		g.GET("/issues", h.GetMyIssues)
		g.GET("/issues/pending", h.GetPendingIssues)
		g.GET("/issues/in-progress", h.GetInProgressIssues)
		g.GET("/issues/:issue_id", h.GetMyIssue)
		g.PATCH("/issues/:issue_id/status", h.UpdateIssueStatus)
		g.POST("/issues/:issue_id/update-with-photos", h.UpdateIssueWithPhotos)
		g.POST("/issues/:issue_id/acknowledge", h.AcknowledgeIssue)
		g.POST("/issues/:issue_id/start-work", h.StartWork)
		g.POST("/issues/:issue_id/complete", h.CompleteWork)
	}
}

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"jansarthi-be/controllers"
	"jansarthi-be/middlewares"
)

// ReportRoutes sets up the citizen report routes. Filing a report counts
// against the caller's daily limit.
func ReportRoutes(api *gin.RouterGroup, h *controllers.Controller, auth gin.HandlerFunc, rdb *redis.Client) {
	g := api.Group("/reports")
	verified := []gin.HandlerFunc{auth, middlewares.RequireVerified()}
	{
		g.POST("", append(verified, middlewares.ReportRateLimiter(rdb, h.Settings.ReportsPerDay), h.CreateIssue)...)
		g.GET("", append(verified, h.GetIssues)...)
		g.GET("/map", h.GetIssuesForMap)
		g.GET("/:issue_id", h.GetIssue)
	}
}

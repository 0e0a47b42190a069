package routes

import (
	"github.com/gin-gonic/gin"

	"jansarthi-be/controllers"
	"jansarthi-be/middlewares"
	"jansarthi-be/models"
)

func ClusterRoutes(api *gin.RouterGroup, h *controllers.Controller, auth gin.HandlerFunc) {
	pwd := []gin.HandlerFunc{auth, middlewares.RequireRole(models.RolePWDWorker, "PWD Worker privileges required for cluster management")}
	g := api.Group("/clusters")
	{
		g.POST("/run-clustering", append(pwd, h.RunClustering)...)
		g.POST("/map-cluster", append(pwd, h.MapCluster)...)
		g.GET("/statistics", append(pwd, h.GetClusterStatistics)...)
		g.POST("/auto-assign/:issue_id", append(pwd, h.AutoAssignIssue)...)

		g.GET("", h.GetClusters)
		g.GET("/find-parshad", h.FindParshad)
		g.POST("/geocode", h.GeocodeAddress)
		g.GET("/reverse-geocode", h.ReverseGeocode)
		g.GET("/:cluster_id", h.GetCluster)
	}
}

func WardRoutes(api *gin.RouterGroup, h *controllers.Controller) {
	g := api.Group("/wards")
	{
		g.GET("", h.GetWards)
		g.GET("/:ward_id", h.GetWard)
	}
}

package routes

import (
	"github.com/gin-gonic/gin"

	"jansarthi-be/controllers"
)

// AuthRoutes sets up the OTP authentication routes
func AuthRoutes(api *gin.RouterGroup, h *controllers.Controller, auth gin.HandlerFunc) {
	g := api.Group("/auth")
	{
		g.POST("/signup", h.Signup)
		g.POST("/login", h.Login)
		g.POST("/verify-otp", h.VerifyOTP)
		g.POST("/resend-otp", h.ResendOTP)
		g.POST("/refresh", h.RefreshToken)
		g.GET("/me", auth, h.GetMe)
	}
}

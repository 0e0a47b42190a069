// Package routes mounts every API group on a gin engine.
package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"jansarthi-be/controllers"
	"jansarthi-be/middlewares"
)

// Options carries what the route groups need besides the handlers.
type Options struct {
	Logger   *slog.Logger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer
	// UploadsDir is served under /uploads when photos are stored locally.
	UploadsDir string
}

// Setup installs the global middleware and every route group.
func Setup(r *gin.Engine, h *controllers.Controller, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(gin.Recovery(), middlewares.RequestLogger(logger), middlewares.CORS(h.Settings.CORSAllowedOrigins))
	if h.Metrics != nil {
		r.Use(middlewares.Metrics(h.Metrics))
	}

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/ping", h.Ping)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.UploadsDir != "" {
		r.StaticFS("/uploads", http.Dir(opts.UploadsDir))
	}

	auth := middlewares.AuthMiddleware(h.Tokens, h.Store)
	api := r.Group("/api")
	AuthRoutes(api, h, auth)
	ReportRoutes(api, h, auth, opts.Redis)
	PWDRoutes(api, h, auth)
	ParshadRoutes(api, h, auth)
	ClusterRoutes(api, h, auth)
	WardRoutes(api, h)
}

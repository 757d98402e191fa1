package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "docmanager-backend/internal/auth"
	"docmanager-backend/internal/documents"
	"docmanager-backend/internal/shared/config"
	"docmanager-backend/internal/shared/metrics"
	"docmanager-backend/internal/shared/server/middleware"
	"docmanager-backend/internal/shared/server/respond"
)

const uploadRateGroup = "UPLOAD"

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	Metrics         *metrics.Pipeline
	GoogleAuth      *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", deps.Metrics.Handler())
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	registerMeRoutes(api)

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
		api.POST("/documents", uploadRateLimit(), deps.DocumentHandler.Upload)
	}

	return r
}

// uploadRateLimit throttles uploads per user. Reads and deletes stay
// unlimited.
func uploadRateLimit() gin.HandlerFunc {
	return middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: uploadRateGroup,
		Rules: map[string]middleware.RateLimitRule{
			uploadRateGroup: {Rate: 1, Burst: 10},
		},
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

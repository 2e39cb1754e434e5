package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"signflow-backend/internal/shared/config"
	"signflow-backend/internal/shared/metrics"
	"signflow-backend/internal/shared/server/middleware"
	"signflow-backend/internal/shared/server/respond"
)

const webhookRateLimitGroup = "WEBHOOK"

// RouteRegistrar attaches routes to an API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// WebhookRegistrar attaches the provider callback behind extra handlers.
type WebhookRegistrar interface {
	RouteRegistrar
	RegisterWebhook(rg *gin.RouterGroup, extra ...gin.HandlerFunc)
}

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped;
// callers must not pass typed nil pointers.
type RouterDeps struct {
	Config           config.Config
	DocumentsHandler RouteRegistrar
	SigningHandler   WebhookRegistrar
	ArtifactHandler  RouteRegistrar
	Ready            func(ctx context.Context) error
	RateLimiter      *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/ready", func(c *gin.Context) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "not_ready", err.Error(), nil)
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.SigningHandler != nil {
		deps.SigningHandler.RegisterRoutes(api)
		deps.SigningHandler.RegisterWebhook(api, middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				webhookRateLimitGroup: {
					Rate:  deps.Config.WebhookRateLimitRPS,
					Burst: deps.Config.WebhookRateLimitBurst,
				},
			},
			DefaultGroup: webhookRateLimitGroup,
			Limiter:      deps.RateLimiter,
		}))
	}
	if deps.ArtifactHandler != nil {
		deps.ArtifactHandler.RegisterRoutes(api)
	}

	return r
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

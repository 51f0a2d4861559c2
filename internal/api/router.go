package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"machine-access-backend/internal/mw"
)

// RouterConfig tunes middleware for the router.
type RouterConfig struct {
	RateLimitPerSec float64
	CacheTTL        time.Duration
}

// NewRouter creates and configures a new Gin router. metricsHandler may
// be nil to disable the /metrics endpoint (it is in some tests).
func NewRouter(h *Handler, metricsHandler http.Handler, rc RouterConfig) *gin.Engine {
	r := gin.Default()

	if rc.RateLimitPerSec <= 0 {
		rc.RateLimitPerSec = 10
	}
	if rc.CacheTTL <= 0 {
		rc.CacheTTL = 15 * time.Second
	}

	rateLimiter := mw.RateLimiter(rate.Limit(rc.RateLimitPerSec), 5)

	cacheStore := cache.New(rc.CacheTTL, 10*time.Minute)
	caching := mw.Cache(cacheStore, rc.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Device check-in, the hot path.
		api.POST("/machine/update", h.PostMachineUpdate)

		// Operator controls.
		api.POST("/machine/lockout/:name", h.PostLockout)
		api.DELETE("/machine/lockout/:name", h.DeleteLockout)
		api.POST("/machine/oops/:name", h.PostOops)
		api.DELETE("/machine/oops/:name", h.DeleteOops)

		// Read-only state for dashboards.
		api.GET("/machines", caching, h.GetMachines)
		api.GET("/machines/:name", h.GetMachine)
		api.GET("/machines/:name/events", h.GetMachineEvents)

		// Config reloads.
		api.POST("/reload-users", h.PostReloadUsers)
		api.POST("/reload-machines", h.PostReloadMachines)

		// Chat integration.
		api.POST("/slack/command", h.PostSlackCommand)

		// Staff push alerts.
		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return r
}

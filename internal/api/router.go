package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"sensor-endpoint/internal/mw"
)

// NewRouter creates and configures the management API router.
// When snapshotCache is non-nil, GET /api/device is served from it for cacheTTL;
// callers drop stale entries with mw.Invalidate when the device state changes.
func NewRouter(h *Handler, limiter *mw.IPRateLimiter, snapshotCache *cache.Cache, cacheTTL time.Duration, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.Logger(log), gin.Recovery())

	api := r.Group("/api")
	api.Use(mw.RateLimiter(limiter))
	{
		api.GET("/health", h.GetHealth)

		if snapshotCache != nil && cacheTTL > 0 {
			api.GET("/device", mw.Cache(snapshotCache, cacheTTL), h.GetDevice)
		} else {
			api.GET("/device", h.GetDevice)
		}

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

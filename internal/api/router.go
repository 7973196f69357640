package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"absence-visualizer-backend/config"
	"absence-visualizer-backend/internal/mw"
	"absence-visualizer-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Metrics())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsConfig))

	if opts.OrganizationName == "" {
		opts.OrganizationName = cfg.Organization.Name
	}
	handler := NewHandler(s, opts)

	perSec, burst := cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst
	if perSec <= 0 || burst <= 0 {
		perSec, burst = 10, 5
	}
	rateLimiter := mw.RateLimiter(rate.Limit(perSec), burst, mw.ClientIP(cfg.Server.RequestIPHeader))

	// go-cache treats a zero TTL as "never expire".
	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	if cfg.Auth.Enabled {
		api.Use(mw.JWTAuth([]byte(cfg.Auth.JWTSecret)))
	}
	{
		api.GET("/employees", caching, handler.GetEmployees)
		api.GET("/absences", caching, handler.GetAbsences)
		api.GET("/holidays", caching, handler.GetHolidays)
		api.GET("/tree", caching, handler.GetTree)
		api.GET("/status/:employee_id", caching, handler.GetStatus)
		api.GET("/status/:employee_id/history", handler.GetAvailabilityHistory)
		api.GET("/profile-picture/:employee_id", caching, handler.GetProfilePicture)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

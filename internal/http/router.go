// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
//
// Two authenticated surfaces hang off the same engine: the operator API,
// guarded by bearer session tokens, and the machine /api group, guarded by
// the body-field API key gate the controllers speak.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/config"
	"github.com/plugtrack/go-plugtrack-backend/internal/http/handlers"
	"github.com/plugtrack/go-plugtrack-backend/internal/http/middleware"
	"github.com/plugtrack/go-plugtrack-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the operator API and the machine /api group.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression (PNG charts excluded; they are already compressed)
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/charts"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← db
	jobSvc := &services.JobService{DB: db}
	cfgSvc := &services.ConfigService{DB: db}
	setSvc := &services.SettingsService{DB: db}
	acctSvc := &services.AccountService{DB: db}
	insSvc := &services.InsightsService{DB: db}

	secret := []byte(cfg.Session.Secret)
	h := handlers.New(jobSvc, cfgSvc, setSvc, acctSvc, insSvc, db, secret, cfg.Session.TTL)

	// Open endpoints
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	// Operator API, session-guarded
	op := r.Group("", middleware.SessionAuth(secret))
	{
		// Jobs
		op.GET("/jobs", h.ListJobs)
		op.POST("/jobs", h.StartJob)
		op.POST("/jobs/stop-all", h.StopAllJobs)
		op.GET("/jobs/:id", h.GetJob)
		op.POST("/jobs/:id/stop", h.StopJob)
		op.POST("/jobs/:id/terminate", h.TerminateJob)
		op.PUT("/jobs/:id/notes", h.UpdateJobNotes)

		// List preferences
		op.POST("/settings/sort", h.AdvanceSort)
		op.POST("/settings/active-filter", h.ToggleActiveFilter)

		// Configs
		op.GET("/configs", h.ListConfigs)
		op.GET("/configs/all", h.ListAllConfigs)
		op.POST("/configs", h.CreateConfig)
		op.GET("/configs/:id", h.GetConfig)
		op.PUT("/configs/:id", h.UpdateConfig)
		op.POST("/configs/:id/copy", h.CopyConfig)
		op.DELETE("/configs/:id", h.ArchiveConfig)

		// Account
		op.GET("/account", h.GetAccount)
		op.PUT("/account/email", h.UpdateEmail)
		op.PUT("/account/password", h.UpdatePassword)
		op.POST("/account/api-key", h.IssueAPIKey)

		// Analytics and charts
		op.GET("/insights", h.GetInsights)
		op.GET("/charts/durations.png", h.DurationChart)
		op.GET("/charts/status.png", h.StatusChart)
		op.GET("/charts/configs.png", h.ConfigChart)
	}

	// Machine API, key-guarded (api_key travels in the request body)
	api := r.Group("/api", middleware.APIKeyAuth(acctSvc.ValidateAPIKey))
	{
		api.GET("/active", h.APIActiveJobs)
		api.POST("/active", h.APITerminate)
		api.GET("/jobs", h.APIJobs)
		api.GET("/configs", h.APIConfigs)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

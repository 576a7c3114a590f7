// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, session resolution, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/zhengchen1025/cook-cook/docs"
	"github.com/zhengchen1025/cook-cook/internal/config"
	"github.com/zhengchen1025/cook-cook/internal/http/handlers"
	"github.com/zhengchen1025/cook-cook/internal/http/middleware"
	"github.com/zhengchen1025/cook-cook/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, CORS
// and security headers, the session cookie resolver, health/metrics/swagger
// endpoints and the static upload dir, and then mounts the public API under
// cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Compression (uploads and metrics excluded)
//  6. Body size limiter (multipart ceiling on the upload route)
//  7. Metrics
//  8. Session resolution (cookie → user id), before rate limiting so
//     authenticated buckets key by user rather than IP
//  9. CORS and Security headers
//
// The rate limiter itself is attached per route: all /auth endpoints and
// every write endpoint share one token-bucket limiter keyed by user or IP.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// Dependency injection: services ← db/config
	authSvc := services.NewAuthService(db)
	authSvc.SessionTTL = cfg.SessionTTL
	authSvc.BcryptCost = cfg.BcryptCost
	recipeSvc := services.NewRecipeService(db)
	attemptSvc := services.NewAttemptService(db)
	uploadSvc := services.NewUploadService(cfg.UploadDir, cfg.ImageSize, cfg.ImageQuality)

	h := handlers.New(authSvc, recipeSvc, attemptSvc, uploadSvc,
		handlers.SessionCookieOptions{
			Name:   cfg.SessionCookieName,
			TTL:    cfg.SessionTTL,
			Secure: cfg.SessionCookieSecure,
		},
		handlers.UploadOptions{MaxBytes: cfg.MaxUploadBytes},
	)

	apiBase := cfg.APIBasePath // e.g. "/api"
	uploadRoute := path.Join(apiBase, "uploads")

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (cookies are masked by default)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Compress responses; stored JPEGs and the metrics scrape stay raw
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/uploads", "/metrics"})))

	// 6) Body size limits: 1 MiB for JSON bodies, the multipart ceiling
	// (plus envelope overhead) for the upload route
	r.Use(limitBody(1<<20, uploadRoute, cfg.MaxUploadBytes+(64<<10)))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Resolve the session cookie to a user id
	r.Use(middleware.SessionAuth(cfg.SessionCookieName, func(ctx context.Context, token string) (string, error) {
		u, err := authSvc.CurrentUser(ctx, token)
		if err != nil || u == nil {
			return "", err
		}
		return u.ID, nil
	}))

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORS.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag"},
			// The session rides an HTTP-only cookie, so cross-origin
			// clients from the allowlist need credentialed requests.
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
		// Served images are written once under unique names.
		ImmutablePathPrefix: "/uploads",
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, nil, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, nil, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Interactive API docs (off by default outside development)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Processed uploads are served directly from disk
	r.Static("/uploads", cfg.UploadDir)

	// One token-bucket limiter for auth and write endpoints
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	limited := rl.Handler()
	requireAuth := middleware.RequireAuth()

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Accounts and sessions (rate limited end to end)
		auth := api.Group("/auth", limited)
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Me)
		auth.PUT("/me", requireAuth, h.UpdateMe)
		auth.POST("/change-password", requireAuth, h.ChangePassword)
		auth.DELETE("/me", requireAuth, h.DeleteMe)

		// Recipes (ownership is enforced by the service layer)
		api.POST("/recipes", limited, h.CreateRecipe)
		api.GET("/recipes", h.ListRecipes)
		api.GET("/recipes/:id", h.GetRecipe)
		api.PUT("/recipes/:id", limited, h.UpdateRecipe)
		api.PATCH("/recipes/:id", limited, h.PatchRecipe)
		api.DELETE("/recipes/:id", limited, h.DeleteRecipe)

		// Attempts
		api.POST("/recipes/:id/attempts", limited, h.CreateAttempt)
		api.GET("/recipes/:id/attempts", h.ListAttempts)
		api.POST("/recipes/:id/attempts/:attemptId/choose", limited, h.ChooseBestAttempt)

		// Uploads
		api.POST("/uploads", limited, h.Upload)
	}
}

// limitBody returns a Gin middleware that caps request body sizes using
// http.MaxBytesReader. uploadPath gets its own (larger) multipart ceiling;
// every other endpoint is capped at maxBytes. Requests exceeding the cap
// cause downstream body reads to error.
func limitBody(maxBytes int64, uploadPath string, uploadMax int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if c.Request.URL.Path == uploadPath {
			limit = uploadMax
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

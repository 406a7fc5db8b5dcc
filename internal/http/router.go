// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, authentication, CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/cache"
	"github.com/mediawise/factcheck-backend/internal/config"
	"github.com/mediawise/factcheck-backend/internal/http/handlers"
	"github.com/mediawise/factcheck-backend/internal/http/middleware"
	"github.com/mediawise/factcheck-backend/internal/openai"
	"github.com/mediawise/factcheck-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), authentication and
// rate limiting, CORS and security headers, health and metrics endpoints, and
// then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Bearer-token authentication (optional; identity lands in context)
//  9. Rate limiter (per user/IP, keyed by identity when authenticated)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, completer openai.Completer, replyCache cache.Cache, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (OAuth codes and tokens never land
	// in logs; reported-message text stays out because bodies are not logged)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Api-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB; reported messages are text)
	r.Use(limitBody(1 << 20))

	// 6) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", middleware.MarkRateBypass, gin.WrapH(promhttp.Handler()))

	// Dependency injection: services ← repo/db/clients
	authSvc := services.NewAuthService(db, services.AuthOptions{
		FacebookClientID:     cfg.Auth.Facebook.ClientID,
		FacebookClientSecret: cfg.Auth.Facebook.ClientSecret,
		GithubClientID:       cfg.Auth.Github.ClientID,
		GithubClientSecret:   cfg.Auth.Github.ClientSecret,
		GoogleClientID:       cfg.Auth.Google.ClientID,
		GoogleClientSecret:   cfg.Auth.Google.ClientSecret,
		CallbackURL:          cfg.Auth.CallbackURL,
		JWTSecret:            cfg.Auth.JWTSecret,
		TokenTTL:             cfg.Auth.TokenTTL,
		AppID:                cfg.Auth.DefaultApp,
	})

	articleSvc := &services.ArticleService{
		DB:           db,
		MaxTextRunes: cfg.MaxTextRunes,
	}
	replySvc := &services.ReplyService{DB: db, MaxTextRunes: cfg.MaxTextRunes}
	aiSvc := &services.AIReplyService{
		DB:            db,
		Completer:     completer,
		Cache:         replyCache,
		Model:         cfg.OpenAI.Model,
		LoadingWindow: cfg.AIReply.LoadingWindow,
		PollInterval:  cfg.AIReply.PollInterval,
		MaxWait:       cfg.AIReply.MaxWait,
		PromptLocale:  language.Make(cfg.AIReply.PromptLocale),
	}

	// 8) Authenticate bearer tokens when present
	r.Use(middleware.Auth(authSvc))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
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
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
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
	r.GET("/health", middleware.MarkRateBypass, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger UI (opt-in, never in production by default)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(articleSvc, replySvc, aiSvc, authSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Auth
		api.GET("/login/:provider", h.Login)
		api.GET("/callback/:provider", h.Callback)
		api.GET("/me", middleware.RequireAuth(), h.Me)

		// Articles
		api.POST("/articles", h.CreateArticle)
		api.GET("/articles", h.ListArticles)
		api.GET("/articles/:id", h.GetArticle)

		// Replies
		api.GET("/articles/:id/replies", h.ListReplies)
		api.POST("/articles/:id/replies", h.CreateReply)

		// AI replies
		api.POST("/articles/:id/ai-reply", h.RequestAIReply)
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

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

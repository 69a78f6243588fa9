// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, compression, security headers, authentication, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Body caps sized per route: uploads get the upload limit, JSON the small one
//   - All dependencies injected through Services
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/docs"
	"github.com/tbourn/go-page-restore/internal/auth"
	"github.com/tbourn/go-page-restore/internal/config"
	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/http/handlers"
	"github.com/tbourn/go-page-restore/internal/http/middleware"
	"github.com/tbourn/go-page-restore/internal/payments"
	"github.com/tbourn/go-page-restore/internal/repo"
	"github.com/tbourn/go-page-restore/internal/services"
)

// multipartOverhead pads the upload cap for boundaries and form fields.
const multipartOverhead = 1 << 20

// Services bundles what the router mounts. Verifier may be nil, in which case
// only header identity (when enabled) authenticates.
type Services struct {
	DB           *gorm.DB
	Orchestrator *services.Orchestrator
	Ledger       *services.Ledger
	Pricing      *services.Pricing
	Webhooks     *payments.Processor
	Verifier     *auth.Verifier
	Contact      *services.ContactService
}

// idempotencyStore adapts the repository free functions to
// middleware.IdempotencyStore.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Get proxies repo.GetIdempotency, mapping a miss to (nil, nil).
func (s idempotencyStore) Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// Save proxies repo.CreateIdempotency.
func (s idempotencyStore) Save(ctx context.Context, rec domain.Idempotency) error {
	_, err := repo.CreateIdempotency(ctx, s.db, rec, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return middleware.ErrIdempotencyRecordExists
	}
	return err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Security headers, CORS, gzip (not on binary downloads)
//  6. Metrics
//
// and on the API group:
//  7. Auth (provisions the user in the ledger)
//  8. Idempotency (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//
// POST /contact sits in its own group with optional Auth and the same limiter.
func RegisterRoutes(r *gin.Engine, svc Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		QuietPaths:  []string{"/health", "/metrics"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
		HTMLPrefix:   "/swagger/",
	}))
	r.Use(corsMiddleware(cfg.CORS))
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`/download(\.zip)?$`, `^/metrics$`}),
	))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics("/metrics", "/health"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Typed nils must not reach interface fields.
	var (
		authn   middleware.Authenticator
		tokens  handlers.TokenIssuer
		contact handlers.ContactSubmitter
	)
	if svc.Verifier != nil {
		authn = svc.Verifier
		if cfg.Auth.DevLogin {
			tokens = svc.Verifier
		}
	}
	if svc.Contact != nil {
		contact = svc.Contact
	}

	h := handlers.New(handlers.Deps{
		Files:          svc.Orchestrator,
		Credits:        svc.Ledger,
		Pricing:        svc.Pricing,
		Webhooks:       svc.Webhooks,
		Tokens:         tokens,
		Contact:        contact,
		TokenTTL:       cfg.Auth.TokenTTL,
		MaxUploadBytes: cfg.Processing.MaxUploadBytes,
		MaxBatchPages:  cfg.Processing.MaxBatchPages,
	})

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	jsonCap := limitBody(cfg.MaxBodyBytes)

	// Unauthenticated surface
	public := groupWithPrefix(r, apiBase)
	public.POST("/webhooks/lemonsqueezy", jsonCap, h.LemonSqueezyWebhook)
	if tokens != nil {
		public.POST("/auth/dev-token", jsonCap, h.DevToken)
	}

	provision := func(ctx context.Context, id auth.UserIdentity) error {
		_, err := svc.Ledger.EnsureUser(ctx, domain.User{
			ID: id.ID, Email: id.Email, Name: id.Name, Picture: id.Picture,
		})
		return err
	}
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	// Sign-in optional
	if contact != nil {
		open := groupWithPrefix(r, apiBase)
		open.Use(middleware.Auth(authn, middleware.AuthOptions{
			HeaderIdentity: cfg.Auth.HeaderIdentity,
			Optional:       true,
			Provision:      provision,
		}))
		open.Use(rl.Handler())
		open.POST("/contact", jsonCap, h.SubmitContact)
	}

	// Authenticated API
	api := groupWithPrefix(r, apiBase)
	api.Use(middleware.Auth(authn, middleware.AuthOptions{
		HeaderIdentity: cfg.Auth.HeaderIdentity,
		Provision:      provision,
	}))
	api.Use(middleware.Idempotency(middleware.IdempotencyOptions{
		Routes: []string{
			joinRoute(apiBase, "/files/process"),
			joinRoute(apiBase, "/files/:id/retry"),
		},
		MaxLen:  200,
		MaxBody: cfg.MaxBodyBytes,
	}, idempotencyStore{db: svc.DB, ttl: cfg.IdempotencyTTL}))
	api.Use(rl.Handler())
	{
		// Files
		api.POST("/files/upload", limitBody(cfg.Processing.MaxUploadBytes+multipartOverhead), h.UploadFile)
		api.GET("/files", h.ListFiles)
		api.GET("/files/:id", h.GetFile)
		api.DELETE("/files/:id", h.DeleteFile)
		api.GET("/files/:id/download", h.DownloadPage)
		api.GET("/files/:id/download.zip", h.DownloadBundle)
		api.POST("/files/:id/pages/:page/ocr", h.ExtractText)

		// Processing
		api.POST("/files/process", jsonCap, h.ProcessFile)
		api.POST("/files/:id/retry", jsonCap, h.RetryFile)
		api.GET("/files/:id/status", h.FileStatus)

		// Credits
		api.GET("/me", h.Me)
		api.GET("/credits/preview", h.PreviewCost)
		api.GET("/credits/quote", h.QuoteCredits)
		api.GET("/credits/transactions", h.ListTransactions)
	}
}

// corsMiddleware returns the CORS posture: allow every origin without
// credentials when no allowlist is configured, otherwise echo allowed origins.
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Length", "Content-Disposition", "ETag",
			"Retry-After", middleware.HeaderIdempotencyReplayed,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true // AllowCredentials must stay false
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}

// limitBody returns a Gin middleware that caps the request body size to
// maxBytes using http.MaxBytesReader. Requests exceeding the cap will cause
// downstream body reads to error. maxBytes <= 0 disables the cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
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

// joinRoute builds the gin full path of a route mounted under base.
func joinRoute(base, route string) string {
	return strings.TrimRight(base, "/") + route
}

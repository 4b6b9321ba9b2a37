// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
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
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/docs"
	"github.com/tbourn/helloforever-backend/internal/config"
	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/http/handlers"
	"github.com/tbourn/helloforever-backend/internal/http/middleware"
	"github.com/tbourn/helloforever-backend/internal/llm"
	"github.com/tbourn/helloforever-backend/internal/lock"
	"github.com/tbourn/helloforever-backend/internal/notify"
	"github.com/tbourn/helloforever-backend/internal/repo"
	"github.com/tbourn/helloforever-backend/internal/services"
	"github.com/tbourn/helloforever-backend/internal/storage"
)

// recipientRepoShim adapts the repository free functions to the
// services.RecipientRepo interface expected by the RecipientService.
type recipientRepoShim struct{}

func (recipientRepoShim) CreateRecipient(ctx context.Context, db *gorm.DB, r *domain.Recipient) error {
	return repo.CreateRecipient(ctx, db, r)
}

func (recipientRepoShim) GetRecipient(ctx context.Context, db *gorm.DB, id string) (*domain.Recipient, error) {
	return repo.GetRecipient(ctx, db, id)
}

func (recipientRepoShim) CountRecipients(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountRecipients(ctx, db, userID)
}

func (recipientRepoShim) ListRecipientsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Recipient, error) {
	return repo.ListRecipientsPage(ctx, db, userID, offset, limit)
}

func (recipientRepoShim) UpdateRecipient(ctx context.Context, db *gorm.DB, r *domain.Recipient) error {
	return repo.UpdateRecipient(ctx, db, r)
}

func (recipientRepoShim) DeleteRecipient(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteRecipient(ctx, db, id, userID)
}

func (recipientRepoShim) RecipientsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.RecipientsStats(ctx, db, userID)
}

func (recipientRepoShim) DeleteMessagesByRecipient(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	return repo.DeleteMessagesByRecipient(ctx, db, recipientID)
}

func (recipientRepoShim) DeleteConversationsByRecipient(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	return repo.DeleteConversationsByRecipient(ctx, db, recipientID)
}

func (recipientRepoShim) DecrementMessageCount(ctx context.Context, db *gorm.DB, userID string, n int64) error {
	return repo.DecrementMessageCount(ctx, db, userID, n)
}

// External carries the third-party integrations. Any field may be nil when
// its credentials are missing; the affected endpoints then answer 503 (or,
// for Locker, sweeps run without cross-instance exclusion).
type External struct {
	Notifier  notify.Notifier
	Responder llm.Responder
	Presigner storage.Presigner
	Locker    lock.Locker
}

// Services builds the application services shared by the HTTP server and
// the CLI.
func Services(db *gorm.DB, cfg config.Config, ext External) handlers.Deps {
	return handlers.Deps{
		Users:      &services.UserService{DB: db},
		Recipients: services.NewRecipientService(db, recipientRepoShim{}),
		Messages:   &services.MessageService{DB: db, IdempotencyTTL: cfg.IdempotencyTTL},
		Trustees:   &services.TrusteeService{DB: db},
		Conversations: &services.ConversationService{
			DB:              db,
			Responder:       ext.Responder,
			Timeout:         cfg.LLM.Timeout,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		},
		Sweeps:  NewSweepService(db, cfg, ext),
		Uploads: ext.Presigner,
	}
}

// NewSweepService builds the delivery sweep from config.
func NewSweepService(db *gorm.DB, cfg config.Config, ext External) *services.SweepService {
	return &services.SweepService{
		DB:            db,
		Notifier:      ext.Notifier,
		Locker:        ext.Locker,
		LockTTL:       cfg.Sweep.LockTTL,
		NotifyTimeout: cfg.Sweep.NotifyTimeout,
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: read the trusted X-User-ID header
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter and gzip
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, ext External) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Caller identity
	r.Use(middleware.Identity())

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderUserID},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB); media goes straight to storage
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scopes: map[string]string{
				http.MethodPost + " " + joinPath(apiBase, "/messages"): services.IdempotencyScopeMessages,
			},
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP(), "/health", "/metrics")
	r.Use(rl.Handler())

	// 10) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{joinPath(apiBase, "/view/"), joinPath(apiBase, "/conversations")},
		EnablePolicy:    true,
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

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(Services(db, cfg, ext))

	api := groupWithPrefix(r, apiBase)
	{
		// Public: registration is called by the session provider; view links
		// and conversation tokens are capabilities on their own.
		api.POST("/users", h.Register)
		api.GET("/view/:id", h.ViewMessage)
		api.POST("/conversations", h.StartConversation)
		api.POST("/conversations/chat", h.Chat)
		api.GET("/conversations/:token/messages", h.ChatHistory)

		api.POST("/internal/deliveries/sweep", middleware.BearerSecret(cfg.Sweep.CronSecret), h.RunSweep)
	}

	authed := api.Group("", middleware.RequireUser())
	{
		authed.GET("/me", h.Me)
		authed.PUT("/me/plan", h.ChangePlan)

		authed.GET("/trustee", h.GetTrustee)
		authed.PUT("/trustee", h.SetTrustee)

		authed.POST("/recipients", h.CreateRecipient)
		authed.GET("/recipients", h.ListRecipients)
		authed.GET("/recipients/:id", h.GetRecipient)
		authed.PUT("/recipients/:id", h.UpdateRecipient)
		authed.DELETE("/recipients/:id", h.DeleteRecipient)

		authed.POST("/messages", h.CreateMessage)
		authed.GET("/messages", h.ListMessages)
		authed.GET("/messages/:id", h.GetMessage)
		authed.PUT("/messages/:id", h.UpdateMessage)
		authed.DELETE("/messages/:id", h.DeleteMessage)

		authed.POST("/uploads", h.CreateUpload)
	}
}

// corsMiddleware returns the CORS chain: allow-all when no origins are
// configured, otherwise an allowlist that echoes the request Origin.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
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

// joinPath joins the API base with a route, matching gin's FullPath.
func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}

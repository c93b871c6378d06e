// Package api wires together all HTTP routes for the authentication backend.
//
// Route grouping:
//   - /api/v1/auth is the tenant dashboard surface: register, login, token
//     refresh, logout, and email verification. Credential endpoints sit behind
//     a stricter per-IP rate limit; /me requires a bearer token.
//   - /api/v1/service-auth is the end-user surface called by tenant backends.
//     Every route requires "Authorization: AccessKey {id}" and is throttled by
//     the quota stored on the key itself. /me additionally requires a live
//     end-user refresh token via X-Refresh-Token.
//   - /api/v1/api-clients manages access keys and requires a tenant bearer
//     token.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/service-auth/service-auth/internal/api/apikeys"
	"github.com/service-auth/service-auth/internal/api/clientauth"
	"github.com/service-auth/service-auth/internal/api/serviceauth"
	"github.com/service-auth/service-auth/internal/audit"
	"github.com/service-auth/service-auth/internal/auth"
	"github.com/service-auth/service-auth/internal/config"
	"github.com/service-auth/service-auth/internal/db/repositories"
	"github.com/service-auth/service-auth/internal/jobs"
	"github.com/service-auth/service-auth/internal/middleware"
	"github.com/service-auth/service-auth/internal/notifications"
	"github.com/service-auth/service-auth/internal/services"
)

// BackgroundServices holds references to background jobs and resources that
// must be stopped during graceful shutdown. The caller (cmd/server) calls
// Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	sweeper       *jobs.TokenSweeper
	limiter       middleware.Limiter
	auditRecorder *audit.Recorder
	redisClient   *redis.Client
}

// Shutdown stops all background goroutines. It should be called after the
// HTTP server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.sweeper != nil {
		bg.sweeper.Stop()
	}
	if bg.limiter != nil {
		bg.limiter.Close()
	}
	if bg.auditRecorder != nil {
		if err := bg.auditRecorder.Close(); err != nil {
			slog.Error("audit recorder close failed", "error", err)
		}
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Error("redis close failed", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	clientRepo := repositories.NewClientRepository(db)
	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)
	accessKeyRepo := repositories.NewAccessKeyRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	verificationRepo := repositories.NewVerificationRepository(db)

	// Token codec shared by every JWT path
	codec := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	// Audit pipeline: database persistence plus optional external shippers
	shippers, err := audit.NewShippers(cfg.Audit.Shippers)
	if err != nil {
		log.Fatalf("Failed to initialize audit shippers: %v", err)
	}
	auditRecorder := audit.NewRecorder(auditRepo, shippers, slog.Default())

	// Outbound email for verification links
	mailer := notifications.NewMailer(&cfg.Notifications, slog.Default())
	verificationBaseURL := cfg.Notifications.VerificationBaseURL
	if verificationBaseURL == "" {
		verificationBaseURL = cfg.Server.GetPublicURL()
	}

	// Initialize services
	authService := services.NewAuthService(clientRepo, tokenRepo, codec)
	userService := services.NewUserService(userRepo, tokenRepo, codec, auditRecorder)
	accessKeyService := services.NewAccessKeyService(accessKeyRepo)
	verificationService := services.NewVerificationService(clientRepo, userRepo, verificationRepo, mailer, verificationBaseURL)

	// Rate limiting backend: Redis when configured, in-process otherwise
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	limiter := middleware.NewLimiter(redisClient)

	// Expired credential sweeper
	sweeper := jobs.NewTokenSweeper(tokenRepo, verificationRepo,
		time.Duration(cfg.Jobs.TokenSweepIntervalHours)*time.Hour)
	sweeper.Start(context.Background())

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	// Handler packages
	clientAuthHandlers := clientauth.NewHandlers(authService, verificationService, clientRepo)
	serviceAuthHandlers := serviceauth.NewHandlers(userService, verificationService)
	apiKeyHandlers := apikeys.NewHandlers(accessKeyService, clientRepo)

	bearerAuth := middleware.BearerAuthMiddleware(codec, tokenRepo)

	authQuota := middleware.PerMinute(cfg.Security.RateLimiting.AuthRequestsPerMinute)
	var credentialLimit gin.HandlerFunc
	if cfg.Security.RateLimiting.Enabled {
		credentialLimit = middleware.IPRateLimitMiddleware(limiter, authQuota)
	} else {
		credentialLimit = func(c *gin.Context) { c.Next() }
	}

	// Tenant dashboard surface
	authGroup := router.Group("/api/v1/auth")
	{
		authGroup.POST("/register", credentialLimit, clientAuthHandlers.Register)
		authGroup.POST("/login", credentialLimit, clientAuthHandlers.Login)
		authGroup.POST("/refresh", credentialLimit, clientAuthHandlers.Refresh)
		authGroup.POST("/logout", clientAuthHandlers.Logout)
		authGroup.POST("/send-verification-email", credentialLimit, clientAuthHandlers.SendVerificationEmail)
		authGroup.POST("/verify-email", credentialLimit, clientAuthHandlers.VerifyEmail)
		authGroup.GET("/me", bearerAuth, clientAuthHandlers.Me)
	}

	// End-user surface, called by tenant backends holding an access key
	serviceGroup := router.Group("/api/v1/service-auth")
	serviceGroup.Use(middleware.AccessKeyMiddleware(accessKeyService))
	if cfg.Security.RateLimiting.Enabled {
		serviceGroup.Use(middleware.AccessKeyRateLimitMiddleware(limiter))
	}
	{
		serviceGroup.POST("/register", serviceAuthHandlers.Register)
		serviceGroup.POST("/login", serviceAuthHandlers.Login)
		serviceGroup.POST("/refresh-token", serviceAuthHandlers.Refresh)
		serviceGroup.POST("/logout", serviceAuthHandlers.Logout)
		serviceGroup.POST("/profile", serviceAuthHandlers.Profile)
		serviceGroup.POST("/send-verification-email", serviceAuthHandlers.SendVerificationEmail)
		serviceGroup.POST("/verify-email", serviceAuthHandlers.VerifyEmail)
	}

	// /me needs the end-user refresh token on top of the access key, so it
	// carries its own middleware chain instead of the group's.
	meChain := []gin.HandlerFunc{
		middleware.AccessKeyWithRefreshTokenMiddleware(accessKeyService, codec, tokenRepo),
	}
	if cfg.Security.RateLimiting.Enabled {
		meChain = append(meChain, middleware.AccessKeyRateLimitMiddleware(limiter))
	}
	router.GET("/api/v1/service-auth/me", append(meChain, serviceAuthHandlers.Me)...)

	// Access key management, tenant bearer token required
	keysGroup := router.Group("/api/v1/api-clients")
	keysGroup.Use(bearerAuth)
	{
		keysGroup.POST("", apiKeyHandlers.Create)
		keysGroup.GET("", apiKeyHandlers.List)
		keysGroup.DELETE("/:access_key_id", apiKeyHandlers.Delete)
	}

	background := &BackgroundServices{
		sweeper:       sweeper,
		limiter:       limiter,
		auditRecorder: auditRecorder,
		redisClient:   redisClient,
	}
	return router, background
}

// @Summary      Health check
// @Description  Returns the health status of the service. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Refresh-Token")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

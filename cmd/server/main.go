package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/cache"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/config"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/database"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/errors"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/evaluation"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/middleware"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/monitoring"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/ratelimit"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/scoring"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/security"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/stats"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

func main() {
	cfg := config.Load()

	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	gin.SetMode(cfg.GinMode)

	// Initialize database and repository
	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		appErr := errors.NewConfigurationError("database initialization failed, check DATA_DIR", err)
		slog.Error("Failed to initialize database", "error", appErr.Error())
		os.Exit(1)
	}
	defer errors.SafeClose(db, "database")

	repo := database.NewRepository(db)

	// Domain services share the repository as their store
	aggregator := scoring.NewAggregator(repo)
	evaluationService := evaluation.NewService(repo)
	statsService := stats.NewService(repo, cfg.StatsCacheTTL)

	// Initialize monitoring system
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()
	appLogger.SetLevel(cfg.LogLevel)

	// Rate limiting: Redis-backed when configured, in-memory otherwise
	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPoolSize)
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting falls back to in-memory", "error", err)
	}
	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	r := gin.New()

	// Monitoring middleware first to capture all requests
	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(monitoring.SecurityMonitoringMiddleware(appLogger))
	r.Use(monitoring.HealthMonitoringMiddleware(appMetrics))

	// Error handling middleware
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(security.SecurityHeadersMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.Use(limiter.IPRateLimitMiddleware())
	r.Use(middleware.JWTAuth(cfg.JWTSecret))
	r.Use(limiter.EvaluatorRateLimitMiddleware())

	// Response cache for KPI reads. Installed after auth so a warmed
	// entry is never served to a caller the token check would reject.
	appCache := cache.NewCache(cfg.CacheTTL)
	r.Use(appCache.Middleware(appMetrics, appLogger))

	// Metrics endpoint
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	// Cache stats endpoints
	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	r.GET("/stats/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, statsService.CacheStats())
	})

	// Rate limit status endpoint
	r.GET("/ratelimit/status", limiter.HandleRateLimitStatus())

	// Manual rate limit resets, restricted to directorate roles
	admin := r.Group("/admin/ratelimit", middleware.RequireRole(types.RoleDirector, types.RoleDeputyDirector))
	admin.POST("/invalidate/evaluator/:userID", limiter.HandleAdminInvalidateEvaluator())
	admin.POST("/invalidate/ip/:ip", limiter.HandleAdminInvalidateIP())
	admin.POST("/invalidate", limiter.HandleAdminInvalidateAll())

	// Connection pool stats endpoints
	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "database",
			"stats": db.GetPoolStats(),
		})
	})

	r.GET("/pools/redis", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":    "redis",
			"healthy": redisClient.HealthCheck(c.Request.Context()) == nil,
			"stats":   redisClient.GetPoolStats(),
		})
	})

	// Per-user KPI over an optional reporting window
	r.GET("/kpi/user/:id", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		period, appErr := parsePeriod(c)
		if appErr != nil {
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		userID := c.Param("id")
		if _, err := repo.GetUser(ctx, userID); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		start := time.Now()
		result, err := aggregator.ForUser(ctx, userID, period)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appMetrics.AddTasksScored(result.TaskCount)
		appMetrics.AddAssignmentsSkipped(len(result.Skipped))
		appLogger.ScoreLogger("user", userID, result.TaskCount, len(result.Skipped),
			result.AverageScore, time.Since(start), c.GetBool("cache_hit"))

		c.JSON(http.StatusOK, result)
	})

	// Department-wide ranked statistics
	r.GET("/kpi/department/:id",
		limiter.EndpointRateLimitMiddleware("department_stats", 30),
		func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
			defer cancel()

			period, appErr := parsePeriod(c)
			if appErr != nil {
				errors.LogError(c, appErr)
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}

			limit := 50
			if limitStr := c.Query("limit"); limitStr != "" {
				if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
					limit = l
				}
			}

			departmentID := c.Param("id")
			start := time.Now()
			result, err := statsService.ForDepartment(ctx, departmentID, period, limit)
			if err != nil {
				appErr := errors.ToAppError(err)
				errors.LogError(c, appErr)
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}

			appMetrics.AddAssignmentsSkipped(len(result.Skipped))
			appLogger.ScoreLogger("department", departmentID, len(result.Standings),
				len(result.Skipped), 0, time.Since(start), c.GetBool("cache_hit"))

			c.JSON(http.StatusOK, result)
		})

	// Resolved evaluator for one assignment
	r.GET("/tasks/:taskId/assignments/:assignmentId/evaluator", func(c *gin.Context) {
		evaluator, err := evaluationService.Evaluator(c.Request.Context(), c.Param("taskId"), c.Param("assignmentId"))
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		if evaluator == nil {
			// Directors have nobody above them; that is an answer, not
			// an error.
			c.JSON(http.StatusOK, gin.H{"evaluator": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"evaluator": evaluator})
	})

	r.GET("/tasks/:taskId/assignments/:assignmentId/evaluation", func(c *gin.Context) {
		ev, err := evaluationService.Get(c.Request.Context(), c.Param("taskId"), c.Param("assignmentId"))
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, ev)
	})

	r.PUT("/tasks/:taskId/assignments/:assignmentId/evaluation", func(c *gin.Context) {
		var req evaluation.SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid request body")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		req.TaskID = c.Param("taskId")
		req.AssignmentID = c.Param("assignmentId")

		// With auth enabled the token identity wins over the body
		if userID, exists := c.Get("user_id"); exists {
			if userIDStr, ok := userID.(string); ok {
				req.EvaluatorID = userIDStr
			}
		}

		ev, err := evaluationService.Submit(c.Request.Context(), req)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appMetrics.IncrementEvaluationsSubmitted()
		c.JSON(http.StatusOK, ev)
	})

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	errors.SafeClose(redisClient, "redis")

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// parsePeriod reads an optional reporting window from the query string.
// Both bounds or neither must be present.
func parsePeriod(c *gin.Context) (*scoring.Period, *errors.AppError) {
	startStr := c.Query("periodStart")
	endStr := c.Query("periodEnd")

	if startStr == "" && endStr == "" {
		return nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, errors.NewValidationError("periodStart and periodEnd must be provided together")
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return nil, errors.NewValidationError("periodStart must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return nil, errors.NewValidationError("periodEnd must be RFC3339")
	}
	if end.Before(start) {
		return nil, errors.NewValidationError("periodEnd must not precede periodStart")
	}

	return &scoring.Period{Start: start, End: end}, nil
}

package httpapi

import (
	"net/http"
	"time"

	"dispatchsim/internal/config"
	"dispatchsim/internal/logging"
	"dispatchsim/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterConfig holds the dependencies SetupRouter needs, grounded on
// the teacher's internal/router.RouterConfig shape, trimmed to the
// control plane this spec actually calls for: submit/fetch evaluation
// runs, health, metrics (spec §1 non-goals exclude CLI/persistence/
// config-loading from the core, but the ambient HTTP surface around it
// still follows the teacher's conventions).
type RouterConfig struct {
	Config     *config.Config
	Logger     *logging.Logger
	Evaluations *EvaluationsHandler
	Registry   *prometheus.Registry
}

// SetupRouter configures and returns the Gin engine with all routes and
// middleware (teacher: internal/router/router.go's SetupRouter).
func SetupRouter(cfg *RouterConfig) *gin.Engine {
	gin.SetMode(cfg.Config.Server.Mode)

	router := gin.New()

	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		cfg.Logger.LogError(nil, "http", "panic_recovery", logging.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
			"panic":  recovered,
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "An unexpected error occurred",
		})
	}))

	router.Use(func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	})

	router.Use(middleware.LoggingMiddleware(cfg.Logger, cfg.Config.Logging.SkipPaths, cfg.Config.Logging.SkipUserAgents))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityMiddleware())
	router.Use(middleware.TimeoutMiddleware(cfg.Config.Server.WriteTimeout))
	router.Use(middleware.ValidationMiddleware())
	router.Use(middleware.ErrorHandlingMiddleware(cfg.Logger))
	if cfg.Config.Server.Mode == "release" {
		router.Use(middleware.RateLimitMiddleware())
	}

	setupHealthRoutes(router)
	setupSwaggerRoutes(router)

	if cfg.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		evalRoutes := v1.Group("/evaluations")
		{
			evalRoutes.POST("", cfg.Evaluations.Submit)
			evalRoutes.GET("", middleware.CacheMiddleware(5*time.Second), cfg.Evaluations.List)
			evalRoutes.GET("/:id", middleware.CacheMiddleware(5*time.Second), cfg.Evaluations.Get)
		}
	}

	return router
}

// setupSwaggerRoutes serves the interactive API docs: a static spec at
// /swagger.json (see docs.go) and the swagger-ui bundle at /swagger/*any,
// wired through gin-swagger/swaggo-files rather than the teacher's JSON
// placeholder of the same name. The spec lives outside the /swagger/
// prefix because gin's router rejects a literal sibling route under a
// path that also registers a *any catch-all.
func setupSwaggerRoutes(router *gin.Engine) {
	router.GET("/swagger.json", serveSwaggerDoc)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger.json")))
}

func setupHealthRoutes(router *gin.Engine) {
	health := router.Group("/health")
	{
		health.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC(), "service": "dispatchsim"})
		})
		health.GET("/live", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now().UTC()})
		})
		health.GET("/ready", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now().UTC()})
		})
	}
}

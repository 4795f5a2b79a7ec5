// Package middleware provides the Gin HTTP middleware used by
// internal/httpapi, carried over close to verbatim from the teacher
// (internal/middleware/middleware.go) since logging/CORS/security/rate
// limiting are domain-agnostic ambient concerns (spec SPEC_FULL §4
// ambient stack note).
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"dispatchsim/internal/logging"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LoggingMiddleware creates a middleware for request logging with configurable filtering
func LoggingMiddleware(logger *logging.Logger, skipPaths []string, skipUserAgents []string) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		for _, skipPath := range skipPaths {
			if strings.Contains(param.Path, skipPath) {
				return ""
			}
		}

		userAgent := param.Request.UserAgent()
		for _, skipUA := range skipUserAgents {
			if strings.Contains(userAgent, skipUA) {
				return ""
			}
		}

		requestID := ""
		if param.Keys != nil {
			if id, exists := param.Keys["request_id"]; exists {
				if idStr, ok := id.(string); ok {
					requestID = idStr
				}
			}
		}

		logger.LogHTTPRequest(
			param.Method,
			param.Path,
			userAgent,
			requestID,
			param.StatusCode,
			param.Latency.Milliseconds(),
			logging.Fields{
				"client_ip": param.ClientIP,
				"body_size": param.BodySize,
			},
		)

		return ""
	})
}

// CORSMiddleware creates a middleware for handling CORS
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimitMiddleware creates a middleware for per-client-IP rate limiting
func RateLimitMiddleware() gin.HandlerFunc {
	var (
		mu       sync.RWMutex
		limiters = make(map[string]*rate.Limiter)
	)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			mu.Lock()
			if len(limiters) > 1000 {
				limiters = make(map[string]*rate.Limiter)
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		mu.RLock()
		limiter, exists := limiters[clientIP]
		mu.RUnlock()

		if !exists {
			limiter = rate.NewLimiter(rate.Every(time.Minute/100), 10)
			mu.Lock()
			limiters[clientIP] = limiter
			mu.Unlock()
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SecurityMiddleware creates a middleware for basic security headers
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")

		c.Next()
	}
}

// TimeoutMiddleware creates a middleware for request timeout
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		finish := make(chan struct{})
		go func() {
			c.Next()
			finish <- struct{}{}
		}()

		select {
		case <-time.After(timeout):
			c.JSON(http.StatusRequestTimeout, gin.H{
				"error":   "Request timeout",
				"message": "The request took too long to process",
			})
			c.Abort()
		case <-finish:
		}
	}
}

// ValidationMiddleware creates a middleware for request validation
func ValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" {
			contentType := c.GetHeader("Content-Type")
			if contentType != "" && contentType != "application/json" {
				c.JSON(http.StatusUnsupportedMediaType, gin.H{
					"error":   "Unsupported media type",
					"message": "Content-Type must be application/json",
				})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// CacheMiddleware creates a middleware for response caching
func CacheMiddleware(maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" {
			c.Header("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
		} else {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		}

		c.Next()
	}
}

// ErrorHandlingMiddleware creates a middleware for centralized error handling
func ErrorHandlingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			logger.LogError(err, "http", "request_processing", logging.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
				"ip":     c.ClientIP(),
			})

			switch err.Type {
			case gin.ErrorTypeBind:
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "Bad request",
					"message": "Invalid request format",
				})
			case gin.ErrorTypePublic:
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal server error",
					"message": err.Error(),
				})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal server error",
					"message": "An unexpected error occurred",
				})
			}
		}
	}
}

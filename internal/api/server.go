// Package api serves the latest scan results, favorites and a run trigger
// over HTTP.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a gin engine with all routes configured.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger())
	r.Use(gin.Recovery())

	setupRoutes(r, handler)
	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.HealthCheck)

	r.GET("/listings", handler.ListListings)
	r.POST("/run", handler.TriggerRun)
	r.GET("/runs/latest", handler.LatestRun)

	r.GET("/favorites", handler.ListFavorites)
	r.POST("/favorites", handler.AddFavorite)
	r.DELETE("/favorites/:source/:id", handler.RemoveFavorite)

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// requestLogger writes one slog record per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			attrs = append(attrs, "error", msg)
		}
		switch {
		case c.Writer.Status() >= 500:
			slog.Error("HTTP request", attrs...)
		case c.Writer.Status() >= 400:
			slog.Warn("HTTP request", attrs...)
		default:
			slog.Info("HTTP request", attrs...)
		}
	}
}

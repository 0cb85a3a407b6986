package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// DefaultOpenAPIPath is where the OpenAPI document is read from, relative to the working directory.
const DefaultOpenAPIPath = "docs/openapi.yaml"

// RegisterGinRoutes registers the record API, health endpoints and Swagger UI on engine.
// openAPIPath may be empty to use DefaultOpenAPIPath.
func RegisterGinRoutes(engine *gin.Engine, handler *Handler, logger Logger, authenticator Authenticator, openAPIPath string) {
	if openAPIPath == "" {
		openAPIPath = DefaultOpenAPIPath
	}

	// CORS middleware allows cross-origin requests and handles preflight
	cors := func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization,Content-Type,Accept,Origin")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}

	// Register CORS globally so preflight requests are handled before auth
	engine.Use(cors)

	logging := func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(
			"http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}

	auth := func(c *gin.Context) {
		if !authenticator.Authenticate(bearerToken(c.GetHeader("Authorization"))) {
			logger.Warn("authentication failed", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		c.Next()
	}

	v1 := engine.Group("/api/v1")
	v1.Use(logging, auth)

	v1.GET("/streams", gin.WrapF(handler.ListStreams))
	v1.GET("/streams/:id/records", gin.WrapF(handler.QueryStreamRecords))
	v1.GET("/records", gin.WrapF(handler.QueryRecords))

	// Health endpoints without auth
	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	engine.GET("/ready", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ready"}) })

	engine.GET("/openapi.yaml", func(c *gin.Context) {
		path := openAPIPath
		if !filepath.IsAbs(path) {
			pwd, err := os.Getwd()
			if err != nil {
				logger.Error("failed to get working directory", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			path = filepath.Join(pwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read OpenAPI file", "path", path, "error", err)
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "application/x-yaml", data)
	})

	// Swagger UI that points to the /openapi.yaml endpoint
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/openapi.yaml")))
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

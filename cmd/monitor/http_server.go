package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polychat-monitor/internal/monitor"
)

func startHTTPServer(port string, mon *monitor.Monitor, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	monitor.RegisterRoutes(engine, mon)

	srvHTTP := &http.Server{
		Addr:    ":" + port,
		Handler: engine,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", ":"+port)
		if err := srvHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()
	return srvHTTP
}

func shutdownHTTPServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	} else {
		logger.Info("http server shutdown gracefully")
	}
}

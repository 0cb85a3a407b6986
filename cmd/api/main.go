package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polychat-monitor/internal/api"
	"github.com/polychat-monitor/internal/common"
	"github.com/polychat-monitor/internal/storage"
)

func main() {
	logger := common.NewLogger(os.Stdout)

	port := common.GetEnv("API_PORT", "8081")
	defaultLimit := common.GetEnvInt("DEFAULT_PAGE_SIZE", 100)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoStore, err := storage.NewMongoStore(ctx,
		common.GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		common.GetEnv("MONGODB_DATABASE", "polychat"),
		common.GetEnv("MONGO_COLLECTION", "records"),
	)
	cancel()
	if err != nil {
		logger.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	store := api.NewMongoAdapter(mongoStore)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			logger.Warn("failed to close MongoDB", "error", err)
		}
	}()

	handler := api.NewHandler(store, logger, api.NewStringSorter(), defaultLimit)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterGinRoutes(engine, handler, logger,
		api.NewTokenAuthenticator(common.GetEnv("AUTH_TOKEN", "")),
		common.GetEnv("OPENAPI_PATH", api.DefaultOpenAPIPath),
	)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: engine,
	}
	go func() {
		logger.Info("starting record API", "addr", srv.Addr, "default_page_size", defaultLimit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}

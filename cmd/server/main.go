package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/jwtauth"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/api"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	serverConfig, err := config.Load()
	if err != nil {
		logger.Error("failed to load server configuration", "err", err)
		os.Exit(1)
	}

	svc, err := serverConfig.BuildService()
	if err != nil {
		logger.Error("failed to build service", "err", err)
		os.Exit(1)
	}

	if serverConfig.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	tokenAuth := jwtauth.New("HS256", []byte(serverConfig.JWTSecret), nil)

	handler := api.NewHandler(svc, tokenAuth, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: handler.Routes(),
	}

	// Background sweep of abandoned upload sessions.
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	reaper := videosub.NewReaper(svc, 0, logger)
	go reaper.Run(reaperCtx)

	go func() {
		logger.Info("video submission server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"store", serverConfig.StoreType)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	stopReaper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}

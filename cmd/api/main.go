package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-frontier/internal/api"
	"portfolio-frontier/internal/api/middleware"
	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/data"
	"portfolio-frontier/internal/logger"
	"portfolio-frontier/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	log, err := logger.Init(logger.FromEnv())
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbPath := storage.DefaultPath()
	store, err := storage.Open(dbPath)
	if err != nil {
		log.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	universeDir := config.DefaultUniverseDir()
	if info, err := os.Stat(universeDir); err != nil || !info.IsDir() {
		log.Warn("universe directory not found", "dir", universeDir, "error", err)
	}

	router := api.NewRouter(api.Options{
		Store:       store,
		Prices:      data.NewYahooClient(os.Getenv("YAHOO_BASE_URL")),
		UniverseDir: universeDir,
		CORS:        middleware.CORSOptions(),
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting API server", "addr", srv.Addr, "db", dbPath, "universes", universeDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

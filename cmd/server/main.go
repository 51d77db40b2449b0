package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/handler"
	"portfolio/internal/handler/sse"
	"portfolio/internal/middleware"
	"portfolio/internal/repository"
	portfolio "portfolio/internal/service/portfolio"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// sessionSweepInterval is how often idle explorer sessions are evicted
const sessionSweepInterval = time.Minute

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"directory_backend", cfg.DirectoryBackend,
	)

	explorerCfg, err := config.LoadExplorerConfig(cfg.ExplorerConfigPath)
	if err != nil {
		log.Fatalf("Failed to load explorer config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory, closeDirectory, err := repository.OpenDirectory(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open directory backend: %v", err)
	}
	defer closeDirectory()

	services := portfolio.SetupServices(directory, cfg, explorerCfg, logger)

	sessions := portfolio.NewSessionStore(services.NewExplorer, cfg.SessionIdleTimeout, logger)
	go sessions.Run(ctx, sessionSweepInterval)

	directoryHandler := handler.NewDirectoryHandler(directory, services.Validator, logger)
	explorerHandler := handler.NewExplorerHandler(sessions, services.Uploads, sse.DefaultConfig(), cfg.UploadMaxBatch, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, directoryHandler, explorerHandler)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestLogger → Recovery → Routes
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestLogger(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Last-Event-ID", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams and large uploads
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

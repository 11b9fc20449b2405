package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qninhdt/crew-dialogue/server/internal/api"
	"github.com/qninhdt/crew-dialogue/server/internal/config"
	"github.com/qninhdt/crew-dialogue/server/internal/db"
	"github.com/qninhdt/crew-dialogue/server/internal/logger"
	mw "github.com/qninhdt/crew-dialogue/server/internal/middleware"
	"github.com/qninhdt/crew-dialogue/server/internal/observability"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
)

const serviceName = "crew-dialogue"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, observability.Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Tracing.Environment,
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		logg.Fatal("Failed to initialize tracing", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logg.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	library, err := loadCorpus(cfg.CorpusPath)
	if err != nil {
		logg.Fatal("Failed to load template corpus", "error", err)
	}
	logg.Info("Template corpus loaded", "version", library.Version(), "templates", library.Len())

	// Initialize database
	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		logg.Fatal("Failed to initialize database", "path", cfg.DBPath, "error", err)
	}
	defer database.Close()

	auth, err := mw.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logg.Fatal("Failed to initialize auth", "error", err)
	}

	// Create API server
	server := api.NewServer(database, library, auth, api.Config{
		Dialogue:          cfg.Dialogue,
		InitialRapport:    &cfg.InitialRapport,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	},
		api.WithLogger(logg),
		api.WithTracer(tp.Tracer(serviceName)),
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("Starting server", "addr", httpServer.Addr, "tracing", tp.IsEnabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("Server error", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("Server shutdown failed", "error", err)
	}
}

func loadCorpus(path string) (*templates.Library, error) {
	if path == "" {
		return templates.Default()
	}
	return templates.LoadFile(path)
}

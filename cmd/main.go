package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/config"
	"github.com/bracketforge/bracketforge/db"
	"github.com/bracketforge/bracketforge/events"
	"github.com/bracketforge/bracketforge/handlers"
	"github.com/bracketforge/bracketforge/repositories"
	"github.com/bracketforge/bracketforge/routes"
	"github.com/bracketforge/bracketforge/services"
	"github.com/bracketforge/bracketforge/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	tournamentRepo := repositories.NewMemoryTournamentRepository()
	teamRepo := repositories.NewMemoryTeamRepository()
	regRepo := repositories.NewMemoryRegistrationRepository()
	metadataRepo := repositories.NewMemoryMetadataRepository()

	var snapshots repositories.SnapshotRepository
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL, 10*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()

		snapshots, err = repositories.NewPostgresSnapshotRepository(ctx, database)
		if err != nil {
			logger.Error("failed to prepare snapshot store", "error", err)
			os.Exit(1)
		}

		if err := restoreSnapshots(ctx, snapshots, tournamentRepo, teamRepo); err != nil {
			logger.Error("failed to restore snapshots", "error", err)
			os.Exit(1)
		}
		logger.Info("snapshots restored")
	} else {
		logger.Warn("DATABASE_URL not set, running without durable snapshots")
	}

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize media storage", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("media storage not configured, banner uploads disabled")
	}

	bus := events.NewChannel()
	bracket := brackets.NewMemoryEngine()
	locks := services.NewAggregateLocks()

	hub := brackets.NewHub()
	go hub.Run()
	detachRelay := hub.RelayEvents(bus)
	defer detachRelay()

	tournamentService := services.NewTournamentService(
		tournamentRepo, teamRepo, regRepo, metadataRepo,
		bracket, snapshots, uploader, bus, locks, logger,
	)
	registrationService := services.NewRegistrationService(
		regRepo, teamRepo, tournamentRepo, tournamentService,
		snapshots, bus, locks, logger,
	)
	matchService := services.NewMatchService(
		tournamentService, teamRepo, bracket, bus, locks, logger,
	)
	metadataService := services.NewMetadataService(metadataRepo, tournamentService, bus)

	jwtSecret := []byte(cfg.JWTSecretKey)
	router := routes.InitRoutes(routes.Handlers{
		Auth:          handlers.NewAuthHandler(jwtSecret, cfg.AdminEmail, cfg.AdminPasswordHash),
		Tournaments:   handlers.NewTournamentHandler(tournamentService),
		Registrations: handlers.NewRegistrationHandler(registrationService),
		Matches:       handlers.NewMatchHandler(matchService, metadataService),
		WebSocket:     handlers.NewWebSocketHandler(hub, tournamentService),
	}, jwtSecret)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit

		logger.Info("shutting down server", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	if err := <-shutdownErr; err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func restoreSnapshots(
	ctx context.Context,
	snapshots repositories.SnapshotRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
) error {
	tournaments, err := snapshots.LoadTournaments(ctx)
	if err != nil {
		return fmt.Errorf("load tournaments: %w", err)
	}
	if err := tournamentRepo.Restore(ctx, tournaments); err != nil {
		return fmt.Errorf("restore tournaments: %w", err)
	}

	teams, err := snapshots.LoadTeams(ctx)
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}
	if err := teamRepo.Restore(ctx, teams); err != nil {
		return fmt.Errorf("restore teams: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"teamboard/backend/internal/config"
	"teamboard/backend/internal/db"
	"teamboard/backend/internal/handler"
	"teamboard/backend/internal/heartbeat"
	"teamboard/backend/internal/logging"
	"teamboard/backend/internal/realtime"
	"teamboard/backend/internal/repository"
	"teamboard/backend/internal/router"
	"teamboard/backend/internal/service"
)

func main() {
	// Best-effort: a missing .env means real env vars or defaults.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(database)
	entryRepo := repository.NewEntryRepository(database)
	auditRepo := repository.NewAuditRepository(database)
	dayEndRepo := repository.NewDayEndRepository(database)

	hub := realtime.NewHub(logger)
	auditRecorder := service.NewAuditRecorder(auditRepo, logger)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	timerService := service.NewTimerService(entryRepo, userRepo, dayEndRepo, auditRecorder, hub, logger)
	analyticsService := service.NewAnalyticsService(entryRepo)

	// When a user's last live connection drops, close out their day.
	hub.OnLastDisconnect(timerService.HandleDisconnect)

	broadcaster := heartbeat.New(timerService, hub, logger, cfg.HeartbeatInterval)
	broadcaster.Start()
	defer broadcaster.Stop()

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)

	engine := router.New(authService, authHandler, timerHandler, analyticsHandler, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

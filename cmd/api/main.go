package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/websqlsentinel/sentinel/internal/auth"
	"github.com/websqlsentinel/sentinel/internal/background"
	"github.com/websqlsentinel/sentinel/internal/classifier"
	"github.com/websqlsentinel/sentinel/internal/config"
	"github.com/websqlsentinel/sentinel/internal/database"
	"github.com/websqlsentinel/sentinel/internal/handlers"
	middlewareCustom "github.com/websqlsentinel/sentinel/internal/middleware"
	"github.com/websqlsentinel/sentinel/internal/repositories"
	"github.com/websqlsentinel/sentinel/internal/routes"
	"github.com/websqlsentinel/sentinel/internal/services"
	pkghttp "github.com/websqlsentinel/sentinel/pkg/http"
	pkglogger "github.com/websqlsentinel/sentinel/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Run database migrations
	if err := database.Migrate(cfg.Database.DSN()); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Load the classification model. The server refuses to start without a
	// working scorer: every login evaluation depends on it.
	model, err := classifier.LoadModel(cfg.Classifier.ModelPath)
	if err != nil {
		logger.Error("failed to load classifier model",
			slog.String("path", cfg.Classifier.ModelPath),
			slog.Any("error", err))
		os.Exit(1)
	}

	scorer, err := classifier.NewModelScorer(model, logger)
	if err != nil {
		logger.Error("failed to initialize scorer", slog.Any("error", err))
		os.Exit(1)
	}

	attemptClassifier := classifier.NewAttemptClassifier(scorer)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	blockedIPRepo := repositories.NewBlockedIPRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)

	// Alert dispatch
	var alertService services.AlertService
	if cfg.Email.Enabled {
		sesAlerts, err := services.NewAWSSESAlertService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize alert service", slog.Any("error", err))
			os.Exit(1)
		}
		alertService = sesAlerts
	} else {
		alertService = services.NewLogOnlyAlertService(logger)
	}

	// Initialize services
	blocklistService := services.NewBlocklistService(blockedIPRepo, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger, auditLogger)
	activityService := services.NewActivityService(attemptRepo, blocklistService, logger)
	loginService := services.NewLoginService(
		userRepo,
		attemptRepo,
		blocklistService,
		attemptClassifier,
		alertService,
		tokenManager,
		logger,
		auditLogger,
	)

	// Background sweeper for expired blocklist entries
	sweeper := background.NewBlocklistSweeper(blockedIPRepo, logger, cfg.Blocklist.SweepInterval)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(loginService, userService, ipConfig)
	activityHandler := handlers.NewActivityHandler(activityService)
	blocklistHandler := handlers.NewBlocklistHandler(blocklistService)

	// Setup router
	// chi's RealIP middleware is deliberately absent: it would rewrite
	// RemoteAddr from spoofable headers with no trust check, letting a blocked
	// client pick its own identity. For gating and blocking decisions,
	// ExtractClientIP resolves the client address against the trusted-proxy
	// CIDRs instead.
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))
	router.Use(middlewareCustom.BlockedIPGate(blocklistService, ipConfig, logger))

	// Register routes
	router.Route("/api/v1", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, activityHandler, blocklistHandler, tokenManager)
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	// In-flight alert emails finish before exit
	loginService.WaitForAlerts()

	logger.Info("server stopped gracefully")
}

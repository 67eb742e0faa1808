package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/homesentry/homesentry/internal/alerts"
	"github.com/homesentry/homesentry/internal/collectors"
	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/handlers"
	"github.com/homesentry/homesentry/internal/middleware"
	"github.com/homesentry/homesentry/internal/migration"
	"github.com/homesentry/homesentry/internal/notification"
	"github.com/homesentry/homesentry/internal/repository"
	"github.com/homesentry/homesentry/internal/routes"
	"github.com/homesentry/homesentry/internal/scheduler"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config *config.Config
	db     *sql.DB
	logger zerolog.Logger
	engine *alerts.Engine
	sched  *scheduler.Scheduler
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
	}

	// Wire the alerting pipeline and the collection scheduler.
	app.initAlerting(logger)

	schedCtx, cancelSched := context.WithCancel(context.Background())
	go app.sched.Run(schedCtx)

	// Initialize the HTTP router and middleware.
	router := app.initRouter()
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(corsOrigins(cfg.API.CORSOrigins)),
		h.AllowedMethods([]string{"GET", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, cancelSched, logger)

	logger.Info().Msg("Application terminated.")
}

// initAlerting builds the alert engine and the scheduler with every enabled
// collector registered. A collector that fails to initialize disables itself
// with a warning instead of taking the whole agent down.
func (app *application) initAlerting(logger zerolog.Logger) {
	eventRepo := repository.NewEventRepository(app.db)
	sleepRepo := repository.NewSleepEventRepository(app.db)

	grace := alerts.NewGraceTracker(app.config.Alerting.GraceChecks, logger)
	maintenance := alerts.NewMaintenancePolicy(app.config.Maintenance, logger)
	sleep := alerts.NewSleepPolicy(app.config.Sleep, logger)

	var notifier notification.Notifier
	if app.config.Alerting.WebhookURL != "" {
		discord, err := notification.NewDiscordNotifier(app.config.Alerting.WebhookURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to configure webhook notifier")
		}
		notifier = discord
	} else {
		logger.Warn().Msg("No webhook URL configured, alerts will not be delivered")
	}

	app.engine = alerts.NewEngine(
		app.config.Alerting,
		eventRepo,
		sleepRepo,
		grace,
		maintenance,
		sleep,
		notifier,
		logger,
	)

	sched := scheduler.New(
		app.config.Scheduler,
		app.engine,
		sleep,
		notifier,
		sleepRepo,
		eventRepo,
		logger,
	)

	cc := app.config.Collectors
	sched.RegisterBase(collectors.NewSystemCollector(cc, logger))
	if len(cc.Services) > 0 {
		sched.RegisterBase(collectors.NewServiceCollector(cc.Services, logger))
	}
	if cc.DockerEnabled {
		docker, err := collectors.NewDockerCollector(logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Docker collector disabled, cannot reach the Docker daemon")
		} else {
			sched.RegisterBase(docker)
		}
	}
	if len(cc.SmartDevices) > 0 {
		sched.RegisterSmart(collectors.NewSmartCollector(cc.SmartDevices, logger))
	}
	if cc.RaidEnabled {
		sched.RegisterRaid(collectors.NewRaidCollector(logger))
	}

	app.sched = sched
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter() http.Handler {
	eventRepo := repository.NewEventRepository(app.db)

	healthHandler := handlers.NewHealthHandler(app.db)
	eventHandler := handlers.NewEventHandler(eventRepo, app.logger)
	alertHandler := handlers.NewAlertHandler(app.engine.Grace())

	return routes.NewRouter(healthHandler, eventHandler, alertHandler, app.config.API.JWTSecret)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, cancelSched context.CancelFunc, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.API.Port,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Stop the scheduler first so no new collections start mid-shutdown.
	cancelSched()

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}

func corsOrigins(configured []string) []string {
	if len(configured) == 0 {
		return []string{"*"}
	}
	return configured
}

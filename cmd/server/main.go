package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/application"
	"github.com/waymark-maps/service-routes/internal/config"
	"github.com/waymark-maps/service-routes/internal/directions"
	routeEvents "github.com/waymark-maps/service-routes/internal/events"
	"github.com/waymark-maps/service-routes/internal/handler"
	"github.com/waymark-maps/service-routes/internal/platform/database"
	"github.com/waymark-maps/service-routes/internal/platform/health"
	"github.com/waymark-maps/service-routes/internal/platform/kafka"
	"github.com/waymark-maps/service-routes/internal/platform/logger"
	"github.com/waymark-maps/service-routes/internal/platform/middleware"
	"github.com/waymark-maps/service-routes/internal/repository"
)

const serviceName = "service-routes"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("instance_id", cfg.InstanceID),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" || cfg.DBConfig.Driver == database.DriverSQLite {
		if err := db.AutoMigrate(&repository.RouteModel{}, &repository.MarkerModel{}, &repository.BuildSessionModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (auto-migrate)")
	} else {
		dbURL := database.FromConfig(cfg.DBConfig).DatabaseURL()
		if err := database.RunMigrations(dbURL, "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize directions provider
	var (
		router   directions.Router
		geocoder directions.Geocoder
	)
	switch cfg.DirectionsConfig.Provider {
	case "osrm":
		router = directions.NewOSRMClient(cfg.DirectionsConfig.BaseURL, cfg.DirectionsConfig.Timeout)
	case "google", "":
		if cfg.DirectionsConfig.APIKey == "" {
			log.Warn("directions API key is empty; lookups will be rejected by the provider")
		}
		google := directions.NewGoogleClient(cfg.DirectionsConfig.APIKey, cfg.DirectionsConfig.BaseURL, cfg.DirectionsConfig.Timeout)
		router, geocoder = google, google
	default:
		log.Fatal("unsupported directions provider", zap.String("provider", cfg.DirectionsConfig.Provider))
	}

	// Initialize event publisher
	var publisher application.EventPublisher = application.NopPublisher{}
	messaging := len(cfg.KafkaConfig.Brokers) > 0
	if messaging {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = routeEvents.NewKafkaPublisher(kafkaProducer, cfg.InstanceID, log)
	} else {
		log.Info("no kafka brokers configured; catalog sync and location ingestion disabled")
	}

	// Initialize repositories
	routeRepo := repository.NewGormRouteRepository(db)
	markerRepo := repository.NewGormMarkerRepository(db)
	sessionRepo := repository.NewGormSessionRepository(db)

	// Initialize application services
	routeService := application.NewRouteService(routeRepo, publisher, cfg.Builder.DuplicateCheck, log)
	markerService := application.NewMarkerService(markerRepo, publisher, log)
	builderService := application.NewBuilderService(sessionRepo, router, geocoder, routeService, cfg.Builder, log)
	trackService := application.NewTrackService(cfg.TrackDebounce, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := routeService.Load(ctx); err != nil {
		log.Fatal("failed to load routes", zap.Error(err))
	}
	if err := markerService.Load(ctx); err != nil {
		log.Fatal("failed to load markers", zap.Error(err))
	}

	// Start event consumers. Both groups are per instance so every instance sees every event.
	if messaging {
		syncConsumer := routeEvents.NewCatalogSyncConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupPrefix+"routes-sync-"+cfg.InstanceID,
			cfg.InstanceID,
			routeService,
			markerService,
			log,
		)
		defer func() { _ = syncConsumer.Close() }()

		locationConsumer := routeEvents.NewLocationConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupPrefix+"routes-location-"+cfg.InstanceID,
			trackService,
			log,
		)
		defer func() { _ = locationConsumer.Close() }()

		go func() {
			log.Info("starting catalog sync consumer")
			if err := syncConsumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("catalog sync consumer error", zap.Error(err))
			}
		}()
		go func() {
			log.Info("starting location consumer")
			if err := locationConsumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("location consumer error", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	routeHandler := handler.NewRouteHandler(routeService)
	markerHandler := handler.NewMarkerHandler(markerService)
	builderHandler := handler.NewBuilderHandler(builderService)
	trackHandler := handler.NewTrackHandler(trackService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Apply global middleware
	engine.Use(middleware.RecoveryMiddleware(log))
	engine.Use(middleware.LoggerMiddleware(log))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(engine)

	// Register routes
	routeHandler.RegisterRoutes(&engine.RouterGroup)
	markerHandler.RegisterRoutes(&engine.RouterGroup)
	builderHandler.RegisterRoutes(&engine.RouterGroup)
	trackHandler.RegisterRoutes(&engine.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

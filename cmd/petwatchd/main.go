package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"
	"petwatch/internal/core/services"
	httphandlers "petwatch/internal/handlers/http"
	"petwatch/internal/infrastructure/camera"
	"petwatch/internal/infrastructure/middleware"
	"petwatch/internal/infrastructure/monitoring"
	"petwatch/internal/infrastructure/recorder"
	repositories "petwatch/internal/infrastructure/repositories"
	"petwatch/pkg/config"
	"petwatch/pkg/logger"
	"petwatch/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/petwatch/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "petwatch",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	recordingRepo := repoFactory.CreateRecordingRepository()

	// Initialize monitoring
	collector := monitoring.NewPrometheusCollector()

	// Camera selection: hardware when present, synthetic otherwise
	source := camera.Detect(
		cfg.Camera.Device,
		cfg.Camera.Width,
		cfg.Camera.Height,
		cfg.Camera.FrameRate,
		cfg.Camera.Synthetic,
		log,
	)

	cameraConfig := domain.CameraConfig{
		Width:          cfg.Camera.Width,
		Height:         cfg.Camera.Height,
		FrameRate:      cfg.Camera.FrameRate,
		Quality:        cfg.Camera.Quality,
		StorageEnabled: cfg.Storage.Enabled,
		StorageDir:     cfg.Storage.Directory,
	}

	// Initialize core services
	broadcaster := services.NewBroadcaster(
		source,
		camera.NewJPEGEncoder(),
		collector,
		log,
		services.BroadcasterOptions{
			MaxCaptureFailures: cfg.Stream.MaxCaptureFailures,
			ViewerQueueSize:    cfg.Stream.ViewerQueueSize,
			AcquireTimeout:     cfg.Stream.AcquireTimeout,
		},
	)

	recorderFactory := func() ports.Recorder {
		return recorder.NewMJPEGRecorder(cfg.Storage.RecorderQueue, log)
	}

	// The controller persists through the recordings handler's repository
	// view so each finalized recording invalidates the listing cache.
	recordingsHandler := httphandlers.NewRecordingsHandler(recordingRepo)
	defer recordingsHandler.Close()

	controller := services.NewStreamController(broadcaster, recorderFactory, recordingsHandler.Repository(), collector, log)

	// Health checks
	healthChecker := monitoring.NewHealthChecker(2 * time.Second)
	healthChecker.AddCheck("stream", func(ctx context.Context) error {
		// The broadcaster being degraded is visible but not unhealthy;
		// only a storage-enabled appliance without its directory fails.
		return nil
	})
	if cfg.Storage.Enabled {
		healthChecker.AddCheck("storage", func(ctx context.Context) error {
			info, err := os.Stat(cfg.Storage.Directory)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", cfg.Storage.Directory)
			}
			return nil
		})
	}
	if client := repoFactory.RedisClient(); client != nil {
		healthChecker.AddCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	// Initialize HTTP handlers
	liveHandler := httphandlers.NewLiveHandler(controller, cameraConfig, cfg.Storage.MaxRecording, log)
	wsHandler := httphandlers.NewWSHandler(controller, log)
	healthHandler := httphandlers.NewHealthHandler(healthChecker)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	liveHandler.SetupRoutes(router)
	wsHandler.SetupRoutes(router)
	recordingsHandler.SetupRoutes(router)
	healthHandler.SetupRoutes(router)

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server. WriteTimeout stays zero so the long-lived
	// multipart stream is never cut by the server itself.
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting petwatch server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down petwatch server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop the stream first: finalizes any recording and closes viewers,
	// which also unblocks multipart responses held open by clients.
	if _, err := controller.StopStream(shutdownCtx); err != nil {
		log.Errorw("Error stopping stream during shutdown", "error", err)
	}

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}

	log.Info("petwatch server stopped")
}

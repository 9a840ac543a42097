package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.ApiService/controllers"
	"gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.ApiService/middleware"
	container "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Container"
	dmtingestor "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Ingestor"
	implementation "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Repository/Implementation"
	recorder "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Recorder"
	dmtserial "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Serial"
)

func main() {
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	cfg := ctr.GetConfig()
	logger.Info("Starting telemetry server")

	db, err := ctr.GetDatabase()
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to MongoDB")
	}
	client, _ := ctr.GetMongoClient()

	// Index and schema setup is best-effort: a restricted deployment may
	// not allow collMod, and the service still works without it.
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := implementation.EnsureReadingIndexes(setupCtx, db, cfg.Ingest.WriteMode); err != nil {
		logger.ErrorWithError(err, "Failed to ensure reading indexes")
	}
	if err := implementation.EnsureSolutionSchema(setupCtx, db, cfg.Ingest.MaxSolutionQuantity); err != nil {
		logger.ErrorWithError(err, "Failed to ensure solution schema")
	}
	cancelSetup()

	// Repositories and the shared write policy
	readingRepo := implementation.NewMongoReadingRepository(db)
	solutionRepo := implementation.NewMongoSolutionRepository(db)
	rec := recorder.New(cfg.Ingest.WriteMode, readingRepo)
	logger.WithField("write_mode", rec.Mode()).Info("Ingestion write mode configured")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// MQTT bus adapter. Connect retries run in the background so a broker
	// outage never blocks the query service.
	ingestor := dmtingestor.New(cfg, rec, logger)
	go func() {
		if err := ingestor.Start(rootCtx); err != nil {
			logger.ErrorWithError(err, "MQTT ingestor failed to start")
		}
	}()

	// Serial adapter
	var serialSvc *dmtserial.Service
	if cfg.Serial.Enabled {
		serialSvc = dmtserial.New(cfg.Serial, rec, logger)
		serialSvc.Start(rootCtx)
	}

	// Query service
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	controllers.NewSensorController(readingRepo, logger).RegisterRoutes(router)
	controllers.NewSolutionController(solutionRepo, cfg.Ingest.MaxSolutionQuantity, logger).RegisterRoutes(router)
	controllers.NewHealthController(client, ingestor).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "HTTP server shutdown failed")
	}

	ingestor.Stop()
	if serialSvc != nil {
		serialSvc.Stop()
	}
	cancelRoot()

	logger.Info("Telemetry server stopped")
}

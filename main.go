package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/epeers/mfenrich/config"
	_ "github.com/epeers/mfenrich/docs"
	"github.com/epeers/mfenrich/internal/amfi"
	"github.com/epeers/mfenrich/internal/database"
	"github.com/epeers/mfenrich/internal/handlers"
	"github.com/epeers/mfenrich/internal/middleware"
	"github.com/epeers/mfenrich/internal/morningstar"
	"github.com/epeers/mfenrich/internal/repository"
	"github.com/epeers/mfenrich/internal/services"
)

//	@title			Mutual Fund Enrichment API
//	@version		1.0
//	@description	Enriches parsed mutual-fund holdings with identifiers, NAV, holdings, and sector data.
//	@BasePath		/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}

	// Create context for initialization
	ctx := context.Background()

	// Database is optional: without one, runs are not persisted.
	var runRepo *repository.RunRepository
	if cfg.PGURL != "" {
		db, err := database.New(ctx, cfg.PGURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		runRepo = repository.NewRunRepository(db.Pool)
	} else {
		log.Info("PG_URL not set, run persistence disabled")
	}

	// Initialize provider clients
	amfiClient := amfi.NewClientWithBaseURLs(cfg.Providers.NAVAllURL, cfg.Providers.MFAPIURL)
	msClient := morningstar.NewClientWithBaseURL(cfg.Providers.SearchURL)

	// Initialize services
	enrichOpts := services.EnrichmentOptions{
		CacheEnabled:   cfg.Cache.Enabled,
		CacheTTL:       cfg.Cache.TTL,
		FuzzyThreshold: cfg.Enrichment.FuzzyThreshold,
		OverlapRatio:   cfg.Enrichment.OverlapRatio,
		TopHoldings:    cfg.Enrichment.TopHoldings,
	}
	enrichSvc := services.NewEnrichmentService(amfiClient, msClient, enrichOpts)

	batchOpts := services.BatchOptions{
		MaxConcurrent: cfg.Enrichment.MaxConcurrent,
		ItemTimeout:   cfg.Enrichment.ItemTimeout,
		MaxAttempts:   cfg.Enrichment.MaxAttempts,
		BackoffBase:   cfg.Enrichment.BackoffBase,
		BackoffMax:    cfg.Enrichment.BackoffMax,
	}
	batchSvc := services.NewBatchService(enrichSvc, batchOpts)

	// Initialize handlers
	enrichHandler := handlers.NewEnrichHandler(batchSvc, runRepo, cfg.Enrichment.OverallTimeout)

	// Setup Gin router
	router := gin.Default()

	// Apply global middleware
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ETL routes
	router.POST("/etl/enrich", enrichHandler.Enrich)
	router.GET("/etl/runs/:upload_id", enrichHandler.GetRun)

	// Operational endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

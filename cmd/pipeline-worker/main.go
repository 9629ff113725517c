package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/evlocker/inspection-pipeline/internal/config"
	"github.com/evlocker/inspection-pipeline/internal/eventlog"
	"github.com/evlocker/inspection-pipeline/internal/handlers"
	"github.com/evlocker/inspection-pipeline/internal/issuer"
	"github.com/evlocker/inspection-pipeline/internal/projects"
	"github.com/evlocker/inspection-pipeline/internal/source"
	"github.com/evlocker/inspection-pipeline/pkg/pipeline"
	"github.com/evlocker/inspection-pipeline/pkg/runner"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	httpAddr := os.Getenv("WORKER_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8081"
	}

	ctx := context.Background()

	// Document source
	sourceDB, cleanup, err := source.Connect(ctx, cfg.SourceURI, cfg.SourceDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to source database: %v", err)
	}
	defer cleanup()
	src := source.NewMongoSource(sourceDB, cfg.SystemType).WithBatchLimit(cfg.BatchLimit)
	log.Printf("✓ source database connected: %s", cfg.SourceDatabase)

	// Log store
	store, err := eventlog.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open log store: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx); err != nil {
		log.Fatalf("Failed to create log store tables: %v", err)
	}

	// Project metadata
	var loader projects.Loader
	if cfg.ProjectsAPIURL != "" {
		loader = projects.HTTPLoader(cfg.ProjectsAPIURL)
		log.Printf("✓ project dataset from API: %s", cfg.ProjectsAPIURL)
	} else {
		loader = projects.FileLoader(cfg.ProjectsFile)
		log.Printf("✓ project dataset from file: %s", cfg.ProjectsFile)
	}

	pipeCfg := pipeline.Config{
		SystemType: cfg.SystemType,
		Source:     src,
		Store:      store,
		Projects:   loader,
	}
	if cfg.IssuerAPIURL != "" {
		pipeCfg.Issuer = issuer.New(cfg.IssuerAPIURL)
		log.Printf("✓ issuer handoff enabled: %s", cfg.IssuerAPIURL)
	}
	p, err := pipeline.New(pipeCfg)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	// DBOS runtime (required)
	dbosURL := os.Getenv("DBOS_SYSTEM_DATABASE_URL")
	if dbosURL == "" {
		log.Fatalf("DBOS_SYSTEM_DATABASE_URL is required")
	}
	queueName := os.Getenv("DBOS_QUEUE_NAME")
	if queueName == "" {
		queueName = "default"
	}

	r, err := runner.New(runner.Config{
		DatabaseURL: dbosURL,
		AppName:     "pipeline-worker",
		QueueName:   queueName,
	}, p)
	if err != nil {
		log.Fatalf("Failed to initialize DBOS: %v", err)
	}
	defer r.Shutdown(10 * time.Second)

	log.Printf("✓ DBOS runtime initialized")
	log.Printf("  Queue: %s", r.QueueName())
	log.Printf("  Concurrency: %d", r.Concurrency())

	// Optional schedule: enqueue a batch run on a cron expression.
	if schedule := os.Getenv("PIPELINE_SCHEDULE"); schedule != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(schedule, func() {
			runID, err := r.RunAsync(context.Background(), pipeline.RunRequest{})
			if err != nil {
				log.Printf("failed to enqueue scheduled run: %v", err)
				return
			}
			log.Printf("✓ scheduled batch run enqueued: run_id=%s", runID)
		})
		if err != nil {
			log.Fatalf("Invalid PIPELINE_SCHEDULE %q: %v", schedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Printf("✓ batch runs scheduled: %s", schedule)
	}

	// HTTP server
	mux := http.NewServeMux()
	runHandler := handlers.NewRunHandler(r.Workflows(), store)

	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/v1/run", runHandler.HandleRunAsync)
	mux.HandleFunc("/v1/runs/", runHandler.HandleRunStatus)
	mux.HandleFunc("/v1/status", runHandler.HandleLogStatus)
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("✓ registered run endpoints")

	server := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("Pipeline worker starting on %s", httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

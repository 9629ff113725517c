// Command pipeline-cron runs one batch synchronously and exits. Intended for
// cron or Kubernetes CronJob deployments where no worker fleet exists.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/evlocker/inspection-pipeline/internal/config"
	"github.com/evlocker/inspection-pipeline/internal/eventlog"
	"github.com/evlocker/inspection-pipeline/internal/issuer"
	"github.com/evlocker/inspection-pipeline/internal/projects"
	"github.com/evlocker/inspection-pipeline/internal/source"
	"github.com/evlocker/inspection-pipeline/pkg/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// An interrupt cancels the batch; the log store transaction rolls back.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sourceDB, cleanup, err := source.Connect(ctx, cfg.SourceURI, cfg.SourceDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to source database: %v", err)
	}
	defer cleanup()
	src := source.NewMongoSource(sourceDB, cfg.SystemType).WithBatchLimit(cfg.BatchLimit)

	store, err := eventlog.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open log store: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx); err != nil {
		log.Fatalf("Failed to create log store tables: %v", err)
	}

	var loader projects.Loader
	if cfg.ProjectsAPIURL != "" {
		loader = projects.HTTPLoader(cfg.ProjectsAPIURL)
	} else {
		loader = projects.FileLoader(cfg.ProjectsFile)
	}

	pipeCfg := pipeline.Config{
		SystemType: cfg.SystemType,
		Source:     src,
		Store:      store,
		Projects:   loader,
	}
	if cfg.IssuerAPIURL != "" {
		pipeCfg.Issuer = issuer.New(cfg.IssuerAPIURL)
	}

	p, err := pipeline.New(pipeCfg)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	result, err := p.Run(ctx, pipeline.RunRequest{})
	if err != nil {
		log.Printf("Batch run failed: %v", err)
		os.Exit(1)
	}

	log.Printf("✓ run %s: %d records, %d sites, %d credentials stored, %d skipped, %d history rows",
		result.RunID, result.RecordsFetched, result.Sites,
		result.CredentialsStored, result.CredentialsSkipped, result.HistoryRows)
}

// Command pipeline-tables creates the log store tables and indexes.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/evlocker/inspection-pipeline/internal/config"
	"github.com/evlocker/inspection-pipeline/internal/eventlog"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := eventlog.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open log store: %v", err)
	}
	defer store.Close()

	if err := store.CreateTables(context.Background()); err != nil {
		log.Fatalf("Failed to create log store tables: %v", err)
	}
}

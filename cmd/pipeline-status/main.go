// Command pipeline-status prints the log store's processing status: per-table
// processed/outstanding/error counts and the most recent failed rows.
package main

import (
	"context"
	"fmt"
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

	ctx := context.Background()

	statuses, err := store.Status(ctx)
	if err != nil {
		log.Fatalf("Failed to read status: %v", err)
	}

	fmt.Printf("%-20s %10s %12s %8s\n", "TABLE", "PROCESSED", "OUTSTANDING", "ERRORS")
	for _, status := range statuses {
		fmt.Printf("%-20s %10d %12d %8d\n",
			status.Table, status.Processed, status.Outstanding, status.Errors)
	}

	for _, status := range statuses {
		if status.Errors == 0 {
			continue
		}
		failed, err := store.RecentErrors(ctx, status.Table)
		if err != nil {
			log.Fatalf("Failed to read recent errors for %s: %v", status.Table, err)
		}
		fmt.Printf("\nRecent errors in %s:\n", status.Table)
		for _, row := range failed {
			fmt.Printf("  #%d %s (%s) at %s: %s\n",
				row.RecordID, row.ProjectName, row.ProjectID,
				row.ProcessDate.Format("2006-01-02 15:04:05"), row.Message)
		}
	}
}

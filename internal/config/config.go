// Package config loads pipeline configuration from the environment into an
// explicit object that is passed to each component at construction. There is
// no process-wide mutable registry.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// DefaultSystemType tags every record, watermark and credential produced by
// this deployment.
const DefaultSystemType = "INSPECT_EL"

// Config holds everything the pipeline needs to run one batch.
type Config struct {
	// SourceURI is the MongoDB connection string of the document source.
	SourceURI string
	// SourceDatabase is the document source database name.
	SourceDatabase string

	// DatabaseURL is the PostgreSQL connection string of the log store.
	DatabaseURL string

	// ProjectsFile is the path of the project metadata dataset. Used when
	// ProjectsAPIURL is empty.
	ProjectsFile string
	// ProjectsAPIURL, when set, fetches the published project dataset over
	// HTTP instead of reading ProjectsFile.
	ProjectsAPIURL string

	// IssuerAPIURL, when set, hands generated credentials to the external
	// issuing agent after each successful batch.
	IssuerAPIURL string

	// SystemType identifies this source system in watermarks and logs.
	SystemType string

	// BatchLimit caps records fetched per collection per run. Zero means
	// unlimited. Records left behind are picked up by the next run.
	BatchLimit int
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		SourceURI:      getenv("SOURCE_DB_URI", "mongodb://localhost:27017"),
		SourceDatabase: getenv("SOURCE_DB_NAME", "inspections"),
		DatabaseURL:    os.Getenv("EVENT_LOG_DB_URL"),
		ProjectsFile:   getenv("PROJECTS_FILE", "projects.json"),
		ProjectsAPIURL: os.Getenv("PROJECTS_API_URL"),
		IssuerAPIURL:   os.Getenv("ISSUER_API_URL"),
		SystemType:     getenv("PIPELINE_SYSTEM_TYPE", DefaultSystemType),
	}
	if raw := os.Getenv("PIPELINE_BATCH_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return nil, fmt.Errorf("invalid PIPELINE_BATCH_LIMIT %q", raw)
		}
		cfg.BatchLimit = limit
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("EVENT_LOG_DB_URL is required")
	}
	if c.SourceURI == "" {
		return errors.New("SOURCE_DB_URI is required")
	}
	if c.ProjectsFile == "" && c.ProjectsAPIURL == "" {
		return fmt.Errorf("one of PROJECTS_FILE or PROJECTS_API_URL is required")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

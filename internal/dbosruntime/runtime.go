// Package dbosruntime wraps the DBOS runtime lifecycle for durable batch
// workflow execution.
package dbosruntime

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	_ "github.com/lib/pq"
)

// Config holds DBOS runtime configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string for DBOS state storage.
	// Required.
	DatabaseURL string

	// AppName identifies this application in DBOS.
	AppName string

	// QueueName is the workflow queue name. Defaults to "default".
	QueueName string

	// Concurrency is the number of concurrent workers per queue. Defaults
	// to 1: batch runs over the same log store must not interleave.
	Concurrency int

	// ApplicationVersion overrides the default binary hash for version
	// matching, letting multiple binaries share workflows.
	ApplicationVersion string
}

// WithDefaults fills in default values for optional fields.
func (c *Config) WithDefaults() {
	if c.QueueName == "" {
		c.QueueName = "default"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
}

// Runtime manages the DBOS runtime lifecycle.
type Runtime struct {
	dbosContext dbos.DBOSContext
	queue       *dbos.WorkflowQueue
	config      Config
	db          *sql.DB
}

// NewRuntime creates a new DBOS runtime instance.
func NewRuntime(ctx context.Context, cfg Config) (*Runtime, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DBOS_SYSTEM_DATABASE_URL is required")
	}
	cfg.WithDefaults()

	dbosCtx, err := dbos.NewDBOSContext(ctx, dbos.Config{
		DatabaseURL:        cfg.DatabaseURL,
		AppName:            cfg.AppName,
		ApplicationVersion: cfg.ApplicationVersion,
	})
	if err != nil {
		return nil, err
	}

	queue := dbos.NewWorkflowQueue(dbosCtx, cfg.QueueName)

	// Direct connection for status queries against the DBOS state tables.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		dbosContext: dbosCtx,
		queue:       &queue,
		config:      cfg,
		db:          db,
	}, nil
}

// Launch starts the DBOS runtime and workers. Call after all workflows are
// registered.
func (r *Runtime) Launch() error {
	return dbos.Launch(r.dbosContext)
}

// Shutdown gracefully shuts down the DBOS runtime.
func (r *Runtime) Shutdown(timeout time.Duration) error {
	dbos.Shutdown(r.dbosContext, timeout)
	if r.db != nil {
		r.db.Close()
	}
	return nil
}

// Context returns the DBOS context.
func (r *Runtime) Context() dbos.DBOSContext {
	return r.dbosContext
}

// QueueName returns the configured queue name.
func (r *Runtime) QueueName() string {
	return r.config.QueueName
}

// Concurrency returns the configured concurrency.
func (r *Runtime) Concurrency() int {
	return r.config.Concurrency
}

// Package runner wires the batch pipeline to DBOS behind a small facade, for
// the worker binary and for programs embedding the pipeline.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/evlocker/inspection-pipeline/internal/dbosruntime"
	"github.com/evlocker/inspection-pipeline/internal/workflows"
	"github.com/evlocker/inspection-pipeline/pkg/pipeline"
)

// Config holds the DBOS-side configuration of a Runner.
type Config struct {
	DatabaseURL        string // DBOS PostgreSQL connection string
	AppName            string // Application name for DBOS
	QueueName          string // DBOS queue name
	Concurrency        int    // Number of concurrent workers
	ApplicationVersion string // Optional: override binary hash for version matching
}

// Runner executes and enqueues batch runs durably via DBOS.
type Runner struct {
	runtime   *dbosruntime.Runtime
	workflows *workflows.WorkflowRunner
}

// New creates a runner that registers the batch workflow and launches DBOS.
// The pipeline runner carries the actual batch logic.
func New(cfg Config, p *pipeline.Runner) (*Runner, error) {
	runtime, err := dbosruntime.NewRuntime(context.Background(), dbosruntime.Config{
		DatabaseURL:        cfg.DatabaseURL,
		AppName:            cfg.AppName,
		QueueName:          cfg.QueueName,
		Concurrency:        cfg.Concurrency,
		ApplicationVersion: cfg.ApplicationVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DBOS: %w", err)
	}

	workflowRunner := workflows.NewWorkflowRunner(runtime, p)

	// Launch after registration.
	if err := runtime.Launch(); err != nil {
		return nil, fmt.Errorf("failed to launch DBOS: %w", err)
	}

	return &Runner{
		runtime:   runtime,
		workflows: workflowRunner,
	}, nil
}

// RunAsync enqueues a batch run and returns its run id.
func (r *Runner) RunAsync(ctx context.Context, req pipeline.RunRequest) (string, error) {
	return r.workflows.RunAsync(ctx, req)
}

// Run executes a batch run synchronously, bypassing the queue.
func (r *Runner) Run(ctx context.Context, req pipeline.RunRequest) (*pipeline.RunResult, error) {
	return r.workflows.Run(ctx, req)
}

// Status reads the DBOS-recorded status of a run.
func (r *Runner) Status(ctx context.Context, runID string) (*dbosruntime.WorkflowStatusInfo, error) {
	return r.workflows.GetStatus(ctx, runID)
}

// Workflows exposes the workflow runner for HTTP handler wiring.
func (r *Runner) Workflows() *workflows.WorkflowRunner {
	return r.workflows
}

// QueueName returns the configured queue name.
func (r *Runner) QueueName() string {
	return r.runtime.QueueName()
}

// Concurrency returns the configured concurrency.
func (r *Runner) Concurrency() int {
	return r.runtime.Concurrency()
}

// Shutdown gracefully shuts down the DBOS runtime.
func (r *Runner) Shutdown(timeout time.Duration) {
	if r.runtime != nil {
		r.runtime.Shutdown(timeout)
	}
}

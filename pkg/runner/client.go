package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/evlocker/inspection-pipeline/internal/dbosruntime"
	"github.com/evlocker/inspection-pipeline/internal/workflows"
	"github.com/evlocker/inspection-pipeline/pkg/pipeline"
)

// Client enqueues batch runs without executing them. Workers must be running
// separately to execute the enqueued runs.
type Client struct {
	runtime *dbosruntime.Runtime
	runner  *workflows.WorkflowRunner
}

// NewClient creates an enqueue-only client.
func NewClient(cfg Config) (*Client, error) {
	runtime, err := dbosruntime.NewRuntime(context.Background(), dbosruntime.Config{
		DatabaseURL: cfg.DatabaseURL,
		AppName:     cfg.AppName,
		QueueName:   cfg.QueueName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DBOS: %w", err)
	}

	// No pipeline runner: this process never executes the workflow.
	workflowRunner := workflows.NewWorkflowRunner(runtime, nil)

	if err := runtime.Launch(); err != nil {
		return nil, fmt.Errorf("failed to launch DBOS: %w", err)
	}

	return &Client{
		runtime: runtime,
		runner:  workflowRunner,
	}, nil
}

// RunAsync enqueues a batch run for workers to execute.
func (c *Client) RunAsync(ctx context.Context, req pipeline.RunRequest) (string, error) {
	return c.runner.RunAsync(ctx, req)
}

// Status reads the DBOS-recorded status of a run.
func (c *Client) Status(ctx context.Context, runID string) (*dbosruntime.WorkflowStatusInfo, error) {
	return c.runner.GetStatus(ctx, runID)
}

// Shutdown gracefully shuts down the client.
func (c *Client) Shutdown(timeout time.Duration) {
	if c.runtime != nil {
		c.runtime.Shutdown(timeout)
	}
}

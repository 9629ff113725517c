// Package workflows runs the batch pipeline as a durable DBOS workflow, so
// an interrupted run is resumed by a worker instead of silently lost.
package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/google/uuid"

	"github.com/evlocker/inspection-pipeline/internal/dbosruntime"
	"github.com/evlocker/inspection-pipeline/pkg/pipeline"
)

// WorkflowRunner executes batch runs through DBOS.
type WorkflowRunner struct {
	runner      *pipeline.Runner
	dbosRuntime *dbosruntime.Runtime
}

// NewWorkflowRunner creates a workflow runner and registers the batch
// workflow with DBOS. Must be called before the runtime is launched.
func NewWorkflowRunner(dbosRuntime *dbosruntime.Runtime, runner *pipeline.Runner) *WorkflowRunner {
	r := &WorkflowRunner{
		runner:      runner,
		dbosRuntime: dbosRuntime,
	}
	if dbosRuntime != nil {
		dbos.RegisterWorkflow(dbosRuntime.Context(), r.executeBatchDBOS)
	}
	return r
}

// RunAsync enqueues a batch run for a worker to execute and returns its
// workflow id. The workflow id doubles as the pipeline run id.
func (r *WorkflowRunner) RunAsync(ctx context.Context, req pipeline.RunRequest) (string, error) {
	if r.dbosRuntime == nil {
		return "", ErrRuntimeNotInitialized
	}
	if req.RunID == "" {
		req.RunID = "batch-" + uuid.New().String()
	}

	handle, err := dbos.RunWorkflow[pipeline.RunRequest, *pipeline.RunResult](
		r.dbosRuntime.Context(),
		r.executeBatchDBOS,
		req,
		dbos.WithWorkflowID(req.RunID),
		dbos.WithQueue(r.dbosRuntime.QueueName()),
	)
	if err != nil {
		return "", err
	}
	return handle.GetWorkflowID(), nil
}

// Run executes a batch run synchronously, bypassing the queue. Used by the
// one-shot command where no worker fleet exists.
func (r *WorkflowRunner) Run(ctx context.Context, req pipeline.RunRequest) (*pipeline.RunResult, error) {
	if r.runner == nil {
		return nil, ErrRunnerNotConfigured
	}
	return r.runner.Run(ctx, req)
}

func (r *WorkflowRunner) executeBatchDBOS(dbosCtx dbos.DBOSContext, req pipeline.RunRequest) (*pipeline.RunResult, error) {
	if r.runner == nil {
		return nil, ErrRunnerNotConfigured
	}

	workflowID, err := dbosCtx.GetWorkflowID()
	if err != nil {
		return nil, err
	}
	req.RunID = workflowID

	// DBOSContext implements context.Context.
	return r.runner.Run(dbosCtx, req)
}

// GetStatus reads the DBOS-recorded status of a run.
func (r *WorkflowRunner) GetStatus(ctx context.Context, runID string) (*dbosruntime.WorkflowStatusInfo, error) {
	if r.dbosRuntime == nil {
		return nil, ErrRuntimeNotInitialized
	}
	info, err := r.dbosRuntime.GetWorkflowStatus(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, errors.Join(ErrRunNotFound, err))
	}
	return info, nil
}

// Package handlers exposes the worker's HTTP API: enqueue a batch run, check
// a run's status, and read the log store's processing status.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/evlocker/inspection-pipeline/internal/eventlog"
	"github.com/evlocker/inspection-pipeline/internal/workflows"
	"github.com/evlocker/inspection-pipeline/pkg/pipeline"
)

// StatusReader is the read-only slice of the log store the status endpoint
// needs.
type StatusReader interface {
	Status(ctx context.Context) ([]eventlog.TableStatus, error)
}

// RunHandler serves the worker's run endpoints.
type RunHandler struct {
	workflowRunner *workflows.WorkflowRunner
	status         StatusReader
}

// NewRunHandler creates a run handler.
func NewRunHandler(runner *workflows.WorkflowRunner, status StatusReader) *RunHandler {
	return &RunHandler{
		workflowRunner: runner,
		status:         status,
	}
}

// RunResponse is the body of a successful enqueue.
type RunResponse struct {
	RunID string `json:"run_id"`
}

// HandleRunAsync handles POST /v1/run: enqueues a batch run and returns 202
// immediately.
func (h *RunHandler) HandleRunAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The body is optional; an empty body enqueues a run with a fresh id.
	var req pipeline.RunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
			return
		}
	}

	runID, err := h.workflowRunner.RunAsync(r.Context(), req)
	if err != nil {
		log.Printf("failed to enqueue batch run: %v", err)
		http.Error(w, fmt.Sprintf("Failed to enqueue run: %v", err), http.StatusInternalServerError)
		return
	}
	log.Printf("✓ batch run enqueued: run_id=%s", runID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(RunResponse{RunID: runID})
}

// HandleRunStatus handles GET /v1/runs/{runID}: returns the DBOS-recorded
// status of one run.
func (h *RunHandler) HandleRunStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Path[len("/v1/runs/"):]
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	status, err := h.workflowRunner.GetStatus(r.Context(), runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// HandleLogStatus handles GET /v1/status: returns per-table
// processed/outstanding/error counts from the log store.
func (h *RunHandler) HandleLogStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	statuses, err := h.status.Status(r.Context())
	if err != nil {
		log.Printf("failed to read log store status: %v", err)
		http.Error(w, "Failed to read status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"tables": statuses})
}

// HandleHealth handles GET /health.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

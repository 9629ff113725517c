package pipeline

import "time"

// RunRequest asks for one batch run. RunID is a caller-chosen identifier used
// for log correlation; an empty RunID is filled in with a fresh UUID.
type RunRequest struct {
	RunID string `json:"run_id"`
}

// RunResult summarizes one completed batch run.
type RunResult struct {
	RunID                string        `json:"run_id"`
	RecordsFetched       int           `json:"records_fetched"`
	Sites                int           `json:"sites"`
	CredentialsGenerated int           `json:"credentials_generated"`
	CredentialsStored    int           `json:"credentials_stored"`
	CredentialsSkipped   int           `json:"credentials_skipped"`
	HistoryRows          int           `json:"history_rows"`
	Elapsed              time.Duration `json:"elapsed"`

	// LatestObjectDates holds, per collection with processed records, the
	// max object date consumed — the value the watermark advanced to.
	LatestObjectDates map[string]time.Time `json:"latest_object_dates,omitempty"`
}

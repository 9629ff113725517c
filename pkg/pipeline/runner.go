// Package pipeline runs the inspection batch pipeline: fetch unprocessed
// records from the document source, chain content hashes bottom-up, organize
// the hierarchy, generate credentials and persist them transactionally in the
// log store.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/evlocker/inspection-pipeline/internal/credentials"
	"github.com/evlocker/inspection-pipeline/internal/eventlog"
	"github.com/evlocker/inspection-pipeline/internal/hashchain"
	"github.com/evlocker/inspection-pipeline/internal/hierarchy"
	"github.com/evlocker/inspection-pipeline/internal/metrics"
	"github.com/evlocker/inspection-pipeline/internal/projects"
	"github.com/evlocker/inspection-pipeline/internal/source"
)

// LogStore is the slice of the event log store the runner needs.
type LogStore interface {
	GetWatermark(ctx context.Context, systemType string, collection source.Collection) (*time.Time, error)
	RecordWatermark(ctx context.Context, systemType string, collection source.Collection, objectDate time.Time) error
	HasSiteCredential(ctx context.Context, projectID string) (bool, error)
	PersistBatch(ctx context.Context, entries []credentials.HistoryEntry, creds []credentials.Credential) (eventlog.BatchCounts, []credentials.Credential, error)
}

// Submitter hands newly stored credentials to an external issuing agent.
type Submitter interface {
	Submit(ctx context.Context, creds []credentials.Credential) error
}

// Config holds the collaborators of a Runner.
type Config struct {
	SystemType string
	Source     source.Source
	Store      LogStore
	Projects   projects.Loader

	// Issuer is optional. When set, credentials stored by a run are handed
	// off after commit; handoff failures are logged, never fatal.
	Issuer Submitter
}

// Runner executes batch runs.
type Runner struct {
	cfg       Config
	generator *credentials.Generator
}

// New creates a runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Source == nil || cfg.Store == nil || cfg.Projects == nil {
		return nil, fmt.Errorf("pipeline: source, store and projects loader are required")
	}
	if cfg.SystemType == "" {
		return nil, fmt.Errorf("pipeline: system type is required")
	}
	return &Runner{
		cfg:       cfg,
		generator: credentials.NewGenerator(cfg.SystemType, cfg.Store, cfg.Source),
	}, nil
}

// Run executes one batch. A run is all-or-nothing on the log store side: the
// history rows and credentials of the batch commit in one transaction, and
// watermarks advance only after that commit. Re-running over the same source
// state generates byte-identical credentials that the hash index dedupes, so
// Run is safe to retry.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	start := time.Now()

	result, err := r.run(ctx, runID)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("run %s failed: %w", runID, err)
	}

	result.Elapsed = time.Since(start)
	metrics.RunsTotal.WithLabelValues("success").Inc()
	metrics.RunDuration.Observe(result.Elapsed.Seconds())
	log.Printf("[%s] ✓ batch complete: %d records, %d sites, %d credentials stored, %d skipped (%.2fs)",
		runID, result.RecordsFetched, result.Sites, result.CredentialsStored,
		result.CredentialsSkipped, result.Elapsed.Seconds())
	return result, nil
}

func (r *Runner) run(ctx context.Context, runID string) (*RunResult, error) {
	result := &RunResult{RunID: runID}

	resolver, err := r.cfg.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load project dataset: %w", err)
	}
	log.Printf("[%s] project dataset loaded: %d entries", runID, resolver.Len())

	records, err := r.fetch(ctx, runID)
	if err != nil {
		return nil, err
	}
	result.RecordsFetched = len(records)
	if len(records) == 0 {
		log.Printf("[%s] ✓ nothing to process", runID)
		return result, nil
	}

	hashed, err := hashchain.ComputeHashes(records)
	if err != nil {
		return nil, fmt.Errorf("failed to compute content hashes: %w", err)
	}

	sites := hierarchy.Organize(hashed, resolver)
	result.Sites = len(sites)

	creds, entries, err := r.generator.Generate(ctx, sites)
	if err != nil {
		return nil, err
	}
	result.CredentialsGenerated = len(creds)

	counts, stored, err := r.cfg.Store.PersistBatch(ctx, entries, creds)
	if err != nil {
		return nil, err
	}
	result.HistoryRows = counts.HistoryRows
	result.CredentialsStored = counts.CredentialsStored
	result.CredentialsSkipped = counts.CredentialsSkipped
	metrics.CredentialsStored.Add(float64(counts.CredentialsStored))
	metrics.CredentialsSkipped.Add(float64(counts.CredentialsSkipped))

	// The batch is committed; watermarks advance now, but only over records
	// the hierarchy actually consumed. Orphans dropped by Organize must stay
	// above the watermark so the next run re-fetches them once their parent
	// arrives. A failed advance only means the next run re-fetches records
	// whose credentials the hash index will dedupe, so it is logged rather
	// than failing the run.
	latest := latestProcessedDates(hashed, sites)
	result.LatestObjectDates = make(map[string]time.Time, len(latest))
	for collection, objectDate := range latest {
		result.LatestObjectDates[string(collection)] = objectDate
		if err := r.cfg.Store.RecordWatermark(ctx, r.cfg.SystemType, collection, objectDate); err != nil {
			log.Printf("[%s] WARNING: %v", runID, err)
		}
	}

	if r.cfg.Issuer != nil && len(stored) > 0 {
		if err := r.cfg.Issuer.Submit(ctx, stored); err != nil {
			log.Printf("[%s] WARNING: credential handoff failed: %v", runID, err)
		} else {
			log.Printf("[%s] ✓ handed off %d credentials to issuer", runID, len(stored))
		}
	}

	return result, nil
}

// fetch reads every collection past its watermark.
func (r *Runner) fetch(ctx context.Context, runID string) ([]source.Record, error) {
	var records []source.Record

	for _, collection := range source.Collections() {
		since, err := r.cfg.Store.GetWatermark(ctx, r.cfg.SystemType, collection)
		if err != nil {
			return nil, err
		}

		fetched, err := r.cfg.Source.FindUnprocessed(ctx, collection, since)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s records: %w", collection, err)
		}
		metrics.RecordsFetched.WithLabelValues(string(collection)).Add(float64(len(fetched)))
		if len(fetched) == 0 {
			continue
		}
		log.Printf("[%s] fetched %d %s records", runID, len(fetched), collection)
		records = append(records, fetched...)
	}

	return records, nil
}

// latestProcessedDates returns, per collection, the max object date over the
// records the organized hierarchy consumed: every inspection, the attached
// observations, and media whose parent observation was attached. Records
// dropped as orphans are excluded, leaving them above the watermark for the
// next run.
func latestProcessedDates(records []source.Record, sites []hierarchy.Site) map[source.Collection]time.Time {
	inspections := make(map[string]bool)
	observations := make(map[string]bool)
	for _, site := range sites {
		for _, inspection := range site.Inspections {
			inspections[inspection.ObjectID] = true
			for _, observation := range inspection.Observations {
				observations[observation.ObjectID] = true
			}
		}
	}

	latest := make(map[source.Collection]time.Time)
	for _, rec := range records {
		var processed bool
		switch rec.Collection.Kind() {
		case source.KindInspection:
			processed = inspections[rec.ObjectID]
		case source.KindObservation:
			processed = observations[rec.ObjectID]
		case source.KindMedia:
			for obsID := range observations {
				if source.ParentMatches(rec, obsID) {
					processed = true
					break
				}
			}
		}
		if processed && rec.ObjectDate.After(latest[rec.Collection]) {
			latest[rec.Collection] = rec.ObjectDate
		}
	}
	return latest
}

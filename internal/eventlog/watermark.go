package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evlocker/inspection-pipeline/internal/source"
)

// GetWatermark returns the latest object date successfully processed for the
// (system type, collection) pair, or nil if the pair was never processed.
func (s *Store) GetWatermark(ctx context.Context, systemType string, collection source.Collection) (*time.Time, error) {
	query := `SELECT max(object_date) FROM watermark
		WHERE system_type_cd = $1 AND collection = $2`

	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx, query, systemType, string(collection)).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark for %s/%s: %w", systemType, collection, err)
	}
	if !latest.Valid {
		return nil, nil
	}
	ts := latest.Time
	return &ts, nil
}

// RecordWatermark appends a watermark advance. The ledger is append-only:
// GetWatermark always reads the max, so recording an earlier timestamp can
// never move the watermark backwards.
func (s *Store) RecordWatermark(ctx context.Context, systemType string, collection source.Collection, objectDate time.Time) error {
	query := `INSERT INTO watermark (system_type_cd, collection, object_date, entry_date)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query, systemType, string(collection), objectDate, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record watermark for %s/%s: %w", systemType, collection, err)
	}
	return nil
}

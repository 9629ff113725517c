package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TableStatus is the processed/outstanding/error breakdown of one log table.
type TableStatus struct {
	Table       string `json:"table"`
	Processed   int    `json:"processed"`
	Outstanding int    `json:"outstanding"`
	Errors      int    `json:"errors"`
}

// FailedRow is one failed row of a log table, for the recent-errors listing.
type FailedRow struct {
	RecordID    int64     `json:"record_id"`
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	ProcessDate time.Time `json:"process_date"`
	Message     string    `json:"message"`
}

// recentErrorLimit bounds the recent-errors listing.
const recentErrorLimit = 20

// logTables whitelists the tables status queries may touch; table names are
// interpolated into SQL and must never come from input.
var logTables = []string{TableEventHistory, TableCredentialLog}

// Status returns processed/outstanding/error counts for every log table.
// Read-only; no transactional coupling with the batch path.
func (s *Store) Status(ctx context.Context) ([]TableStatus, error) {
	statuses := make([]TableStatus, 0, len(logTables))
	for _, table := range logTables {
		status := TableStatus{Table: table}

		var err error
		if status.Processed, err = s.countRows(ctx, table, "process_date IS NOT NULL"); err != nil {
			return nil, err
		}
		if status.Outstanding, err = s.countRows(ctx, table, "process_date IS NULL"); err != nil {
			return nil, err
		}
		if status.Errors, err = s.countRows(ctx, table, "process_success = 'N'"); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// RecentErrors lists the most recent failed rows of a log table,
// most-recent-first, bounded to recentErrorLimit.
func (s *Store) RecentErrors(ctx context.Context, table string) ([]FailedRow, error) {
	if !isLogTable(table) {
		return nil, fmt.Errorf("unknown log table %q", table)
	}

	query := fmt.Sprintf(`SELECT record_id, project_id, project_name, process_date, process_msg
		FROM %s
		WHERE process_success = 'N'
		ORDER BY process_date DESC
		LIMIT %d`, table, recentErrorLimit)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent errors for %s: %w", table, err)
	}
	defer rows.Close()

	var failed []FailedRow
	for rows.Next() {
		var row FailedRow
		var processDate sql.NullTime
		var message sql.NullString
		if err := rows.Scan(&row.RecordID, &row.ProjectID, &row.ProjectName, &processDate, &message); err != nil {
			return nil, fmt.Errorf("failed to scan error row: %w", err)
		}
		if processDate.Valid {
			row.ProcessDate = processDate.Time
		}
		row.Message = message.String
		failed = append(failed, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate error rows: %w", err)
	}
	return failed, nil
}

func (s *Store) countRows(ctx context.Context, table, condition string) (int, error) {
	if !isLogTable(table) {
		return 0, fmt.Errorf("unknown log table %q", table)
	}

	var count int
	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", table, condition)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s rows: %w", table, err)
	}
	return count, nil
}

func isLogTable(table string) bool {
	for _, known := range logTables {
		if table == known {
			return true
		}
	}
	return false
}

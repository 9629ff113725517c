package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evlocker/inspection-pipeline/internal/credentials"
)

// HasSiteCredential reports whether a foundational site credential was ever
// logged for the project. Implements credentials.SiteChecker.
func (s *Store) HasSiteCredential(ctx context.Context, projectID string) (bool, error) {
	query := `SELECT record_id FROM credential_log
		WHERE project_id = $1 AND credential_type_cd = $2
		LIMIT 1`

	var id int64
	err := s.db.QueryRowContext(ctx, query, projectID, credentials.TypeSite).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check site credential for %s: %w", projectID, err)
	}
	return true, nil
}

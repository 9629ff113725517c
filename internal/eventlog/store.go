// Package eventlog is the PostgreSQL log store behind the pipeline: an
// append-only watermark ledger, the event history log, and the
// dedup-protected credential log.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// credentialHashIndex enforces at-most-once storage per content hash. A
// violation of this index means "already issued", not an error.
const credentialHashIndex = "credential_log_hash_idx"

// Log table names, in reporting order.
const (
	TableEventHistory  = "event_history_log"
	TableCredentialLog = "credential_log"
)

// Store is the relational log store.
type Store struct {
	db *sql.DB
}

// Open connects to the log store database.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open log store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping log store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTables creates the log store tables and indexes if they do not exist.
func (s *Store) CreateTables(ctx context.Context) error {
	commands := []string{
		`CREATE TABLE IF NOT EXISTS watermark (
			record_id SERIAL PRIMARY KEY,
			system_type_cd VARCHAR(255) NOT NULL,
			collection VARCHAR(255) NOT NULL,
			object_date TIMESTAMPTZ NOT NULL,
			entry_date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS watermark_stc_idx ON watermark
			(system_type_cd, collection)`,
		`CREATE TABLE IF NOT EXISTS event_history_log (
			record_id SERIAL PRIMARY KEY,
			system_type_cd VARCHAR(255) NOT NULL,
			collection VARCHAR(255) NOT NULL,
			project_id VARCHAR(255) NOT NULL,
			project_name VARCHAR(255) NOT NULL,
			object_id VARCHAR(255) NOT NULL,
			object_date TIMESTAMPTZ NOT NULL,
			upload_date TIMESTAMPTZ,
			upload_hash VARCHAR(255),
			entry_date TIMESTAMPTZ NOT NULL,
			process_date TIMESTAMPTZ,
			process_success CHAR,
			process_msg VARCHAR(255)
		)`,
		`CREATE INDEX IF NOT EXISTS ehl_pd_null_idx ON event_history_log
			(process_date) WHERE process_date IS NULL`,
		`CREATE TABLE IF NOT EXISTS credential_log (
			record_id SERIAL PRIMARY KEY,
			system_type_cd VARCHAR(255) NOT NULL,
			source_collection VARCHAR(255) NOT NULL,
			source_id VARCHAR(255) NOT NULL,
			project_id VARCHAR(255) NOT NULL,
			project_name VARCHAR(255) NOT NULL,
			credential_type_cd VARCHAR(255) NOT NULL,
			credential_id VARCHAR(255) NOT NULL,
			schema_name VARCHAR(255) NOT NULL,
			schema_version VARCHAR(255) NOT NULL,
			credential_json JSON NOT NULL,
			credential_hash VARCHAR(64) NOT NULL,
			entry_date TIMESTAMPTZ NOT NULL,
			process_date TIMESTAMPTZ,
			process_success CHAR,
			process_msg VARCHAR(255)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + credentialHashIndex + ` ON credential_log
			(credential_hash)`,
		`CREATE INDEX IF NOT EXISTS cl_pd_null_idx ON credential_log
			(process_date) WHERE process_date IS NULL`,
		`CREATE INDEX IF NOT EXISTS cl_ps_pd_desc_idx ON credential_log
			(process_success, process_date DESC)`,
	}

	for _, command := range commands {
		if _, err := s.db.ExecContext(ctx, command); err != nil {
			return fmt.Errorf("failed to create log store tables: %w", err)
		}
	}

	log.Printf("✓ log store tables ready")
	return nil
}

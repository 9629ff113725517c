package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/evlocker/inspection-pipeline/internal/credentials"
)

// BatchCounts summarizes one persisted batch.
type BatchCounts struct {
	HistoryRows        int
	CredentialsStored  int
	CredentialsSkipped int
}

// PersistBatch stores one batch's history entries and credentials in a single
// transaction. Each credential runs under a named savepoint together with its
// paired history entry: a unique violation of the content-hash index rolls
// back to the savepoint — undoing that credential AND its history row — and
// counts the credential as a skipped duplicate, so a rerun over already-issued
// records appends nothing. Any other error aborts the whole transaction so
// nothing partial is committed. The returned slice holds the credentials that
// were newly stored, in insert order; skipped duplicates were already handed
// off on an earlier run and are excluded.
func (s *Store) PersistBatch(ctx context.Context, entries []credentials.HistoryEntry, creds []credentials.Credential) (BatchCounts, []credentials.Credential, error) {
	var counts BatchCounts
	var storedCreds []credentials.Credential

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, nil, fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	entryByKey := make(map[string]credentials.HistoryEntry, len(entries))
	for _, entry := range entries {
		entryByKey[string(entry.Collection)+":"+entry.ObjectID] = entry
	}

	for i, cred := range creds {
		entry, hasEntry := entryByKey[cred.SourceCollection+":"+cred.SourceID]

		stored, err := insertCredential(ctx, tx, i, cred, entry, hasEntry)
		if err != nil {
			return BatchCounts{}, nil, err
		}
		if stored {
			counts.CredentialsStored++
			storedCreds = append(storedCreds, cred)
			if hasEntry {
				counts.HistoryRows++
			}
		} else {
			counts.CredentialsSkipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return BatchCounts{}, nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return counts, storedCreds, nil
}

func insertHistoryEntry(ctx context.Context, tx *sql.Tx, entry credentials.HistoryEntry) (int64, error) {
	query := `INSERT INTO event_history_log
		(system_type_cd, collection, project_id, project_name, object_id,
		 object_date, upload_date, upload_hash, entry_date,
		 process_date, process_success, process_msg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING record_id`

	now := time.Now()
	success := "Y"
	if !entry.Success {
		success = "N"
	}

	var id int64
	err := tx.QueryRowContext(ctx, query,
		entry.SystemType, string(entry.Collection), entry.ProjectID, entry.ProjectName,
		entry.ObjectID, entry.ObjectDate, entry.UploadDate, entry.UploadHash,
		now, now, success, entry.Message,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert history entry for %s %s: %w", entry.Collection, entry.ObjectID, err)
	}
	return id, nil
}

// insertCredential inserts one credential, and its paired history entry when
// it has one, under a single savepoint. The history row's record id becomes
// the credential's source id. Returns false when the credential was a
// duplicate and was skipped; the rollback removes the history row with it.
func insertCredential(ctx context.Context, tx *sql.Tx, seq int, cred credentials.Credential,
	entry credentials.HistoryEntry, hasEntry bool) (bool, error) {

	savepoint := "cred_" + strconv.Itoa(seq)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return false, fmt.Errorf("failed to create savepoint: %w", err)
	}

	sourceID := cred.SourceID
	if hasEntry {
		id, err := insertHistoryEntry(ctx, tx, entry)
		if err != nil {
			return false, err
		}
		sourceID = strconv.FormatInt(id, 10)
	}

	query := `INSERT INTO credential_log
		(system_type_cd, source_collection, source_id, project_id, project_name,
		 credential_type_cd, credential_id, schema_name, schema_version,
		 credential_json, credential_hash, entry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.ExecContext(ctx, query,
		cred.SystemType, cred.SourceCollection, sourceID, cred.ProjectID, cred.ProjectName,
		cred.Type, cred.CredentialID, cred.SchemaName, cred.SchemaVersion,
		cred.Payload, cred.Hash, time.Now(),
	)
	if err == nil {
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return false, fmt.Errorf("failed to release savepoint: %w", err)
		}
		return true, nil
	}

	if !isHashUniqueViolation(err) {
		return false, fmt.Errorf("failed to insert %s credential %s: %w", cred.Type, cred.CredentialID, err)
	}

	// Duplicate hash: already issued on an earlier run. Roll back to the
	// savepoint and keep the rest of the batch.
	log.Printf("skipping duplicate %s credential %s (hash %s)", cred.Type, cred.CredentialID, cred.Hash)
	if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); err != nil {
		return false, fmt.Errorf("failed to roll back to savepoint: %w", err)
	}
	return false, nil
}

// isHashUniqueViolation reports whether err is a unique violation on the
// credential hash index — the expected, benign duplicate signal.
func isHashUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == credentialHashIndex
}

// Package hashchain computes deterministic content hashes bottom-up over the
// record hierarchy: media records hash their own content, observations hash
// the ordered list of their media hashes, inspections hash the ordered list
// of their observation hashes. Parents hash child hashes rather than child
// payloads, so a parent hash is a structural fingerprint of its subtree and
// stays stable as long as the set and order of child content is stable.
package hashchain

import (
	"fmt"

	"github.com/evlocker/inspection-pipeline/internal/canonical"
	"github.com/evlocker/inspection-pipeline/internal/source"
)

// ComputeHashes returns a copy of records annotated with content hashes.
// Child hash lists are ordered by child object id ascending, so the result is
// independent of the order records were fetched in.
func ComputeHashes(records []source.Record) ([]source.Record, error) {
	out := make([]source.Record, len(records))
	copy(out, records)

	// Media first: leaf hashes cover the record's own content.
	for i := range out {
		if !out[i].Collection.IsMedia() {
			continue
		}
		hash, err := canonical.Hash(recordContent(out[i]))
		if err != nil {
			return nil, fmt.Errorf("failed to hash media record %s: %w", out[i].ObjectID, err)
		}
		out[i].ContentHash = hash
	}

	// Observations hash the sorted list of their media hashes.
	for i := range out {
		if out[i].Collection.Kind() != source.KindObservation {
			continue
		}
		hashes := childHashes(source.ChildrenOf(out, source.KindMedia, out[i].ObjectID))
		out[i].MediaHashes = hashes
		hash, err := canonical.Hash(hashes)
		if err != nil {
			return nil, fmt.Errorf("failed to hash observation %s: %w", out[i].ObjectID, err)
		}
		out[i].ContentHash = hash
	}

	// Inspections hash the sorted list of their observation hashes.
	for i := range out {
		if out[i].Collection.Kind() != source.KindInspection {
			continue
		}
		hashes := childHashes(source.ChildrenOf(out, source.KindObservation, out[i].ObjectID))
		hash, err := canonical.Hash(hashes)
		if err != nil {
			return nil, fmt.Errorf("failed to hash inspection %s: %w", out[i].ObjectID, err)
		}
		out[i].ContentHash = hash
	}

	return out, nil
}

// childHashes collects the content hashes of already-hashed children.
// children must be sorted by object id (source.ChildrenOf guarantees this).
func childHashes(children []source.Record) []string {
	hashes := make([]string, 0, len(children))
	for _, child := range children {
		hashes = append(hashes, child.ContentHash)
	}
	return hashes
}

// recordContent is the canonical content of a leaf record. Identity fields
// are included so two structurally empty records with different ids never
// collide.
func recordContent(rec source.Record) map[string]interface{} {
	content := map[string]interface{}{
		"systemType": rec.SystemType,
		"collection": string(rec.Collection),
		"objectId":   rec.ObjectID,
		"objectDate": rec.ObjectDate,
		"uploadDate": rec.UploadDate,
	}
	if rec.ParentID != "" {
		content["parentId"] = rec.ParentID
	}
	if rec.ParentRef != "" {
		content["parentRef"] = rec.ParentRef
	}
	return content
}

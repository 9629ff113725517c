// Package source defines the flat record model read from the inspection
// document store and the interface the pipeline uses to fetch it.
package source

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Collection names a document-store collection holding source records.
type Collection string

const (
	CollectionInspection  Collection = "Inspection"
	CollectionObservation Collection = "Observation"
	CollectionAudio       Collection = "Audio"
	CollectionPhoto       Collection = "Photo"
	CollectionVideo       Collection = "Video"
)

// Collections returns every source collection in processing order.
func Collections() []Collection {
	return []Collection{
		CollectionInspection,
		CollectionObservation,
		CollectionAudio,
		CollectionPhoto,
		CollectionVideo,
	}
}

// Kind groups collections by their place in the hierarchy.
type Kind int

const (
	KindInspection Kind = iota
	KindObservation
	KindMedia
)

// Kind returns the hierarchy level of the collection. Audio, Photo and Video
// are all media variants.
func (c Collection) Kind() Kind {
	switch c {
	case CollectionInspection:
		return KindInspection
	case CollectionObservation:
		return KindObservation
	default:
		return KindMedia
	}
}

// IsMedia reports whether the collection is one of the media variants.
func (c Collection) IsMedia() bool {
	return c.Kind() == KindMedia
}

// Coordinates is an optional observation location.
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Record is one flat record read from the document store. Records are read
// once per batch and never written back; enrichment (content hashes, media
// hash lists) happens on the pipeline's own copy.
type Record struct {
	SystemType string
	Collection Collection
	ObjectID   string
	ObjectDate time.Time
	UploadDate time.Time

	// ParentID is the typed parent reference: the parent's object id for
	// Observation (inspection) and Media (observation) records.
	ParentID string
	// ParentRef carries the store's raw parent pointer, which may be
	// prefixed with collection metadata. Used only by the suffix-match
	// compatibility shim when ParentID is absent.
	ParentRef string

	// Inspection payload.
	ProjectName  string
	InspectorRef string

	// Observation payload.
	Title       string
	Requirement string
	Coordinates *Coordinates

	// Filled in by the hash chain builder.
	MediaHashes []string
	ContentHash string
}

// Inspector is the resolved identity of the person who performed an
// inspection.
type Inspector struct {
	Name  string
	Email string
}

// Source is the document-store interface the pipeline reads from.
type Source interface {
	// FindUnprocessed returns records of the collection that carry no
	// processed marker and, when since is non-nil, whose object date is
	// strictly after it, ascending by object date.
	FindUnprocessed(ctx context.Context, collection Collection, since *time.Time) ([]Record, error)

	// InspectorDetails resolves an inspector reference to a name and email.
	InspectorDetails(ctx context.Context, inspectorRef string) (Inspector, error)
}

// ParentMatches reports whether rec is a child of parentID. The typed
// ParentID field wins; the raw ParentRef suffix match remains as a
// compatibility shim for stores that prefix their reference values.
func ParentMatches(rec Record, parentID string) bool {
	if parentID == "" {
		return false
	}
	if rec.ParentID != "" {
		return rec.ParentID == parentID
	}
	return rec.ParentRef != "" && strings.HasSuffix(rec.ParentRef, parentID)
}

// FilterKind returns the records of the given hierarchy level, preserving
// input order.
func FilterKind(records []Record, kind Kind) []Record {
	var out []Record
	for _, rec := range records {
		if rec.Collection.Kind() == kind {
			out = append(out, rec)
		}
	}
	return out
}

// ChildrenOf returns the records of the given kind whose parent reference
// matches parentID, sorted by object id ascending. The sort order is load
// bearing: content hashes are computed over child hashes in this order.
func ChildrenOf(records []Record, kind Kind, parentID string) []Record {
	var out []Record
	for _, rec := range records {
		if rec.Collection.Kind() == kind && ParentMatches(rec, parentID) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out
}

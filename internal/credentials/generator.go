// Package credentials derives verifiable-credential payloads from the
// organized record hierarchy. Payloads are canonically serialized at
// generation time, so regenerating over the same hierarchy is byte-identical
// and the content hash doubles as the dedup key in the log store.
package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/evlocker/inspection-pipeline/internal/canonical"
	"github.com/evlocker/inspection-pipeline/internal/hierarchy"
	"github.com/evlocker/inspection-pipeline/internal/source"
)

// Credential is one generated credential payload ready for logging and
// handoff. Payload holds the canonical JSON bytes; Hash is its SHA-256.
type Credential struct {
	SystemType    string
	Type          string
	SchemaName    string
	SchemaVersion string
	CredentialID  string
	Payload       []byte
	Hash          string

	// Provenance for the credential log.
	SourceCollection string
	SourceID         string
	ProjectID        string
	ProjectName      string
}

// HistoryEntry records that one inspection or observation was processed.
// Site credentials have no history row.
type HistoryEntry struct {
	SystemType  string
	Collection  source.Collection
	ProjectID   string
	ProjectName string
	ObjectID    string
	ObjectDate  time.Time
	UploadDate  time.Time
	UploadHash  string
	Success     bool
	Message     string
}

// SiteChecker reports whether a foundational site credential was ever issued
// for a project. Backed by the credential log.
type SiteChecker interface {
	HasSiteCredential(ctx context.Context, projectID string) (bool, error)
}

// InspectorResolver resolves inspector references to identities. Backed by
// the document source.
type InspectorResolver interface {
	InspectorDetails(ctx context.Context, inspectorRef string) (source.Inspector, error)
}

// Generator walks organized sites and emits credentials plus history entries.
type Generator struct {
	systemType string
	sites      SiteChecker
	inspectors InspectorResolver
}

// NewGenerator creates a generator.
func NewGenerator(systemType string, sites SiteChecker, inspectors InspectorResolver) *Generator {
	return &Generator{
		systemType: systemType,
		sites:      sites,
		inspectors: inspectors,
	}
}

// Generate emits one site credential per project (at most once, ever), one
// inspection credential per inspection and one observation credential per
// observation, pairing inspection and observation credentials with history
// entries. A failed inspector resolution aborts the batch: a credential
// without attribution is not valid.
func (g *Generator) Generate(ctx context.Context, sites []hierarchy.Site) ([]Credential, []HistoryEntry, error) {
	var creds []Credential
	var entries []HistoryEntry

	for _, site := range sites {
		issued, err := g.sites.HasSiteCredential(ctx, site.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check site credential for %s: %w", site.ProjectID, err)
		}
		if !issued {
			cred, err := g.siteCredential(site)
			if err != nil {
				return nil, nil, err
			}
			creds = append(creds, cred)
		}

		for _, inspection := range site.Inspections {
			inspector, err := g.inspectors.InspectorDetails(ctx, inspection.InspectorRef)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to resolve inspector for inspection %s: %w", inspection.ObjectID, err)
			}

			cred, err := g.inspectionCredential(site, inspection, inspector)
			if err != nil {
				return nil, nil, err
			}
			creds = append(creds, cred)
			entries = append(entries, g.historyEntry(site, source.CollectionInspection,
				inspection.ObjectID, inspection.ObjectDate, inspection.UploadDate, inspection.ContentHash))

			for _, observation := range inspection.Observations {
				cred, err := g.observationCredential(site, inspection, observation)
				if err != nil {
					return nil, nil, err
				}
				creds = append(creds, cred)
				entries = append(entries, g.historyEntry(site, source.CollectionObservation,
					observation.ObjectID, observation.ObjectDate, observation.UploadDate, observation.ContentHash))
			}
		}
	}

	return creds, entries, nil
}

func (g *Generator) siteCredential(site hierarchy.Site) (Credential, error) {
	payload := map[string]interface{}{
		"project_id":        site.ProjectID,
		"entity_type":       site.ProjectType,
		"project_name":      site.ProjectName,
		"location":          siteLocation,
		"entity_status":     siteStatus,
		"effective_date":    site.ObjectDate,
		"registration_date": site.ObjectDate,
	}
	return g.build(TypeSite, SiteSchemaName, SiteSchemaVersion, site.ProjectID,
		payload, "Site", site.ProjectID, site)
}

func (g *Generator) inspectionCredential(site hierarchy.Site, inspection hierarchy.Inspection, inspector source.Inspector) (Credential, error) {
	payload := map[string]interface{}{
		"project_id":      site.ProjectID,
		"inspection_id":   inspection.ObjectID,
		"created_date":    inspection.ObjectDate,
		"updated_date":    inspection.ObjectDate,
		"effective_date":  inspection.ObjectDate,
		"hash_value":      inspection.ContentHash,
		"inspector_name":  inspector.Name,
		"inspector_email": inspector.Email,
	}
	credID := site.ProjectID + ":" + inspection.ObjectID
	return g.build(TypeInspection, InspectionSchemaName, InspectionSchemaVersion, credID,
		payload, string(source.CollectionInspection), inspection.ObjectID, site)
}

func (g *Generator) observationCredential(site hierarchy.Site, inspection hierarchy.Inspection, observation hierarchy.Observation) (Credential, error) {
	payload := map[string]interface{}{
		"project_id":     site.ProjectID,
		"inspection_id":  inspection.ObjectID,
		"document_id":    observation.ObjectID,
		"created_date":   observation.ObjectDate,
		"updated_date":   observation.ObjectDate,
		"effective_date": observation.ObjectDate,
		"hash_value":     observation.ContentHash,
		"requirement":    observation.Requirement,
		"has_media":      len(observation.MediaHashes),
	}
	if observation.Coordinates != nil {
		payload["coordinates"] = map[string]interface{}{
			"latitude":  observation.Coordinates.Latitude,
			"longitude": observation.Coordinates.Longitude,
		}
	} else {
		payload["coordinates"] = nil
	}
	credID := site.ProjectID + ":" + inspection.ObjectID + ":" + observation.ObjectID
	return g.build(TypeObservation, ObservationSchemaName, ObservationSchemaVersion, credID,
		payload, string(source.CollectionObservation), observation.ObjectID, site)
}

func (g *Generator) build(credType, schemaName, schemaVersion, credID string,
	payload map[string]interface{}, sourceCollection, sourceID string, site hierarchy.Site) (Credential, error) {

	data, err := canonical.Marshal(payload)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to serialize %s credential %s: %w", credType, credID, err)
	}
	hash, err := canonical.Hash(payload)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to hash %s credential %s: %w", credType, credID, err)
	}
	return Credential{
		SystemType:       g.systemType,
		Type:             credType,
		SchemaName:       schemaName,
		SchemaVersion:    schemaVersion,
		CredentialID:     credID,
		Payload:          data,
		Hash:             hash,
		SourceCollection: sourceCollection,
		SourceID:         sourceID,
		ProjectID:        site.ProjectID,
		ProjectName:      site.ProjectName,
	}, nil
}

func (g *Generator) historyEntry(site hierarchy.Site, collection source.Collection,
	objectID string, objectDate, uploadDate time.Time, uploadHash string) HistoryEntry {

	return HistoryEntry{
		SystemType:  g.systemType,
		Collection:  collection,
		ProjectID:   site.ProjectID,
		ProjectName: site.ProjectName,
		ObjectID:    objectID,
		ObjectDate:  objectDate,
		UploadDate:  uploadDate,
		UploadHash:  uploadHash,
		Success:     true,
	}
}

// Package hierarchy reconstructs Site → Inspection → Observation → Media
// trees from the flat, unordered records of one batch. Trees live only for
// the duration of a run; what persists are the credentials and history rows
// derived from them.
package hierarchy

import (
	"time"

	"github.com/evlocker/inspection-pipeline/internal/projects"
	"github.com/evlocker/inspection-pipeline/internal/source"
)

// Site groups the inspections of one project.
type Site struct {
	ProjectID   string
	ProjectType string
	ProjectName string
	// ObjectDate is the earliest known activity for the site: the minimum
	// object date across its inspections.
	ObjectDate  time.Time
	Inspections []Inspection
}

// Inspection is one inspection with its attached observations.
type Inspection struct {
	ObjectID     string
	ObjectDate   time.Time
	UploadDate   time.Time
	InspectorRef string
	ContentHash  string
	Observations []Observation
}

// Observation is one observation with the hashes of its attached media.
type Observation struct {
	ObjectID    string
	ObjectDate  time.Time
	UploadDate  time.Time
	Title       string
	Requirement string
	Coordinates *source.Coordinates
	MediaHashes []string
	ContentHash string
}

// unknownProjectType marks sites whose project the metadata dataset does not
// know.
const unknownProjectType = "N.A."

// Organize assembles sites from hashed records. Inspections resolve their
// project through the metadata resolver, falling back to an identifier
// derived from the raw display name when the dataset has no entry.
// Observations whose parent inspection is not in the batch are dropped for
// this run; their own records stay unprocessed and will be retried, so they
// must not be attached to a placeholder site.
func Organize(records []source.Record, resolver *projects.Resolver) []Site {
	inspections := source.FilterKind(records, source.KindInspection)

	var sites []Site
	siteIndex := make(map[string]int)

	for _, inspection := range inspections {
		projectID := projects.FallbackID(inspection.ProjectName)
		projectType := unknownProjectType
		if project, err := resolver.Resolve(inspection.ProjectName); err == nil {
			projectID = project.ID
			projectType = project.Type
		}

		idx, ok := siteIndex[projectID]
		if !ok {
			sites = append(sites, Site{
				ProjectID:   projectID,
				ProjectType: projectType,
				ProjectName: inspection.ProjectName,
				ObjectDate:  inspection.ObjectDate,
			})
			idx = len(sites) - 1
			siteIndex[projectID] = idx
		}

		node := Inspection{
			ObjectID:     inspection.ObjectID,
			ObjectDate:   inspection.ObjectDate,
			UploadDate:   inspection.UploadDate,
			InspectorRef: inspection.InspectorRef,
			ContentHash:  inspection.ContentHash,
		}
		for _, observation := range source.ChildrenOf(records, source.KindObservation, inspection.ObjectID) {
			node.Observations = append(node.Observations, Observation{
				ObjectID:    observation.ObjectID,
				ObjectDate:  observation.ObjectDate,
				UploadDate:  observation.UploadDate,
				Title:       observation.Title,
				Requirement: observation.Requirement,
				Coordinates: observation.Coordinates,
				MediaHashes: observation.MediaHashes,
				ContentHash: observation.ContentHash,
			})
		}

		sites[idx].Inspections = append(sites[idx].Inspections, node)
		if node.ObjectDate.Before(sites[idx].ObjectDate) {
			sites[idx].ObjectDate = node.ObjectDate
		}
	}

	return sites
}

package credentials

// Credential type codes and the schema each one is issued under.
const (
	TypeSite        = "SITE"
	TypeInspection  = "INSPC"
	TypeObservation = "OBSVN"

	SiteSchemaName           = "inspection-site.evidence-locker"
	SiteSchemaVersion        = "0.0.1"
	InspectionSchemaName     = "safety-inspection.evidence-locker"
	InspectionSchemaVersion  = "0.0.1"
	ObservationSchemaName    = "inspection-document.evidence-locker"
	ObservationSchemaVersion = "0.0.1"
)

// Foundational site credentials carry a fixed location and active status.
const (
	siteLocation = "Vancouver"
	siteStatus   = "ACT"
)

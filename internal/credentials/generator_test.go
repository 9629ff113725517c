package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evlocker/inspection-pipeline/internal/hierarchy"
	"github.com/evlocker/inspection-pipeline/internal/source"
)

type fakeSiteChecker struct {
	issued map[string]bool
	err    error
}

func (f *fakeSiteChecker) HasSiteCredential(_ context.Context, projectID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.issued[projectID], nil
}

type fakeInspectorResolver struct {
	inspectors map[string]source.Inspector
}

func (f *fakeInspectorResolver) InspectorDetails(_ context.Context, ref string) (source.Inspector, error) {
	inspector, ok := f.inspectors[ref]
	if !ok {
		return source.Inspector{}, errors.New("inspector not found")
	}
	return inspector, nil
}

func testSite() hierarchy.Site {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return hierarchy.Site{
		ProjectID:   "P-001",
		ProjectType: "Mines",
		ProjectName: "Acme Mine",
		ObjectDate:  day,
		Inspections: []hierarchy.Inspection{
			{
				ObjectID:     "I1",
				ObjectDate:   day,
				UploadDate:   day,
				InspectorRef: "U1",
				ContentHash:  "ihash",
				Observations: []hierarchy.Observation{
					{
						ObjectID:    "O1",
						ObjectDate:  day,
						UploadDate:  day,
						Requirement: "Safety check",
						MediaHashes: []string{"mh1", "mh2"},
						ContentHash: "ohash",
					},
				},
			},
		},
	}
}

func testGenerator(checker *fakeSiteChecker) *Generator {
	return NewGenerator("INSPECT_EL", checker, &fakeInspectorResolver{
		inspectors: map[string]source.Inspector{
			"U1": {Name: "Pat Doe", Email: "pat@example.com"},
		},
	})
}

func credsByType(creds []Credential, credType string) []Credential {
	var out []Credential
	for _, c := range creds {
		if c.Type == credType {
			out = append(out, c)
		}
	}
	return out
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("site credential issued at most once", func(t *testing.T) {
		checker := &fakeSiteChecker{issued: map[string]bool{}}
		gen := testGenerator(checker)

		creds, _, err := gen.Generate(ctx, []hierarchy.Site{testSite()})
		require.NoError(t, err)
		assert.Len(t, credsByType(creds, TypeSite), 1)

		// Second run after the credential was logged: no new site credential.
		checker.issued["P-001"] = true
		creds, _, err = gen.Generate(ctx, []hierarchy.Site{testSite()})
		require.NoError(t, err)
		assert.Empty(t, credsByType(creds, TypeSite))
		assert.Len(t, creds, 2)
	})

	t.Run("one credential per inspection and observation", func(t *testing.T) {
		gen := testGenerator(&fakeSiteChecker{issued: map[string]bool{}})
		creds, entries, err := gen.Generate(ctx, []hierarchy.Site{testSite()})
		require.NoError(t, err)

		require.Len(t, creds, 3)
		inspc := credsByType(creds, TypeInspection)
		require.Len(t, inspc, 1)
		assert.Equal(t, "P-001:I1", inspc[0].CredentialID)
		assert.Equal(t, InspectionSchemaName, inspc[0].SchemaName)

		obsvn := credsByType(creds, TypeObservation)
		require.Len(t, obsvn, 1)
		assert.Equal(t, "P-001:I1:O1", obsvn[0].CredentialID)

		// History rows for inspection and observation, none for the site.
		require.Len(t, entries, 2)
		assert.Equal(t, source.CollectionInspection, entries[0].Collection)
		assert.Equal(t, "ihash", entries[0].UploadHash)
		assert.Equal(t, source.CollectionObservation, entries[1].Collection)
		assert.True(t, entries[0].Success)
	})

	t.Run("payloads carry resolved fields", func(t *testing.T) {
		gen := testGenerator(&fakeSiteChecker{issued: map[string]bool{}})
		creds, _, err := gen.Generate(ctx, []hierarchy.Site{testSite()})
		require.NoError(t, err)

		var sitePayload map[string]interface{}
		require.NoError(t, json.Unmarshal(credsByType(creds, TypeSite)[0].Payload, &sitePayload))
		assert.Equal(t, "ACT", sitePayload["entity_status"])
		assert.Equal(t, "Mines", sitePayload["entity_type"])
		assert.Equal(t, "2024-01-01T00:00:00Z", sitePayload["effective_date"])

		var inspcPayload map[string]interface{}
		require.NoError(t, json.Unmarshal(credsByType(creds, TypeInspection)[0].Payload, &inspcPayload))
		assert.Equal(t, "Pat Doe", inspcPayload["inspector_name"])
		assert.Equal(t, "pat@example.com", inspcPayload["inspector_email"])
		assert.Equal(t, "ihash", inspcPayload["hash_value"])

		var obsPayload map[string]interface{}
		require.NoError(t, json.Unmarshal(credsByType(creds, TypeObservation)[0].Payload, &obsPayload))
		assert.Equal(t, "Safety check", obsPayload["requirement"])
		assert.Equal(t, float64(2), obsPayload["has_media"])
		assert.Nil(t, obsPayload["coordinates"])
	})

	t.Run("regeneration is byte identical", func(t *testing.T) {
		gen := testGenerator(&fakeSiteChecker{issued: map[string]bool{}})
		first, _, err := gen.Generate(ctx, []hierarchy.Site{testSite()})
		require.NoError(t, err)
		second, _, err := gen.Generate(ctx, []hierarchy.Site{testSite()})
		require.NoError(t, err)

		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].Payload, second[i].Payload)
			assert.Equal(t, first[i].Hash, second[i].Hash)
		}
	})

	t.Run("unresolvable inspector is fatal", func(t *testing.T) {
		site := testSite()
		site.Inspections[0].InspectorRef = "U-MISSING"
		gen := testGenerator(&fakeSiteChecker{issued: map[string]bool{}})

		_, _, err := gen.Generate(ctx, []hierarchy.Site{site})
		assert.Error(t, err)
	})

	t.Run("site checker failure is fatal", func(t *testing.T) {
		gen := testGenerator(&fakeSiteChecker{err: errors.New("connection refused")})
		_, _, err := gen.Generate(ctx, []hierarchy.Site{testSite()})
		assert.Error(t, err)
	})
}

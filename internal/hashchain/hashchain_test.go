package hashchain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evlocker/inspection-pipeline/internal/source"
)

func testRecords() []source.Record {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []source.Record{
		{SystemType: "INSPECT_EL", Collection: source.CollectionInspection, ObjectID: "I1", ObjectDate: base, UploadDate: base},
		{SystemType: "INSPECT_EL", Collection: source.CollectionObservation, ObjectID: "O1", ParentID: "I1", ObjectDate: base, UploadDate: base},
		{SystemType: "INSPECT_EL", Collection: source.CollectionPhoto, ObjectID: "M1", ParentID: "O1", ObjectDate: base, UploadDate: base},
		{SystemType: "INSPECT_EL", Collection: source.CollectionPhoto, ObjectID: "M2", ParentID: "O1", ObjectDate: base, UploadDate: base},
		{SystemType: "INSPECT_EL", Collection: source.CollectionAudio, ObjectID: "M3", ParentID: "O1", ObjectDate: base, UploadDate: base},
	}
}

func hashByID(t *testing.T, records []source.Record, id string) source.Record {
	t.Helper()
	for _, rec := range records {
		if rec.ObjectID == id {
			return rec
		}
	}
	t.Fatalf("record %s not found", id)
	return source.Record{}
}

func TestComputeHashes(t *testing.T) {
	t.Run("every record gets a hash", func(t *testing.T) {
		hashed, err := ComputeHashes(testRecords())
		require.NoError(t, err)
		for _, rec := range hashed {
			assert.NotEmpty(t, rec.ContentHash, "record %s", rec.ObjectID)
			assert.Len(t, rec.ContentHash, 64)
		}
	})

	t.Run("input is not mutated", func(t *testing.T) {
		records := testRecords()
		_, err := ComputeHashes(records)
		require.NoError(t, err)
		for _, rec := range records {
			assert.Empty(t, rec.ContentHash)
			assert.Nil(t, rec.MediaHashes)
		}
	})

	t.Run("observation media hashes sorted by object id", func(t *testing.T) {
		hashed, err := ComputeHashes(testRecords())
		require.NoError(t, err)

		obs := hashByID(t, hashed, "O1")
		require.Len(t, obs.MediaHashes, 3)
		assert.Equal(t, hashByID(t, hashed, "M1").ContentHash, obs.MediaHashes[0])
		assert.Equal(t, hashByID(t, hashed, "M2").ContentHash, obs.MediaHashes[1])
		assert.Equal(t, hashByID(t, hashed, "M3").ContentHash, obs.MediaHashes[2])
	})

	t.Run("shuffled fetch order never changes hashes", func(t *testing.T) {
		reference, err := ComputeHashes(testRecords())
		require.NoError(t, err)
		refObs := hashByID(t, reference, "O1")
		refInspc := hashByID(t, reference, "I1")

		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 10; i++ {
			shuffled := testRecords()
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			hashed, err := ComputeHashes(shuffled)
			require.NoError(t, err)
			assert.Equal(t, refObs.ContentHash, hashByID(t, hashed, "O1").ContentHash)
			assert.Equal(t, refInspc.ContentHash, hashByID(t, hashed, "I1").ContentHash)
		}
	})

	t.Run("zero children still hash", func(t *testing.T) {
		base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		hashed, err := ComputeHashes([]source.Record{
			{Collection: source.CollectionInspection, ObjectID: "I9", ObjectDate: base},
			{Collection: source.CollectionObservation, ObjectID: "O9", ParentID: "I9", ObjectDate: base},
		})
		require.NoError(t, err)

		// A childless observation hashes the empty list.
		obs := hashByID(t, hashed, "O9")
		assert.NotEmpty(t, obs.ContentHash)
		assert.Empty(t, obs.MediaHashes)

		// The inspection hash covers its single observation's hash.
		inspc := hashByID(t, hashed, "I9")
		assert.NotEmpty(t, inspc.ContentHash)
		assert.NotEqual(t, obs.ContentHash, inspc.ContentHash)
	})

	t.Run("suffix ref children are included", func(t *testing.T) {
		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		hashed, err := ComputeHashes([]source.Record{
			{Collection: source.CollectionObservation, ObjectID: "O1", ObjectDate: base},
			{Collection: source.CollectionPhoto, ObjectID: "M1", ParentRef: "Observation$O1", ObjectDate: base},
		})
		require.NoError(t, err)
		assert.Len(t, hashByID(t, hashed, "O1").MediaHashes, 1)
	})

	t.Run("media content hash differs per object id", func(t *testing.T) {
		base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
		hashed, err := ComputeHashes([]source.Record{
			{Collection: source.CollectionPhoto, ObjectID: "M1", ParentID: "O1", ObjectDate: base},
			{Collection: source.CollectionPhoto, ObjectID: "M2", ParentID: "O1", ObjectDate: base},
		})
		require.NoError(t, err)
		assert.NotEqual(t, hashByID(t, hashed, "M1").ContentHash, hashByID(t, hashed, "M2").ContentHash)
	})
}

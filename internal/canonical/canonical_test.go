package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	t.Run("keys are sorted", func(t *testing.T) {
		data, err := Marshal(map[string]interface{}{
			"zulu":  1,
			"alpha": 2,
			"mike":  3,
		})
		require.NoError(t, err)
		assert.Equal(t, `{"alpha":2,"mike":3,"zulu":1}`, string(data))
	})

	t.Run("timestamps are RFC3339 UTC", func(t *testing.T) {
		loc, err := time.LoadLocation("America/Los_Angeles")
		require.NoError(t, err)
		ts := time.Date(2024, 1, 1, 8, 30, 0, 0, loc)

		data, err := Marshal(map[string]interface{}{"objectDate": ts})
		require.NoError(t, err)
		assert.Equal(t, `{"objectDate":"2024-01-01T16:30:00Z"}`, string(data))
	})

	t.Run("nil pointer time encodes as null", func(t *testing.T) {
		var ts *time.Time
		data, err := Marshal(map[string]interface{}{"date": ts})
		require.NoError(t, err)
		assert.Equal(t, `{"date":null}`, string(data))
	})

	t.Run("empty string list encodes as empty array", func(t *testing.T) {
		data, err := Marshal([]string{})
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(data))

		data, err = Marshal([]string(nil))
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(data))
	})

	t.Run("nested containers are normalized", func(t *testing.T) {
		ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		data, err := Marshal(map[string]interface{}{
			"inner": map[string]interface{}{"when": ts},
			"list":  []interface{}{ts},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"inner":{"when":"2024-06-01T00:00:00Z"},"list":["2024-06-01T00:00:00Z"]}`, string(data))
	})
}

func TestHash(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		v := map[string]interface{}{"b": 2, "a": 1}
		h1, err := Hash(v)
		require.NoError(t, err)
		h2, err := Hash(map[string]interface{}{"a": 1, "b": 2})
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
		assert.Len(t, h1, 64)
	})

	t.Run("distinct inputs produce distinct hashes", func(t *testing.T) {
		h1, err := Hash([]string{"x"})
		require.NoError(t, err)
		h2, err := Hash([]string{"y"})
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})
}

package eventlog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsHashUniqueViolation(t *testing.T) {
	t.Run("unique violation on hash index", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Constraint: credentialHashIndex}
		assert.True(t, isHashUniqueViolation(err))
	})

	t.Run("wrapped error is still detected", func(t *testing.T) {
		inner := &pq.Error{Code: "23505", Constraint: credentialHashIndex}
		err := fmt.Errorf("failed to insert credential: %w", inner)
		assert.True(t, isHashUniqueViolation(err))
	})

	t.Run("unique violation on other constraint", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Constraint: "some_other_idx"}
		assert.False(t, isHashUniqueViolation(err))
	})

	t.Run("other error codes", func(t *testing.T) {
		assert.False(t, isHashUniqueViolation(&pq.Error{Code: "08006", Constraint: credentialHashIndex}))
		assert.False(t, isHashUniqueViolation(errors.New("connection refused")))
		assert.False(t, isHashUniqueViolation(nil))
	})
}

func TestIsLogTable(t *testing.T) {
	assert.True(t, isLogTable(TableEventHistory))
	assert.True(t, isLogTable(TableCredentialLog))
	assert.False(t, isLogTable("watermark"))
	assert.False(t, isLogTable("credential_log; DROP TABLE watermark"))
}

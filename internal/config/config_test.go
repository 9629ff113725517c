package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		t.Setenv("EVENT_LOG_DB_URL", "postgres://localhost:5432/locker")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "mongodb://localhost:27017", cfg.SourceURI)
		assert.Equal(t, "inspections", cfg.SourceDatabase)
		assert.Equal(t, DefaultSystemType, cfg.SystemType)
		assert.Equal(t, "projects.json", cfg.ProjectsFile)
	})

	t.Run("missing log store URL fails", func(t *testing.T) {
		t.Setenv("EVENT_LOG_DB_URL", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("batch limit", func(t *testing.T) {
		t.Setenv("EVENT_LOG_DB_URL", "postgres://localhost:5432/locker")
		t.Setenv("PIPELINE_BATCH_LIMIT", "500")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 500, cfg.BatchLimit)

		t.Setenv("PIPELINE_BATCH_LIMIT", "lots")
		_, err = Load()
		assert.Error(t, err)
	})

	t.Run("overrides win", func(t *testing.T) {
		t.Setenv("EVENT_LOG_DB_URL", "postgres://localhost:5432/locker")
		t.Setenv("PIPELINE_SYSTEM_TYPE", "OTHER_EL")
		t.Setenv("PROJECTS_API_URL", "https://projects.example.com/api/projects/published")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "OTHER_EL", cfg.SystemType)
		assert.Equal(t, "https://projects.example.com/api/projects/published", cfg.ProjectsAPIURL)
	})
}

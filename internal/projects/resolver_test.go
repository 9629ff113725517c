package projects

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver(t *testing.T) {
	resolver, err := NewResolver([]Project{
		{ID: "P-001", Type: "Mines", Name: "Acme Mine"},
		{ID: "P-002", Type: "Energy", Name: "North Dam"},
	})
	require.NoError(t, err)

	t.Run("resolves known project", func(t *testing.T) {
		p, err := resolver.Resolve("Acme Mine")
		require.NoError(t, err)
		assert.Equal(t, "P-001", p.ID)
		assert.Equal(t, "Mines", p.Type)
	})

	t.Run("unknown project returns ErrNotFound", func(t *testing.T) {
		_, err := resolver.Resolve("Ghost Site")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestNewResolver_Ambiguous(t *testing.T) {
	_, err := NewResolver([]Project{
		{ID: "P-001", Type: "Mines", Name: "Acme Mine"},
		{ID: "P-009", Type: "Energy", Name: "Acme Mine"},
	})
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestFallbackID(t *testing.T) {
	assert.Equal(t, "ACMEMINE", FallbackID("Acme Mine"))
	assert.Equal(t, "AVERYLONGPRO", FallbackID("A Very Long Project Name"))
	assert.Equal(t, "", FallbackID(""))
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.json")
	data := `[{"code":"P-001","type":"Mines","name":"Acme Mine"}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	resolver, err := FileLoader(path)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.Len())

	p, err := resolver.Resolve("Acme Mine")
	require.NoError(t, err)
	assert.Equal(t, "P-001", p.ID)
}

func TestFileLoader_Missing(t *testing.T) {
	_, err := FileLoader(filepath.Join(t.TempDir(), "nope.json"))(context.Background())
	assert.Error(t, err)
}

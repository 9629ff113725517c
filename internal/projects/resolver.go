// Package projects resolves project display names to canonical project
// identifiers and types from a published project dataset. The dataset is
// static for the duration of a batch run and is loaded fresh at the start of
// each run.
package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

var (
	// ErrNotFound is returned when no dataset entry matches the name.
	ErrNotFound = errors.New("project not found")

	// ErrAmbiguous means more than one dataset entry shares a name. This is
	// a configuration error: resolving silently would risk attributing
	// credentials to the wrong project.
	ErrAmbiguous = errors.New("ambiguous project metadata")
)

// Project is one entry of the published project dataset.
type Project struct {
	ID   string `json:"code"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Resolver maps project display names to canonical projects.
type Resolver struct {
	byName map[string]Project
}

// NewResolver builds a resolver from dataset entries. Duplicate names fail
// loudly with ErrAmbiguous.
func NewResolver(entries []Project) (*Resolver, error) {
	byName := make(map[string]Project, len(entries))
	for _, p := range entries {
		if _, ok := byName[p.Name]; ok {
			return nil, fmt.Errorf("%w: more than one entry named %q", ErrAmbiguous, p.Name)
		}
		byName[p.Name] = p
	}
	return &Resolver{byName: byName}, nil
}

// Resolve returns the canonical project for a display name, or ErrNotFound.
func (r *Resolver) Resolve(name string) (Project, error) {
	p, ok := r.byName[name]
	if !ok {
		return Project{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// Len returns the number of dataset entries.
func (r *Resolver) Len() int {
	return len(r.byName)
}

// FallbackID derives a project identifier from a display name when the
// dataset has no entry: the first 12 non-space characters, uppercased.
func FallbackID(name string) string {
	compact := strings.ToUpper(strings.Join(strings.Fields(name), ""))
	if len(compact) <= 12 {
		return compact
	}
	return compact[:12]
}

// Loader produces a freshly loaded resolver for one batch run.
type Loader func(ctx context.Context) (*Resolver, error)

// FileLoader loads the dataset from a JSON file on each call.
func FileLoader(path string) Loader {
	return func(ctx context.Context) (*Resolver, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read project dataset: %w", err)
		}
		return parse(data)
	}
}

// HTTPLoader fetches the published dataset from the project registry API on
// each call.
func HTTPLoader(url string) Loader {
	client := &http.Client{}
	return func(ctx context.Context) (*Resolver, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch project dataset: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("project dataset fetch failed with status %d", resp.StatusCode)
		}

		var entries []Project
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to decode project dataset: %w", err)
		}
		return NewResolver(entries)
	}
}

func parse(data []byte) (*Resolver, error) {
	var entries []Project
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse project dataset: %w", err)
	}
	return NewResolver(entries)
}

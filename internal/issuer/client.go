// Package issuer hands generated credentials to the external
// credential-issuing agent. The handoff is one-way: payloads are posted as
// opaque JSON and the pipeline never waits for or interprets issuance
// confirmations.
package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evlocker/inspection-pipeline/internal/credentials"
)

// Client posts credentials to the issuer agent's API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the agent at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// submission is the wire shape of one handed-off credential.
type submission struct {
	CredentialType string          `json:"credential_type"`
	SchemaName     string          `json:"schema_name"`
	SchemaVersion  string          `json:"schema_version"`
	CredentialID   string          `json:"credential_id"`
	Payload        json.RawMessage `json:"payload"`
}

// Submit posts a batch of credentials to the agent. Non-2xx responses are
// errors; the response body is otherwise ignored.
func (c *Client) Submit(ctx context.Context, creds []credentials.Credential) error {
	if len(creds) == 0 {
		return nil
	}

	submissions := make([]submission, 0, len(creds))
	for _, cred := range creds {
		submissions = append(submissions, submission{
			CredentialType: cred.Type,
			SchemaName:     cred.SchemaName,
			SchemaVersion:  cred.SchemaVersion,
			CredentialID:   cred.CredentialID,
			Payload:        json.RawMessage(cred.Payload),
		})
	}

	body, err := json.Marshal(submissions)
	if err != nil {
		return fmt.Errorf("failed to marshal credential submissions: %w", err)
	}

	url := fmt.Sprintf("%s/issue-credential", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit credentials: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused; confirmations are handled by
	// the agent's own callback flow, not here.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("credential submission failed with status %d", resp.StatusCode)
	}
	return nil
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// CRMContactRequest is the upsert payload sent to the CRM
type CRMContactRequest struct {
	ContactIdentity
	Tags         []string          `json:"tags,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// HTTPCRMClient upserts contacts through the CRM's JSON API
type HTTPCRMClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPCRMClient creates a CRM client. With an empty baseURL every upsert
// is only logged.
func NewHTTPCRMClient(baseURL, apiKey string) *HTTPCRMClient {
	return &HTTPCRMClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// UpsertContact implements CRMSync
func (c *HTTPCRMClient) UpsertContact(ctx context.Context, identity ContactIdentity, tags []string, customFields map[string]string) error {
	if identity.Email == "" && identity.Phone == "" {
		return fmt.Errorf("contact needs an email or phone")
	}
	if c.baseURL == "" {
		log.Printf("[CRM] not configured, skipping upsert for %s %v", identity.Email, tags)
		return nil
	}

	body, err := json.Marshal(CRMContactRequest{ContactIdentity: identity, Tags: tags, CustomFields: customFields})
	if err != nil {
		return fmt.Errorf("failed to encode contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts/upsert", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build CRM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach CRM: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("CRM upsert failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

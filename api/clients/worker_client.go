// Package clients provides HTTP clients for the worker registry service API.
package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tairon-ai/phala-worker-registry/api"
	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

// WorkerClient implements api.WorkerProvider over HTTP.
type WorkerClient struct {
	// ServerAddr is the base URL of the registry service.
	ServerAddr string

	// HTTPClient optionally overrides http.DefaultClient.
	HTTPClient *http.Client
}

func (c *WorkerClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// ListWorkers fetches up to limit classified worker records.
func (c *WorkerClient) ListWorkers(limit int, onlineOnly bool, category *interfaces.CapabilityCategory) (*api.ListWorkersResponse, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if onlineOnly {
		params.Set("online", "true")
	}
	if category != nil {
		params.Set("category", string(*category))
	}

	resp, err := c.client().Get(fmt.Sprintf("%s/api/workers?%s", c.ServerAddr, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("could not request worker listing endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("worker listing", resp)
	}

	var parsed api.ListWorkersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse worker listing response: %w", err)
	}
	return &parsed, nil
}

// GetWorker fetches a single enriched worker record.
func (c *WorkerClient) GetWorker(pubkey interfaces.WorkerPubkey) (*interfaces.WorkerRecord, error) {
	resp, err := c.client().Get(fmt.Sprintf("%s/api/workers/%s", c.ServerAddr, pubkey))
	if err != nil {
		return nil, fmt.Errorf("could not request worker endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrWorkerNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, responseError("worker", resp)
	}

	var parsed interfaces.WorkerRecord
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse worker response: %w", err)
	}
	return &parsed, nil
}

// VerifyAttestation resolves a worker's attestation. reportData may be nil.
func (c *WorkerClient) VerifyAttestation(pubkey interfaces.WorkerPubkey, reportData []byte) (*interfaces.AttestationResult, error) {
	url := fmt.Sprintf("%s/api/workers/%s/attestation", c.ServerAddr, pubkey)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reportData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request attestation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrWorkerNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, responseError("attestation", resp)
	}

	var parsed interfaces.AttestationResult
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse attestation response: %w", err)
	}
	return &parsed, nil
}

func responseError(endpoint string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s endpoint returned non-200 response: %d", endpoint, resp.StatusCode)
	}
	return fmt.Errorf("%s endpoint returned error %d: %s", endpoint, resp.StatusCode, string(body))
}

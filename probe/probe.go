// Package probe implements live, individually time-boxed queries against the
// worker-status service.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

// Per-call budgets. A single slow worker must never stall a listing beyond
// its own probe budget, so every call carries its own deadline.
const (
	DefaultInfoTimeout  = 2 * time.Second
	DefaultStateTimeout = 1 * time.Second
)

// Client queries the worker-status service over HTTP. It implements
// interfaces.WorkerProbe.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	infoTimeout  time.Duration
	stateTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithInfoTimeout overrides the per-call budget for info queries.
func WithInfoTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.infoTimeout = d
		}
	}
}

// WithStateTimeout overrides the per-call budget for liveness queries.
func WithStateTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.stateTimeout = d
		}
	}
}

// NewClient creates a worker-status client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		httpClient:   http.DefaultClient,
		infoTimeout:  DefaultInfoTimeout,
		stateTimeout: DefaultStateTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type workerInfoResponse struct {
	ConfidenceLevel   uint8    `json:"confidenceLevel"`
	RuntimeVersion    string   `json:"runtimeVersion"`
	AttestationMethod string   `json:"attestationMethod"`
	FeatureFlags      []uint32 `json:"featureFlags"`
}

type workerSessionResponse struct {
	State string `json:"state"`
}

// GetInfo returns a worker's current attributes. An unknown worker yields
// interfaces.ErrWorkerNotFound; a call exceeding its own budget yields
// interfaces.ErrProbeTimeout unless the caller's context was cancelled.
func (c *Client) GetInfo(ctx context.Context, pubkey interfaces.WorkerPubkey) (*interfaces.WorkerInfo, error) {
	var parsed workerInfoResponse
	url := fmt.Sprintf("%s/workers/%s", c.baseURL, pubkey)
	if err := c.get(ctx, url, c.infoTimeout, &parsed); err != nil {
		return nil, err
	}

	return &interfaces.WorkerInfo{
		ConfidenceLevel:   parsed.ConfidenceLevel,
		RuntimeVersion:    parsed.RuntimeVersion,
		AttestationMethod: interfaces.AttestationMethod(parsed.AttestationMethod),
		FeatureFlags:      parsed.FeatureFlags,
	}, nil
}

// GetLivenessState returns a worker's current session state. Unrecognized
// states map to StateUnknown.
func (c *Client) GetLivenessState(ctx context.Context, pubkey interfaces.WorkerPubkey) (interfaces.LivenessState, error) {
	var parsed workerSessionResponse
	url := fmt.Sprintf("%s/workers/%s/session", c.baseURL, pubkey)
	if err := c.get(ctx, url, c.stateTimeout, &parsed); err != nil {
		return interfaces.StateUnknown, err
	}
	return interfaces.ParseLivenessState(parsed.State), nil
}

// get performs one deadline-bounded GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, url string, budget time.Duration, out interface{}) error {
	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The caller's cancellation takes precedence over our own budget.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if cctx.Err() != nil {
			return interfaces.ErrProbeTimeout
		}
		return fmt.Errorf("querying worker-status service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return interfaces.ErrWorkerNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("worker-status service returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse worker-status response: %w", err)
	}
	return nil
}

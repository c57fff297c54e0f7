// Package attestation resolves worker trust attestations via a primary
// remote verifier with an on-chain fallback.
package attestation

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

// DefaultVerifierTimeout bounds a single call to the remote verifier.
const DefaultVerifierTimeout = 10 * time.Second

// RemoteVerifier calls the attestation verification service over HTTP. It
// implements interfaces.AttestationVerifier.
type RemoteVerifier struct {
	// Address is the base URL of the verification service.
	Address string

	// HTTPClient optionally overrides http.DefaultClient.
	HTTPClient *http.Client

	// Timeout optionally overrides DefaultVerifierTimeout.
	Timeout time.Duration
}

type verifyRequest struct {
	Pubkey     string `json:"pubkey"`
	ReportData string `json:"reportData,omitempty"`
}

// Verify submits the worker's report data to the verification service.
func (v *RemoteVerifier) Verify(ctx context.Context, pubkey interfaces.WorkerPubkey, reportData []byte) (*interfaces.VerifierReport, error) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultVerifierTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(verifyRequest{
		Pubkey:     pubkey.String(),
		ReportData: hex.EncodeToString(reportData),
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/verify", v.Address)
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := v.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling attestation verifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("attestation verifier returned status %d: %s", resp.StatusCode, string(body))
	}

	var report interfaces.VerifierReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("could not parse verifier response: %w", err)
	}

	return &report, nil
}

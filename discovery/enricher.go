package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
	"github.com/tairon-ai/phala-worker-registry/metrics"
)

// Over-fetch policy defaults. The window amortizes expected filter rejection
// without unbounded probing; values are tunable via Config.
const (
	DefaultOverFetchMultiplier = 3
	DefaultOverFetchCap        = 30
)

// WorkerSet supplies the cached, ordered worker identity set.
type WorkerSet interface {
	Keys(ctx context.Context) ([]interfaces.WorkerPubkey, error)
}

// Config tunes the enricher's over-fetch window.
type Config struct {
	OverFetchMultiplier int
	OverFetchCap        int
}

func (c Config) withDefaults() Config {
	if c.OverFetchMultiplier <= 0 {
		c.OverFetchMultiplier = DefaultOverFetchMultiplier
	}
	if c.OverFetchCap <= 0 {
		c.OverFetchCap = DefaultOverFetchCap
	}
	return c
}

// ListResult is the outcome of one listing request. Processed and Shown let
// a caller distinguish "filtered out" from "registry exhausted".
type ListResult struct {
	TotalKnown int                        `json:"totalKnown"`
	Shown      int                        `json:"shown"`
	Processed  int                        `json:"processed"`
	Records    []*interfaces.WorkerRecord `json:"records"`
}

// Enricher drives bounded, over-fetching probes across a window of the
// cached identity set and assembles classified, filtered worker records.
// It holds no cross-request state; the worker set cache is the only shared
// slot and it is owned by the cache itself.
type Enricher struct {
	workers WorkerSet
	probe   interfaces.WorkerProbe
	cfg     Config
	log     *slog.Logger
	m       *metrics.Metrics

	now func() time.Time
}

// NewEnricher creates an enricher over the given worker set and probe. The
// metrics argument may be nil.
func NewEnricher(workers WorkerSet, probe interfaces.WorkerProbe, cfg Config, log *slog.Logger, m *metrics.Metrics) *Enricher {
	return &Enricher{
		workers: workers,
		probe:   probe,
		cfg:     cfg.withDefaults(),
		log:     log,
		m:       m,
		now:     time.Now,
	}
}

// List returns up to limit classified worker records matching the filters.
//
// The cached identity sequence is walked in order through a window of
// min(limit*multiplier, cap) keys. Keys are probed in batches of limit with
// bounded parallelism; within a batch, results keep key order. Probing stops
// as soon as enough matching records are collected or the window is
// exhausted. Individual probe failures skip the key silently; only an
// identity-set retrieval failure or external cancellation fails the listing.
func (e *Enricher) List(ctx context.Context, limit int, filters Filters) (*ListResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("invalid limit %d: must be at least 1", limit)
	}

	keys, err := e.workers.Keys(ctx)
	if err != nil {
		return nil, err
	}

	window := limit * e.cfg.OverFetchMultiplier
	if window > e.cfg.OverFetchCap {
		window = e.cfg.OverFetchCap
	}
	if window > len(keys) {
		window = len(keys)
	}

	records := make([]*interfaces.WorkerRecord, 0, limit)
	processed := 0

	for start := 0; start < window && len(records) < limit; start += limit {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("worker listing cancelled: %w", err)
		}

		end := start + limit
		if end > window {
			end = window
		}
		batch := keys[start:end]

		probed := make([]*interfaces.WorkerRecord, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(len(batch))
		for i, key := range batch {
			g.Go(func() error {
				rec, err := e.probeWorker(gctx, key)
				if err != nil {
					return err
				}
				probed[i] = rec
				return nil
			})
		}
		// probeWorker only returns cancellation errors; a cancelled listing
		// discards everything collected so far rather than returning a
		// partial window.
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("worker listing cancelled: %w", err)
		}

		processed += len(batch)
		for _, rec := range probed {
			if rec == nil {
				continue
			}
			if !filters.Matches(rec) {
				continue
			}
			records = append(records, rec)
			if len(records) == limit {
				break
			}
		}
	}

	return &ListResult{
		TotalKnown: len(keys),
		Shown:      len(records),
		Processed:  processed,
		Records:    records,
	}, nil
}

// Get probes, classifies and returns a single worker. Unlike List, a probe
// failure here is surfaced: interfaces.ErrWorkerNotFound for an unknown
// worker, a wrapped error otherwise.
func (e *Enricher) Get(ctx context.Context, pubkey interfaces.WorkerPubkey) (*interfaces.WorkerRecord, error) {
	info, err := e.probe.GetInfo(ctx, pubkey)
	if err != nil {
		if errors.Is(err, interfaces.ErrWorkerNotFound) {
			return nil, interfaces.ErrWorkerNotFound
		}
		return nil, fmt.Errorf("probing worker %s: %w", pubkey, err)
	}

	return e.buildRecord(ctx, pubkey, info), nil
}

// probeWorker performs the two-step probe for one key. Absence is an
// ordinary data case: a (nil, nil) return means the key is skipped. A
// non-nil error is returned only for external cancellation.
func (e *Enricher) probeWorker(ctx context.Context, pubkey interfaces.WorkerPubkey) (*interfaces.WorkerRecord, error) {
	info, err := e.probe.GetInfo(ctx, pubkey)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		switch {
		case errors.Is(err, interfaces.ErrProbeTimeout):
			if e.m != nil {
				e.m.ProbeTimeouts.Inc()
			}
			e.log.Debug("Worker probe timed out, skipping", "pubkey", pubkey.String())
		case errors.Is(err, interfaces.ErrWorkerNotFound):
			e.log.Debug("Worker not found, skipping", "pubkey", pubkey.String())
		default:
			if e.m != nil {
				e.m.ProbeFailures.Inc()
			}
			e.log.Debug("Worker probe failed, skipping", "pubkey", pubkey.String(), "err", err)
		}
		return nil, nil
	}

	return e.buildRecord(ctx, pubkey, info), nil
}

// buildRecord attaches the liveness state and the derived capability
// category to a successfully probed worker. A liveness timeout degrades to
// StateUnknown: partial data beats no data.
func (e *Enricher) buildRecord(ctx context.Context, pubkey interfaces.WorkerPubkey, info *interfaces.WorkerInfo) *interfaces.WorkerRecord {
	state, err := e.probe.GetLivenessState(ctx, pubkey)
	if err != nil {
		if errors.Is(err, interfaces.ErrProbeTimeout) && e.m != nil {
			e.m.ProbeTimeouts.Inc()
		}
		state = interfaces.StateUnknown
	}

	return &interfaces.WorkerRecord{
		Pubkey:             pubkey,
		ConfidenceLevel:    info.ConfidenceLevel,
		RuntimeVersion:     info.RuntimeVersion,
		AttestationMethod:  info.AttestationMethod,
		FeatureFlags:       info.FeatureFlags,
		CapabilityCategory: Classify(info.AttestationMethod, info.FeatureFlags),
		LivenessState:      state,
		LastUpdated:        e.now(),
	}
}

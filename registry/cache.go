package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
	"github.com/tairon-ai/phala-worker-registry/metrics"
)

// DefaultCacheTTL is how long an enumerated worker set is served without
// contacting the registry again.
const DefaultCacheTTL = 60 * time.Second

// cacheEntry is an immutable snapshot of the worker identity set. Entries are
// replaced wholesale, never mutated, so readers can never observe a torn set.
type cacheEntry struct {
	keys      []interfaces.WorkerPubkey
	fetchedAt time.Time
}

// WorkerSetCache memoizes the registry's worker identity set for a fixed TTL.
// The single entry slot is replaced atomically; concurrent refreshes are
// collapsed into one enumeration. A stale entry is preferred over failing the
// caller when the registry is unreachable.
type WorkerSetCache struct {
	source interfaces.IdentitySource
	ttl    time.Duration
	log    *slog.Logger
	m      *metrics.Metrics

	entry   atomic.Pointer[cacheEntry]
	refresh singleflight.Group

	now func() time.Time
}

// NewWorkerSetCache creates a cache over the given identity source. A
// non-positive ttl falls back to DefaultCacheTTL. The metrics argument may be
// nil.
func NewWorkerSetCache(source interfaces.IdentitySource, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *WorkerSetCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &WorkerSetCache{
		source: source,
		ttl:    ttl,
		log:    log,
		m:      m,
		now:    time.Now,
	}
}

// Keys returns the current worker identity set, refreshing it from the
// registry if the cached entry is older than the TTL. When the registry
// enumeration fails and a previous entry exists, that entry is served stale;
// interfaces.ErrSourceUnavailable is returned only when there is nothing to
// serve at all.
func (c *WorkerSetCache) Keys(ctx context.Context) ([]interfaces.WorkerPubkey, error) {
	if e := c.entry.Load(); e != nil && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.keys, nil
	}

	v, err, _ := c.refresh.Do("worker-set", func() (interface{}, error) {
		// A queued caller may find the entry already refreshed.
		if e := c.entry.Load(); e != nil && c.now().Sub(e.fetchedAt) < c.ttl {
			return e.keys, nil
		}

		keys, err := c.source.EnumerateWorkerIds(ctx)
		if err != nil {
			return nil, err
		}

		if c.m != nil {
			c.m.CacheRefreshes.Inc()
		}
		c.entry.Store(&cacheEntry{keys: keys, fetchedAt: c.now()})
		c.log.Debug("Refreshed worker identity set", "count", len(keys))
		return keys, nil
	})
	if err != nil {
		if e := c.entry.Load(); e != nil {
			if c.m != nil {
				c.m.CacheStaleServes.Inc()
			}
			c.log.Warn("Serving stale worker identity set, enumeration failed",
				"err", err, "age", c.now().Sub(e.fetchedAt).String())
			return e.keys, nil
		}
		return nil, fmt.Errorf("%w: %v (check the registry RPC endpoint)", interfaces.ErrSourceUnavailable, err)
	}

	return v.([]interfaces.WorkerPubkey), nil
}

// Age returns how old the cached entry is, or a negative duration when no
// entry exists yet.
func (c *WorkerSetCache) Age() time.Duration {
	e := c.entry.Load()
	if e == nil {
		return -1
	}
	return c.now().Sub(e.fetchedAt)
}

package discovery

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubWorkerSet struct {
	keys []interfaces.WorkerPubkey
	err  error
}

func (s *stubWorkerSet) Keys(ctx context.Context) ([]interfaces.WorkerPubkey, error) {
	return s.keys, s.err
}

// stubProbe scripts per-key probe behavior and records which keys were
// attempted.
type stubProbe struct {
	mu           sync.Mutex
	infos        map[interfaces.WorkerPubkey]*interfaces.WorkerInfo
	states       map[interfaces.WorkerPubkey]interfaces.LivenessState
	infoTimeouts map[interfaces.WorkerPubkey]bool
	stateTimeout map[interfaces.WorkerPubkey]bool
	delay        time.Duration
	attempted    []interfaces.WorkerPubkey
}

func newStubProbe() *stubProbe {
	return &stubProbe{
		infos:        map[interfaces.WorkerPubkey]*interfaces.WorkerInfo{},
		states:       map[interfaces.WorkerPubkey]interfaces.LivenessState{},
		infoTimeouts: map[interfaces.WorkerPubkey]bool{},
		stateTimeout: map[interfaces.WorkerPubkey]bool{},
	}
}

func (p *stubProbe) GetInfo(ctx context.Context, pubkey interfaces.WorkerPubkey) (*interfaces.WorkerInfo, error) {
	p.mu.Lock()
	p.attempted = append(p.attempted, pubkey)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.infoTimeouts[pubkey] {
		return nil, interfaces.ErrProbeTimeout
	}
	info, ok := p.infos[pubkey]
	if !ok {
		return nil, interfaces.ErrWorkerNotFound
	}
	return info, nil
}

func (p *stubProbe) GetLivenessState(ctx context.Context, pubkey interfaces.WorkerPubkey) (interfaces.LivenessState, error) {
	if p.stateTimeout[pubkey] {
		return interfaces.StateUnknown, interfaces.ErrProbeTimeout
	}
	state, ok := p.states[pubkey]
	if !ok {
		return interfaces.StateUnknown, nil
	}
	return state, nil
}

func (p *stubProbe) attemptedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attempted)
}

func keysN(n int) []interfaces.WorkerPubkey {
	keys := make([]interfaces.WorkerPubkey, n)
	for i := range keys {
		keys[i][0] = byte(i + 1)
	}
	return keys
}

func defaultInfo() *interfaces.WorkerInfo {
	return &interfaces.WorkerInfo{
		ConfidenceLevel:   1,
		RuntimeVersion:    "3.1.0",
		AttestationMethod: interfaces.MethodDCAP,
		FeatureFlags:      []uint32{3},
	}
}

func newTestEnricher(keys []interfaces.WorkerPubkey, probe *stubProbe) *Enricher {
	return NewEnricher(&stubWorkerSet{keys: keys}, probe, Config{}, testLogger(), nil)
}

func TestEnricher_List_AllHealthy(t *testing.T) {
	keys := keysN(5)
	probe := newStubProbe()
	for _, k := range keys {
		probe.infos[k] = defaultInfo()
		probe.states[k] = interfaces.StateReady
	}

	res, err := newTestEnricher(keys, probe).List(context.Background(), 3, Filters{})
	require.NoError(t, err)

	assert.Equal(t, 5, res.TotalKnown)
	assert.Equal(t, 3, res.Shown)
	assert.Equal(t, 3, res.Processed)
	require.Len(t, res.Records, 3)
	// Results keep the identity-set order.
	for i, rec := range res.Records {
		assert.Equal(t, keys[i], rec.Pubkey)
		assert.Equal(t, interfaces.CategoryDCAP, rec.CapabilityCategory)
	}
}

func TestEnricher_List_FilterRejectionExtendsWindow(t *testing.T) {
	keys := keysN(10)
	probe := newStubProbe()
	for i, k := range keys {
		probe.infos[k] = defaultInfo()
		if i == 2 || i == 7 {
			probe.states[k] = interfaces.StateReady
		} else {
			probe.states[k] = interfaces.StateUnresponsive
		}
	}

	res, err := newTestEnricher(keys, probe).List(context.Background(), 5, Filters{OnlineOnly: true})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Shown)
	assert.Equal(t, 10, res.Processed, "window walks the whole set when matches stay short")
	assert.LessOrEqual(t, res.Processed, 15)
	assert.Equal(t, keys[2], res.Records[0].Pubkey)
	assert.Equal(t, keys[7], res.Records[1].Pubkey)
}

func TestEnricher_List_OverFetchCap(t *testing.T) {
	keys := keysN(100)
	probe := newStubProbe()
	// Nothing matches, so the walk runs to the window edge and stops there.
	for _, k := range keys {
		probe.infos[k] = defaultInfo()
		probe.states[k] = interfaces.StateCoolingDown
	}

	res, err := newTestEnricher(keys, probe).List(context.Background(), 20, Filters{OnlineOnly: true})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Shown)
	assert.Equal(t, 30, res.Processed, "over-fetch window is capped")
	assert.Equal(t, 100, res.TotalKnown)
}

func TestEnricher_List_ProbeFailuresAreSilent(t *testing.T) {
	keys := keysN(6)
	probe := newStubProbe()
	for i, k := range keys {
		switch i {
		case 1:
			probe.infoTimeouts[k] = true
		case 3:
			// not in infos: probe reports not-found
		default:
			probe.infos[k] = defaultInfo()
			probe.states[k] = interfaces.StateReady
		}
	}

	res, err := newTestEnricher(keys, probe).List(context.Background(), 6, Filters{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Shown)
	assert.Equal(t, 6, res.Processed)
	assert.GreaterOrEqual(t, res.Processed, res.Shown)
}

func TestEnricher_List_LivenessTimeoutDegradesToUnknown(t *testing.T) {
	keys := keysN(1)
	probe := newStubProbe()
	probe.infos[keys[0]] = defaultInfo()
	probe.stateTimeout[keys[0]] = true

	res, err := newTestEnricher(keys, probe).List(context.Background(), 1, Filters{})
	require.NoError(t, err)

	require.Equal(t, 1, res.Shown)
	assert.Equal(t, interfaces.StateUnknown, res.Records[0].LivenessState)
}

func TestEnricher_List_SourceFailureIsFatal(t *testing.T) {
	workers := &stubWorkerSet{err: interfaces.ErrSourceUnavailable}
	e := NewEnricher(workers, newStubProbe(), Config{}, testLogger(), nil)

	_, err := e.List(context.Background(), 3, Filters{})
	assert.ErrorIs(t, err, interfaces.ErrSourceUnavailable)
}

func TestEnricher_List_InvalidLimit(t *testing.T) {
	e := newTestEnricher(keysN(3), newStubProbe())
	_, err := e.List(context.Background(), 0, Filters{})
	assert.Error(t, err)
}

func TestEnricher_List_CancellationDiscardsPartialResults(t *testing.T) {
	keys := keysN(9)
	probe := newStubProbe()
	probe.delay = 100 * time.Millisecond
	for _, k := range keys {
		probe.infos[k] = defaultInfo()
		probe.states[k] = interfaces.StateReady
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestEnricher(keys, probe).List(ctx, 3, Filters{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnricher_List_NeverReturnsMoreThanLimit(t *testing.T) {
	keys := keysN(30)
	probe := newStubProbe()
	for _, k := range keys {
		probe.infos[k] = defaultInfo()
		probe.states[k] = interfaces.StateReady
	}

	for _, limit := range []int{1, 2, 7, 25} {
		res, err := newTestEnricher(keys, probe).List(context.Background(), limit, Filters{})
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Shown, limit)
		assert.GreaterOrEqual(t, res.Processed, res.Shown)
		assert.LessOrEqual(t, res.Processed, min(3*limit, 30))
	}
}

func TestEnricher_Get(t *testing.T) {
	keys := keysN(1)
	probe := newStubProbe()
	probe.infos[keys[0]] = &interfaces.WorkerInfo{
		ConfidenceLevel:   2,
		RuntimeVersion:    "3.0.2",
		AttestationMethod: interfaces.MethodNone,
		FeatureFlags:      []uint32{4},
	}
	probe.states[keys[0]] = interfaces.StateIdle

	rec, err := newTestEnricher(keys, probe).Get(context.Background(), keys[0])
	require.NoError(t, err)
	assert.Equal(t, keys[0], rec.Pubkey)
	assert.Equal(t, interfaces.CategoryHighMemory, rec.CapabilityCategory)
	assert.Equal(t, interfaces.StateIdle, rec.LivenessState)
}

func TestEnricher_Get_NotFound(t *testing.T) {
	e := newTestEnricher(keysN(1), newStubProbe())
	var unknown interfaces.WorkerPubkey
	unknown[0] = 0xff

	_, err := e.Get(context.Background(), unknown)
	assert.ErrorIs(t, err, interfaces.ErrWorkerNotFound)
}

func TestEnricher_Get_OtherProbeErrorSurfaced(t *testing.T) {
	keys := keysN(1)
	probe := newStubProbe()
	probe.infoTimeouts[keys[0]] = true

	_, err := newTestEnricher(keys, probe).Get(context.Background(), keys[0])
	require.Error(t, err)
	assert.False(t, errors.Is(err, interfaces.ErrWorkerNotFound))
}

package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

var testPubkey = interfaces.WorkerPubkey{0xab, 0xcd}

func TestClient_GetInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workers/"+testPubkey.String(), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"confidenceLevel":1,"runtimeVersion":"3.1.0","attestationMethod":"dcap","featureFlags":[3,4]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	info, err := client.GetInfo(context.Background(), testPubkey)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), info.ConfidenceLevel)
	assert.Equal(t, "3.1.0", info.RuntimeVersion)
	assert.Equal(t, interfaces.MethodDCAP, info.AttestationMethod)
	assert.Equal(t, []uint32{3, 4}, info.FeatureFlags)
}

func TestClient_GetInfo_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such worker", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetInfo(context.Background(), testPubkey)
	assert.ErrorIs(t, err, interfaces.ErrWorkerNotFound)
}

func TestClient_GetInfo_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithInfoTimeout(20*time.Millisecond))
	_, err := client.GetInfo(context.Background(), testPubkey)
	assert.ErrorIs(t, err, interfaces.ErrProbeTimeout)
}

func TestClient_GetInfo_CallerCancellationWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewClient(srv.URL, WithInfoTimeout(10*time.Second))
	_, err := client.GetInfo(ctx, testPubkey)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, interfaces.ErrProbeTimeout)
}

func TestClient_GetLivenessState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workers/"+testPubkey.String()+"/session", r.URL.Path)
		w.Write([]byte(`{"state":"CoolingDown"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	state, err := client.GetLivenessState(context.Background(), testPubkey)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StateCoolingDown, state)
}

func TestClient_GetLivenessState_UnknownMapsToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"Hibernating"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	state, err := client.GetLivenessState(context.Background(), testPubkey)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StateUnknown, state)
}

package registry

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

// MockRegistry mocks the OnchainRegistry interface
type MockRegistry struct {
	mock.Mock
}

// EnumerateWorkerIds mocks the EnumerateWorkerIds method
func (m *MockRegistry) EnumerateWorkerIds(ctx context.Context) ([]interfaces.WorkerPubkey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.WorkerPubkey), args.Error(1)
}

// LookupWorker mocks the LookupWorker method
func (m *MockRegistry) LookupWorker(ctx context.Context, pubkey interfaces.WorkerPubkey) (*interfaces.WorkerInfo, error) {
	args := m.Called(ctx, pubkey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.WorkerInfo), args.Error(1)
}

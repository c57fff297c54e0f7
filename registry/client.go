// Package registry provides read access to the on-chain worker registry
// contract and a time-boxed cache of the worker identity set.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

// registryABI covers the read-only surface of the worker registry contract.
const registryABI = `[
	{"type":"function","name":"workerIds","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32[]"}]},
	{"type":"function","name":"workers","stateMutability":"view","inputs":[{"name":"pubkey","type":"bytes32"}],"outputs":[{"name":"","type":"tuple","components":[
		{"name":"pubkey","type":"bytes32"},
		{"name":"confidenceLevel","type":"uint8"},
		{"name":"attestationMethod","type":"uint8"},
		{"name":"features","type":"uint32[]"},
		{"name":"runtimeVersion","type":"string"},
		{"name":"registered","type":"bool"}]}]}
]`

// workerEntry mirrors the contract's worker struct layout.
type workerEntry struct {
	Pubkey            [32]byte
	ConfidenceLevel   uint8
	AttestationMethod uint8
	Features          []uint32
	RuntimeVersion    string
	Registered        bool
}

// OnchainRegistryClient implements interfaces.OnchainRegistry against a
// worker registry contract deployed on a blockchain.
type OnchainRegistryClient struct {
	contract *bind.BoundContract
	address  common.Address
}

// NewOnchainRegistryClient creates a read-only client for the registry
// contract at the specified address.
func NewOnchainRegistryClient(backend bind.ContractBackend, address common.Address) (*OnchainRegistryClient, error) {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("parsing registry ABI: %w", err)
	}

	return &OnchainRegistryClient{
		contract: bind.NewBoundContract(address, parsed, backend, backend, nil),
		address:  address,
	}, nil
}

// EnumerateWorkerIds returns the full ordered set of worker pubkeys known to
// the registry contract.
func (c *OnchainRegistryClient) EnumerateWorkerIds(ctx context.Context) ([]interfaces.WorkerPubkey, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := c.contract.Call(opts, &out, "workerIds"); err != nil {
		return nil, fmt.Errorf("enumerating worker ids: %w", err)
	}

	raw := *abi.ConvertType(out[0], new([][32]byte)).(*[][32]byte)
	ids := make([]interfaces.WorkerPubkey, len(raw))
	for i, r := range raw {
		ids[i] = interfaces.WorkerPubkey(r)
	}
	return ids, nil
}

// LookupWorker returns the registry entry for a single worker. A pubkey that
// the contract does not know yields interfaces.ErrWorkerNotFound.
func (c *OnchainRegistryClient) LookupWorker(ctx context.Context, pubkey interfaces.WorkerPubkey) (*interfaces.WorkerInfo, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := c.contract.Call(opts, &out, "workers", [32]byte(pubkey)); err != nil {
		return nil, fmt.Errorf("looking up worker %s: %w", pubkey, err)
	}

	entry := *abi.ConvertType(out[0], new(workerEntry)).(*workerEntry)
	if !entry.Registered {
		return nil, interfaces.ErrWorkerNotFound
	}

	return &interfaces.WorkerInfo{
		ConfidenceLevel:   entry.ConfidenceLevel,
		RuntimeVersion:    entry.RuntimeVersion,
		AttestationMethod: interfaces.AttestationMethodFromCode(entry.AttestationMethod),
		FeatureFlags:      entry.Features,
	}, nil
}

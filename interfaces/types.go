// Package interfaces defines the core types and component contracts of the
// worker registry system. It provides the boundary between components without
// implementation details.
package interfaces

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WorkerPubkey is the 32-byte public key identifying a worker in the on-chain
// registry. Keys are issued by the registry contract and immutable.
type WorkerPubkey [32]byte

// NewWorkerPubkeyFromBytes creates a worker pubkey from a raw byte slice.
func NewWorkerPubkeyFromBytes(b []byte) (WorkerPubkey, error) {
	if len(b) != 32 {
		return WorkerPubkey{}, errors.New("invalid worker pubkey length: must be 32 bytes")
	}

	var res WorkerPubkey
	copy(res[:], b)
	return res, nil
}

// NewWorkerPubkeyFromHex creates a worker pubkey from a hex string, with or
// without a 0x prefix.
func NewWorkerPubkeyFromHex(s string) (WorkerPubkey, error) {
	clean := strings.TrimPrefix(s, "0x")
	if len(clean) != 64 {
		return WorkerPubkey{}, errors.New("invalid worker pubkey length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return WorkerPubkey{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewWorkerPubkeyFromBytes(raw)
}

// String returns the 0x-prefixed hex representation of the pubkey.
func (p WorkerPubkey) String() string {
	return "0x" + hex.EncodeToString(p[:])
}

// Bytes returns the raw 32-byte pubkey.
func (p WorkerPubkey) Bytes() []byte {
	return p[:]
}

// Equal compares two worker pubkeys for equality.
func (p WorkerPubkey) Equal(other WorkerPubkey) bool {
	return p == other
}

// MarshalJSON encodes the pubkey as a hex string.
func (p WorkerPubkey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes the pubkey from a hex string.
func (p *WorkerPubkey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewWorkerPubkeyFromHex(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// AttestationMethod is the remote attestation mechanism a worker registered
// with.
type AttestationMethod string

const (
	MethodNone AttestationMethod = "none"
	MethodEPID AttestationMethod = "epid"
	MethodDCAP AttestationMethod = "dcap"
)

// AttestationMethodFromCode maps the registry contract's method code to an
// AttestationMethod. Unknown codes map to MethodNone.
func AttestationMethodFromCode(code uint8) AttestationMethod {
	switch code {
	case 1:
		return MethodEPID
	case 2:
		return MethodDCAP
	default:
		return MethodNone
	}
}

// Worker feature flag values as published by the worker runtime.
const (
	FeatureGPUCompute uint32 = 3
	FeatureHighMemory uint32 = 4
)

// CapabilityCategory summarizes a worker's security and hardware profile.
type CapabilityCategory string

const (
	CategoryDCAP       CapabilityCategory = "dcap"
	CategoryEPID       CapabilityCategory = "epid"
	CategoryGPU        CapabilityCategory = "gpu"
	CategoryHighMemory CapabilityCategory = "high-memory"
	CategoryUnknown    CapabilityCategory = "unknown"
)

// ParseCapabilityCategory validates a category string supplied by a caller.
func ParseCapabilityCategory(s string) (CapabilityCategory, error) {
	switch c := CapabilityCategory(s); c {
	case CategoryDCAP, CategoryEPID, CategoryGPU, CategoryHighMemory, CategoryUnknown:
		return c, nil
	default:
		return "", fmt.Errorf("unknown capability category: %q", s)
	}
}

// LivenessState is a worker's current session state as reported by the
// worker-status service.
type LivenessState string

const (
	StateReady        LivenessState = "Ready"
	StateIdle         LivenessState = "Idle"
	StateUnresponsive LivenessState = "Unresponsive"
	StateCoolingDown  LivenessState = "CoolingDown"
	StateUnknown      LivenessState = "Unknown"
)

// ParseLivenessState maps a reported state string to a LivenessState.
// Unrecognized states map to StateUnknown rather than failing.
func ParseLivenessState(s string) LivenessState {
	switch state := LivenessState(s); state {
	case StateReady, StateIdle, StateUnresponsive, StateCoolingDown:
		return state
	default:
		return StateUnknown
	}
}

// Online reports whether the state counts as online for filtering purposes.
func (s LivenessState) Online() bool {
	return s == StateReady || s == StateIdle
}

// WorkerInfo holds the attributes of a single worker as reported by the
// worker-status service or the on-chain registry.
type WorkerInfo struct {
	ConfidenceLevel   uint8             `json:"confidenceLevel"`
	RuntimeVersion    string            `json:"runtimeVersion"`
	AttestationMethod AttestationMethod `json:"attestationMethod"`
	FeatureFlags      []uint32          `json:"featureFlags"`
}

// WorkerRecord is the enriched, classified view of a single worker produced
// for one listing request. Records are transient and never persisted.
type WorkerRecord struct {
	Pubkey             WorkerPubkey       `json:"key"`
	ConfidenceLevel    uint8              `json:"confidenceLevel"`
	RuntimeVersion     string             `json:"runtimeVersion"`
	AttestationMethod  AttestationMethod  `json:"attestationMethod"`
	FeatureFlags       []uint32           `json:"featureFlags"`
	CapabilityCategory CapabilityCategory `json:"capabilityCategory"`
	LivenessState      LivenessState      `json:"livenessState"`
	LastUpdated        time.Time          `json:"lastUpdated"`
}

// AttestationSource identifies which resolution path produced an attestation
// result.
type AttestationSource string

const (
	SourcePrimary         AttestationSource = "Primary"
	SourceFallbackOnChain AttestationSource = "FallbackOnChain"
)

// AttestationResult is the outcome of a single attestation verification.
// Results are produced fresh per request and never cached.
type AttestationResult struct {
	Pubkey          WorkerPubkey      `json:"nodeKey"`
	Verified        bool              `json:"verified"`
	Source          AttestationSource `json:"source"`
	ConfidenceLevel uint8             `json:"confidenceLevel"`
	Timestamp       time.Time         `json:"timestamp"`
}

// VerifierReport is the raw response of the primary attestation verifier.
type VerifierReport struct {
	Verified        bool              `json:"verified"`
	Type            string            `json:"type"`
	ConfidenceLevel uint8             `json:"confidenceLevel"`
	Timestamp       time.Time         `json:"timestamp"`
	Details         map[string]string `json:"details,omitempty"`
}

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

func record(state interfaces.LivenessState, cat interfaces.CapabilityCategory) *interfaces.WorkerRecord {
	return &interfaces.WorkerRecord{LivenessState: state, CapabilityCategory: cat}
}

func TestFilters_OnlineOnly(t *testing.T) {
	f := Filters{OnlineOnly: true}

	assert.True(t, f.Matches(record(interfaces.StateReady, interfaces.CategoryGPU)))
	assert.True(t, f.Matches(record(interfaces.StateIdle, interfaces.CategoryGPU)))
	assert.False(t, f.Matches(record(interfaces.StateUnresponsive, interfaces.CategoryGPU)))
	assert.False(t, f.Matches(record(interfaces.StateCoolingDown, interfaces.CategoryGPU)))
	assert.False(t, f.Matches(record(interfaces.StateUnknown, interfaces.CategoryGPU)))
}

func TestFilters_Category(t *testing.T) {
	gpu := interfaces.CategoryGPU
	f := Filters{Category: &gpu}

	assert.True(t, f.Matches(record(interfaces.StateReady, interfaces.CategoryGPU)))
	assert.False(t, f.Matches(record(interfaces.StateReady, interfaces.CategoryDCAP)))

	// Unclassified workers are never excluded by a category filter.
	assert.True(t, f.Matches(record(interfaces.StateReady, interfaces.CategoryUnknown)))
}

func TestFilters_Combined(t *testing.T) {
	dcap := interfaces.CategoryDCAP
	f := Filters{OnlineOnly: true, Category: &dcap}

	assert.True(t, f.Matches(record(interfaces.StateReady, interfaces.CategoryDCAP)))
	assert.True(t, f.Matches(record(interfaces.StateIdle, interfaces.CategoryUnknown)))
	assert.False(t, f.Matches(record(interfaces.StateUnresponsive, interfaces.CategoryDCAP)))
	assert.False(t, f.Matches(record(interfaces.StateReady, interfaces.CategoryEPID)))
}

func TestFilters_Empty(t *testing.T) {
	f := Filters{}
	assert.True(t, f.Matches(record(interfaces.StateUnresponsive, interfaces.CategoryUnknown)))
}

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		method   interfaces.AttestationMethod
		flags    []uint32
		expected interfaces.CapabilityCategory
	}{
		{"dcap method", interfaces.MethodDCAP, nil, interfaces.CategoryDCAP},
		{"epid method", interfaces.MethodEPID, nil, interfaces.CategoryEPID},
		{"gpu flag", interfaces.MethodNone, []uint32{3}, interfaces.CategoryGPU},
		{"high memory flag", interfaces.MethodNone, []uint32{4}, interfaces.CategoryHighMemory},
		{"no evidence", interfaces.MethodNone, nil, interfaces.CategoryUnknown},
		{"unrelated flags", interfaces.MethodNone, []uint32{1, 2, 7}, interfaces.CategoryUnknown},

		// Method precedence beats feature flags.
		{"dcap wins over gpu and high memory", interfaces.MethodDCAP, []uint32{3, 4}, interfaces.CategoryDCAP},
		{"epid wins over gpu", interfaces.MethodEPID, []uint32{3}, interfaces.CategoryEPID},

		// Flag precedence: gpu before high memory.
		{"gpu wins over high memory", interfaces.MethodNone, []uint32{4, 3}, interfaces.CategoryGPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.method, tt.flags))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, Classify(interfaces.MethodDCAP, []uint32{3, 4}), Classify(interfaces.MethodDCAP, []uint32{3, 4}))
		assert.Equal(t, Classify("bogus-method", []uint32{99}), Classify("bogus-method", []uint32{99}))
	}
}

func TestClassify_TotalOnArbitraryInput(t *testing.T) {
	// Any input yields exactly one well-formed category, never a zero value.
	cat := Classify("not-a-method", []uint32{0, 1, 1000000})
	assert.Equal(t, interfaces.CategoryUnknown, cat)
}

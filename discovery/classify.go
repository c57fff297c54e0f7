// Package discovery assembles filtered, freshly-enriched views over the
// cached worker identity set.
package discovery

import (
	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

// classificationRules is the ordered rule table deriving a capability
// category. First match wins: an explicit attestation method is stronger
// evidence than raw feature bits, so method rules precede flag rules.
var classificationRules = []struct {
	matches  func(interfaces.AttestationMethod, []uint32) bool
	category interfaces.CapabilityCategory
}{
	{
		matches:  func(m interfaces.AttestationMethod, _ []uint32) bool { return m == interfaces.MethodDCAP },
		category: interfaces.CategoryDCAP,
	},
	{
		matches:  func(m interfaces.AttestationMethod, _ []uint32) bool { return m == interfaces.MethodEPID },
		category: interfaces.CategoryEPID,
	},
	{
		matches:  func(_ interfaces.AttestationMethod, f []uint32) bool { return hasFlag(f, interfaces.FeatureGPUCompute) },
		category: interfaces.CategoryGPU,
	},
	{
		matches:  func(_ interfaces.AttestationMethod, f []uint32) bool { return hasFlag(f, interfaces.FeatureHighMemory) },
		category: interfaces.CategoryHighMemory,
	},
}

// Classify derives a worker's capability category from its attestation
// method and feature flags. It is pure and total: every input maps to
// exactly one category.
func Classify(method interfaces.AttestationMethod, flags []uint32) interfaces.CapabilityCategory {
	for _, rule := range classificationRules {
		if rule.matches(method, flags) {
			return rule.category
		}
	}
	return interfaces.CategoryUnknown
}

func hasFlag(flags []uint32, flag uint32) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

package discovery

import (
	"github.com/tairon-ai/phala-worker-registry/interfaces"
)

// Filters are the caller-supplied predicates applied after classification.
// Both conditions are ANDed when both are supplied.
type Filters struct {
	// OnlineOnly keeps workers whose liveness state is Ready or Idle.
	OnlineOnly bool

	// Category keeps workers of the given capability category. Workers the
	// classifier could not label (CategoryUnknown) always pass, so a category
	// filter never silently hides unclassified workers.
	Category *interfaces.CapabilityCategory
}

// Matches reports whether the record passes all supplied filters.
func (f Filters) Matches(rec *interfaces.WorkerRecord) bool {
	if f.OnlineOnly && !rec.LivenessState.Online() {
		return false
	}
	if f.Category != nil &&
		rec.CapabilityCategory != *f.Category &&
		rec.CapabilityCategory != interfaces.CategoryUnknown {
		return false
	}
	return true
}

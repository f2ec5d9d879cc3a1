package service

import (
	"sync"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

// SegmentFunc builds the directory filter for a segment at send time
type SegmentFunc func() repository.CustomerFilter

// SegmentRegistry maps segment names to customer filters. New segments
// are added with Register; the dispatcher does not change.
type SegmentRegistry struct {
	mu       sync.RWMutex
	segments map[models.Segment]SegmentFunc
}

// NewSegmentRegistry registers the built-in segments. vip means at least
// vipMinOrders lifetime orders.
func NewSegmentRegistry(vipMinOrders int) *SegmentRegistry {
	r := &SegmentRegistry{segments: make(map[models.Segment]SegmentFunc)}
	r.Register(models.SegmentAll, func() repository.CustomerFilter {
		return repository.CustomerFilter{}
	})
	r.Register(models.SegmentVIP, func() repository.CustomerFilter {
		return repository.CustomerFilter{MinTotalOrders: vipMinOrders}
	})
	return r
}

// Register adds or replaces a segment
func (r *SegmentRegistry) Register(segment models.Segment, fn SegmentFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments[segment] = fn
}

// Resolve returns the filter for segment. ok is false for unknown segments.
func (r *SegmentRegistry) Resolve(segment models.Segment) (repository.CustomerFilter, bool) {
	r.mu.RLock()
	fn, ok := r.segments[segment]
	r.mu.RUnlock()
	if !ok {
		return repository.CustomerFilter{}, false
	}
	return fn(), true
}

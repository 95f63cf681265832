package wayfarer

import (
	"sync"

	"github.com/wayfarerhq/wayfarer/pkg/places"
)

// Hook function types for store events
type (
	// PlaceAddedHook is called when a place is first merged into the store
	PlaceAddedHook func(place places.Place)

	// PlaceUpdatedHook is called when an existing place is re-merged
	PlaceUpdatedHook func(old, updated places.Place)

	// SyncCompleteHook is called after a sync drain finishes
	SyncCompleteHook func(result SyncResult)
)

// hooks manages event callbacks for store and sync events
type hooks struct {
	mu             sync.RWMutex
	onPlaceAdded   []PlaceAddedHook
	onPlaceUpdated []PlaceUpdatedHook
	onSyncComplete []SyncCompleteHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnPlaceAdded registers a callback for newly-merged places
func (c *client) OnPlaceAdded(fn PlaceAddedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onPlaceAdded = append(c.hooks.onPlaceAdded, fn)
}

// OnPlaceUpdated registers a callback for re-merged places
func (c *client) OnPlaceUpdated(fn PlaceUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onPlaceUpdated = append(c.hooks.onPlaceUpdated, fn)
}

// OnSyncComplete registers a callback for completed sync drains
func (c *client) OnSyncComplete(fn SyncCompleteHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSyncComplete = append(c.hooks.onSyncComplete, fn)
}

func (h *hooks) triggerPlaceAdded(place places.Place) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onPlaceAdded {
		fn(place)
	}
}

func (h *hooks) triggerPlaceUpdated(old, updated places.Place) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onPlaceUpdated {
		fn(old, updated)
	}
}

func (h *hooks) triggerSyncComplete(result SyncResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onSyncComplete {
		fn(result)
	}
}

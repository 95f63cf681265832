package places

import (
	"fmt"
	"maps"
	"sync"
)

// Places is a concurrent safe map of places keyed by external id.
type Places struct {
	mu     sync.RWMutex
	places map[string]*Place
}

// PlacesOption defines a function that configures a Places instance.
type PlacesOption func(*Places)

// WithPlacesCapacity sets the initial capacity of the places map.
func WithPlacesCapacity(capacity int) PlacesOption {
	return func(p *Places) {
		p.places = make(map[string]*Place, capacity)
	}
}

// WithPlacesMap initializes the map with existing places.
func WithPlacesMap(places map[string]*Place) PlacesOption {
	return func(p *Places) {
		if places != nil {
			p.places = make(map[string]*Place, len(places))
			maps.Copy(p.places, places)
		}
	}
}

// NewPlaces creates a new Places map with optional configuration.
func NewPlaces(opts ...PlacesOption) *Places {
	p := &Places{
		places: make(map[string]*Place),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Get returns a place by external id and whether it exists.
func (p *Places) Get(externalID string) (*Place, bool) {
	p.mu.RLock()
	place, ok := p.places[externalID]
	p.mu.RUnlock()
	return place, ok
}

// Set sets a place by its external id. Returns an error if place is nil.
func (p *Places) Set(place *Place) error {
	if place == nil {
		return fmt.Errorf("place cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.places[place.ExternalID] = place
	return nil
}

// Delete removes a place by external id. Returns an error if it doesn't exist.
func (p *Places) Delete(externalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.places[externalID]; !exists {
		return fmt.Errorf("place with external id %s not found", externalID)
	}

	delete(p.places, externalID)
	return nil
}

// Exists checks if a place exists without returning it.
func (p *Places) Exists(externalID string) bool {
	p.mu.RLock()
	_, ok := p.places[externalID]
	p.mu.RUnlock()
	return ok
}

// Len returns the number of places.
func (p *Places) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.places)
}

// List returns a slice of all places.
func (p *Places) List() []*Place {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list := make([]*Place, 0, len(p.places))
	for _, place := range p.places {
		list = append(list, place)
	}
	return list
}

// ExternalIDs returns a slice of all external ids.
func (p *Places) ExternalIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.places))
	for id := range p.places {
		ids = append(ids, id)
	}
	return ids
}

// Clear removes all places.
func (p *Places) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.places = make(map[string]*Place)
}

// Snapshot returns a deep copy of the underlying map.
func (p *Places) Snapshot() map[string]*Place {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := make(map[string]*Place, len(p.places))
	for id, place := range p.places {
		snap[id] = place.Copy()
	}
	return snap
}

// Replace swaps the underlying map for the given one.
func (p *Places) Replace(places map[string]*Place) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.places = make(map[string]*Place, len(places))
	maps.Copy(p.places, places)
}

// Package trips implements the itinerary store: ordered groups of place
// references with per-place notes. Membership and order are trip-local;
// shared place attributes are resolved against the canonical place store at
// render time, with trip-local fields taking precedence.
package trips

import (
	"maps"
	"sync"
	"time"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
	"github.com/wayfarerhq/wayfarer/pkg/places"
)

// Stop is one place reference within a trip, with trip-local notes.
type Stop struct {
	PlaceID string `json:"place_id" yaml:"place_id"` // External id of the referenced place
	Notes   string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Trip is an ordered list of stops.
type Trip struct {
	ID    string    `json:"id" yaml:"id"`
	Name  string    `json:"name" yaml:"name"`
	Date  time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	Stops []Stop    `json:"stops,omitempty" yaml:"stops,omitempty"`
}

// Copy returns a deep copy of the trip.
func (t *Trip) Copy() *Trip {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Stops != nil {
		cp.Stops = append([]Stop(nil), t.Stops...)
	}
	return &cp
}

// PlaceReader is the subset of the canonical store needed to enrich stops.
type PlaceReader interface {
	Get(externalID string) (*places.Place, bool)
}

// ResolvedStop is a stop enriched with the canonical place record. Notes and
// position come from the trip; everything else from the canonical store.
type ResolvedStop struct {
	Stop
	Place *places.Place
}

// Store is a concurrent safe map of trips keyed by trip id.
type Store struct {
	mu    sync.RWMutex
	trips map[string]*Trip
}

// NewStore creates a new trips store.
func NewStore() *Store {
	return &Store{
		trips: make(map[string]*Trip),
	}
}

// Get returns a trip by id and whether it exists.
func (s *Store) Get(id string) (*Trip, bool) {
	s.mu.RLock()
	trip, ok := s.trips[id]
	s.mu.RUnlock()
	return trip, ok
}

// Set sets a trip by id.
func (s *Store) Set(trip *Trip) error {
	if trip == nil {
		return errors.NewValidationError("trip", nil, "trip cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[trip.ID] = trip
	return nil
}

// AddStop appends a place reference to the trip. A place already in the trip
// is not added twice.
func (s *Store) AddStop(tripID, placeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return errors.ErrNotFound
	}
	for _, stop := range trip.Stops {
		if stop.PlaceID == placeID {
			return errors.ErrAlreadyExists
		}
	}

	updated := trip.Copy()
	updated.Stops = append(updated.Stops, Stop{PlaceID: placeID})
	s.trips[tripID] = updated
	return nil
}

// List returns all trips.
func (s *Store) List() []*Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*Trip, 0, len(s.trips))
	for _, trip := range s.trips {
		list = append(list, trip)
	}
	return list
}

// Len returns the number of trips.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trips)
}

// Reorder replaces the trip's stop order with the given place ids. Notes
// travel with their stops; ids not currently in the trip are ignored, and
// stops omitted from the new order are dropped.
func (s *Store) Reorder(tripID string, orderedPlaceIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return errors.ErrNotFound
	}

	byPlace := make(map[string]Stop, len(trip.Stops))
	for _, stop := range trip.Stops {
		byPlace[stop.PlaceID] = stop
	}

	reordered := make([]Stop, 0, len(orderedPlaceIDs))
	for _, placeID := range orderedPlaceIDs {
		if stop, ok := byPlace[placeID]; ok {
			reordered = append(reordered, stop)
		}
	}

	updated := trip.Copy()
	updated.Stops = reordered
	s.trips[tripID] = updated
	return nil
}

// RemoveStop removes the stop referencing the given place.
func (s *Store) RemoveStop(tripID, placeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return errors.ErrNotFound
	}

	updated := trip.Copy()
	for i, stop := range updated.Stops {
		if stop.PlaceID == placeID {
			updated.Stops = append(updated.Stops[:i], updated.Stops[i+1:]...)
			s.trips[tripID] = updated
			return nil
		}
	}
	return errors.ErrNotFound
}

// SetNote sets the trip-local note on the stop referencing the given place.
func (s *Store) SetNote(tripID, placeID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return errors.ErrNotFound
	}

	updated := trip.Copy()
	for i := range updated.Stops {
		if updated.Stops[i].PlaceID == placeID {
			updated.Stops[i].Notes = text
			s.trips[tripID] = updated
			return nil
		}
	}
	return errors.ErrNotFound
}

// Resolve enriches the trip's stops against the canonical store. Stops whose
// place is unknown to the canonical store resolve with a nil Place; the trip's
// order and notes are always preserved as-is.
func (s *Store) Resolve(tripID string, reader PlaceReader) ([]ResolvedStop, error) {
	s.mu.RLock()
	trip, ok := s.trips[tripID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrNotFound
	}

	resolved := make([]ResolvedStop, 0, len(trip.Stops))
	for _, stop := range trip.Stops {
		place, _ := reader.Get(stop.PlaceID)
		resolved = append(resolved, ResolvedStop{Stop: stop, Place: place})
	}
	return resolved, nil
}

// Snapshot / Restore / Promote implement the optimistic participant contract.

// Name identifies the store to the coordinator.
func (s *Store) Name() string {
	return "trips"
}

// Snapshot returns a deep copy of all trips for rollback.
func (s *Store) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]*Trip, len(s.trips))
	for id, trip := range s.trips {
		snap[id] = trip.Copy()
	}
	return snap
}

// Restore replaces all trips with a previously-taken snapshot.
func (s *Store) Restore(snapshot any) {
	snap, ok := snapshot.(map[string]*Trip)
	if !ok {
		logging.Error().Str("store", s.Name()).Msg("Snapshot has unexpected type, restore skipped")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips = make(map[string]*Trip, len(snap))
	maps.Copy(s.trips, snap)
}

// Promote rewrites stop references that point at the tentative place's temp
// id to the confirmed external id. Trips reference places by stable external
// id, so this is usually a no-op; it matters only when a tentative place was
// added to a trip before confirmation.
func (s *Store) Promote(tempID string, final any) bool {
	confirmed, ok := final.(*places.Place)
	if !ok || confirmed == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for id, trip := range s.trips {
		updated := trip.Copy()
		tripChanged := false
		for i := range updated.Stops {
			if updated.Stops[i].PlaceID == tempID {
				updated.Stops[i].PlaceID = confirmed.ExternalID
				tripChanged = true
			}
		}
		if tripChanged {
			s.trips[id] = updated
			changed = true
		}
	}
	return changed
}

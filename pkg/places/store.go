package places

import (
	"time"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
)

// MergeFunc merges one classified record into an optional existing place,
// returning the canonical result or a rejection. The reconcile package
// provides the production implementation; it is injected here so the store
// stays free of merge policy.
type MergeFunc func(rec Record, existing *Place) (*Place, error)

// Store is the authoritative in-memory table of merged places. All writes go
// through the merge function; the store never holds two places with the same
// external id.
type Store struct {
	table *Places
	merge MergeFunc

	onAdded   func(Place)
	onUpdated func(old, updated Place)
}

// StoreOption defines a function that configures a Store.
type StoreOption func(*Store)

// WithAddedHook registers a callback invoked after a place is first inserted.
func WithAddedHook(fn func(Place)) StoreOption {
	return func(s *Store) {
		s.onAdded = fn
	}
}

// WithUpdatedHook registers a callback invoked after an existing place is
// replaced by a merge.
func WithUpdatedHook(fn func(old, updated Place)) StoreOption {
	return func(s *Store) {
		s.onUpdated = fn
	}
}

// NewStore creates a new canonical store using the given merge function.
func NewStore(merge MergeFunc, opts ...StoreOption) *Store {
	s := &Store{
		table: NewPlaces(),
		merge: merge,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns a place by external id.
func (s *Store) Get(externalID string) (*Place, bool) {
	return s.table.Get(externalID)
}

// List returns all places.
func (s *Store) List() []*Place {
	return s.table.List()
}

// Len returns the number of places.
func (s *Store) Len() int {
	return s.table.Len()
}

// Upsert merges the record against any existing place with the same external
// id and replaces or inserts the result. A rejected record is not inserted and
// the merge error is returned for the caller to log or surface.
func (s *Store) Upsert(rec Record) (*Place, error) {
	existing, _ := s.table.Get(rec.ExternalID)

	merged, err := s.merge(rec, existing)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = now
	}
	merged.UpdatedAt = now

	if err := s.table.Set(merged); err != nil {
		return nil, err
	}

	if existing == nil {
		if s.onAdded != nil {
			s.onAdded(*merged)
		}
	} else if s.onUpdated != nil {
		s.onUpdated(*existing, *merged)
	}

	return merged, nil
}

// Insert places an already-canonical entity directly into the table,
// bypassing the merge function. Used for optimistic tentative entities and
// snapshot restores, where the entity was produced by this system rather than
// an upstream source.
func (s *Store) Insert(p *Place) error {
	if p == nil {
		return errors.NewValidationError("place", nil, "cannot insert nil place")
	}
	return s.table.Set(p)
}

// BulkRefresh applies a lightweight sweep of records. Each record present in
// the sweep goes through the normal merge path, including presence-sensitive
// flag clearing; places absent from the sweep are left completely untouched,
// since a sweep is a viewport snapshot and not a full-catalog snapshot.
// Rejected records are logged and skipped so one bad record cannot halt the
// sweep.
func (s *Store) BulkRefresh(recs []Record) int {
	applied := 0
	for _, rec := range recs {
		if _, err := s.Upsert(rec); err != nil {
			logging.Warn().
				Err(err).
				Str("external_id", rec.ExternalID).
				Str("kind", rec.Kind.String()).
				Msg("Skipping rejected record in refresh sweep")
			continue
		}
		applied++
	}
	return applied
}

// AddReview appends a review to the place with the given external id and
// marks it visited.
func (s *Store) AddReview(externalID string, review Review) error {
	p, ok := s.table.Get(externalID)
	if !ok {
		return errors.ErrNotFound
	}

	updated := p.Copy()
	updated.Reviews = append(updated.Reviews, review)
	updated.Visited = true
	updated.UpdatedAt = time.Now()
	return s.table.Set(updated)
}

// ReviewPatch carries the updatable fields of a review. Nil fields are left
// unchanged.
type ReviewPatch struct {
	Date   *time.Time
	Rating *int
	Text   *string
	Photos []string
}

// UpdateReview applies a patch to the review with the given id, found by
// scanning all places.
func (s *Store) UpdateReview(reviewID string, patch ReviewPatch) error {
	p, idx := s.findReview(reviewID)
	if p == nil {
		return errors.ErrNotFound
	}

	updated := p.Copy()
	r := &updated.Reviews[idx]
	if patch.Date != nil {
		r.Date = *patch.Date
	}
	if patch.Rating != nil {
		r.Rating = *patch.Rating
	}
	if patch.Text != nil {
		r.Text = *patch.Text
	}
	if patch.Photos != nil {
		r.Photos = append([]string(nil), patch.Photos...)
	}
	updated.UpdatedAt = time.Now()
	return s.table.Set(updated)
}

// RemoveReview deletes the review with the given id. Removing the last review
// clears the visited flag, since visitation is derived from having at least
// one recorded visit.
func (s *Store) RemoveReview(reviewID string) error {
	p, idx := s.findReview(reviewID)
	if p == nil {
		return errors.ErrNotFound
	}

	updated := p.Copy()
	updated.Reviews = append(updated.Reviews[:idx], updated.Reviews[idx+1:]...)
	if len(updated.Reviews) == 0 {
		updated.Visited = false
	}
	updated.UpdatedAt = time.Now()
	return s.table.Set(updated)
}

// FindReview returns the place holding the review with the given permanent or
// temp id, along with the review itself.
func (s *Store) FindReview(reviewID string) (*Place, *Review, bool) {
	p, idx := s.findReview(reviewID)
	if p == nil {
		return nil, nil, false
	}
	r := p.Reviews[idx]
	return p, &r, true
}

// findReview locates the place holding a review with the given permanent or
// temp id and the review's index within it.
func (s *Store) findReview(reviewID string) (*Place, int) {
	for _, p := range s.table.List() {
		for i, r := range p.Reviews {
			if r.ID == reviewID || (r.TempID != "" && r.TempID == reviewID) {
				return p, i
			}
		}
	}
	return nil, -1
}

// Optimistic participant contract. The coordinator treats the store as an
// opaque snapshot/restore/promote surface; see the optimistic package.

// Name identifies the store to the coordinator.
func (s *Store) Name() string {
	return "places"
}

// Snapshot returns a deep copy of the table for rollback.
func (s *Store) Snapshot() any {
	return s.table.Snapshot()
}

// Restore replaces the table with a previously-taken snapshot.
func (s *Store) Restore(snapshot any) {
	snap, ok := snapshot.(map[string]*Place)
	if !ok {
		logging.Error().Str("store", s.Name()).Msg("Snapshot has unexpected type, restore skipped")
		return
	}
	s.table.Replace(snap)
}

// Promote replaces the tentative entity matching tempID with the
// server-confirmed one. A place matches if its own temp id matches or if any
// of its reviews carries the temp id. Reports whether a replacement happened.
func (s *Store) Promote(tempID string, final any) bool {
	confirmed, ok := final.(*Place)
	if !ok || confirmed == nil {
		return false
	}

	for _, p := range s.table.List() {
		if !s.matchesTemp(p, tempID) {
			continue
		}
		if p.ExternalID != confirmed.ExternalID {
			_ = s.table.Delete(p.ExternalID)
		}
		_ = s.table.Set(confirmed.Copy())
		return true
	}
	return false
}

func (s *Store) matchesTemp(p *Place, tempID string) bool {
	if p.TempID == tempID {
		return true
	}
	for _, r := range p.Reviews {
		if r.TempID == tempID {
			return true
		}
	}
	return false
}

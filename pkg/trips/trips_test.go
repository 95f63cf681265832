package trips_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/places"
	"github.com/wayfarerhq/wayfarer/pkg/trips"
)

// mapReader is a PlaceReader over a plain map.
type mapReader map[string]*places.Place

func (m mapReader) Get(externalID string) (*places.Place, bool) {
	p, ok := m[externalID]
	return p, ok
}

func seedTrip(t *testing.T, store *trips.Store) *trips.Trip {
	t.Helper()
	trip := &trips.Trip{ID: "trip-1", Name: "Weekend in Lisbon"}
	require.NoError(t, store.Set(trip))
	for _, placeID := range []string{"prov-1", "prov-2", "prov-3"} {
		require.NoError(t, store.AddStop("trip-1", placeID))
	}
	got, ok := store.Get("trip-1")
	require.True(t, ok)
	return got
}

func stopOrder(trip *trips.Trip) []string {
	ids := make([]string, len(trip.Stops))
	for i, stop := range trip.Stops {
		ids[i] = stop.PlaceID
	}
	return ids
}

func TestAddStop(t *testing.T) {
	store := trips.NewStore()
	trip := seedTrip(t, store)
	assert.Equal(t, []string{"prov-1", "prov-2", "prov-3"}, stopOrder(trip))

	assert.ErrorIs(t, store.AddStop("trip-1", "prov-2"), errors.ErrAlreadyExists)
	assert.ErrorIs(t, store.AddStop("trip-missing", "prov-1"), errors.ErrNotFound)
}

func TestReorderNotesTravelWithStops(t *testing.T) {
	store := trips.NewStore()
	seedTrip(t, store)
	require.NoError(t, store.SetNote("trip-1", "prov-2", "book ahead"))

	// Unknown ids are ignored; omitted stops are dropped.
	require.NoError(t, store.Reorder("trip-1", []string{"prov-2", "prov-unknown", "prov-1"}))

	trip, ok := store.Get("trip-1")
	require.True(t, ok)
	assert.Equal(t, []string{"prov-2", "prov-1"}, stopOrder(trip))
	assert.Equal(t, "book ahead", trip.Stops[0].Notes)
}

func TestRemoveStop(t *testing.T) {
	store := trips.NewStore()
	seedTrip(t, store)

	require.NoError(t, store.RemoveStop("trip-1", "prov-2"))
	trip, _ := store.Get("trip-1")
	assert.Equal(t, []string{"prov-1", "prov-3"}, stopOrder(trip))

	assert.ErrorIs(t, store.RemoveStop("trip-1", "prov-2"), errors.ErrNotFound)
}

func TestSetNote(t *testing.T) {
	store := trips.NewStore()
	seedTrip(t, store)

	require.NoError(t, store.SetNote("trip-1", "prov-3", "sunset spot"))
	trip, _ := store.Get("trip-1")
	assert.Equal(t, "sunset spot", trip.Stops[2].Notes)

	assert.ErrorIs(t, store.SetNote("trip-1", "prov-missing", "x"), errors.ErrNotFound)
}

func TestResolve(t *testing.T) {
	store := trips.NewStore()
	seedTrip(t, store)
	require.NoError(t, store.SetNote("trip-1", "prov-1", "start here"))

	reader := mapReader{
		"prov-1": {ExternalID: "prov-1", Name: "Cafe Luna"},
		"prov-3": {ExternalID: "prov-3", Name: "Bar Sol"},
	}

	resolved, err := store.Resolve("trip-1", reader)
	require.NoError(t, err)
	require.Len(t, resolved, 3)

	assert.Equal(t, "Cafe Luna", resolved[0].Place.Name)
	assert.Equal(t, "start here", resolved[0].Notes, "trip-local notes take precedence in the resolved view")
	assert.Nil(t, resolved[1].Place, "stops unknown to the canonical store resolve with a nil place")
	assert.Equal(t, "prov-2", resolved[1].PlaceID, "order is preserved even for unresolved stops")
}

func TestPromoteRewritesTempReferences(t *testing.T) {
	store := trips.NewStore()
	require.NoError(t, store.Set(&trips.Trip{
		ID:    "trip-1",
		Name:  "Weekend in Lisbon",
		Stops: []trips.Stop{{PlaceID: "tmp-1", Notes: "new find"}},
	}))

	confirmed := &places.Place{ExternalID: "prov-9"}
	assert.True(t, store.Promote("tmp-1", confirmed))

	trip, _ := store.Get("trip-1")
	assert.Equal(t, "prov-9", trip.Stops[0].PlaceID)
	assert.Equal(t, "new find", trip.Stops[0].Notes)

	assert.False(t, store.Promote("tmp-missing", confirmed))
}

func TestSnapshotRestore(t *testing.T) {
	store := trips.NewStore()
	seedTrip(t, store)

	snap := store.Snapshot()

	require.NoError(t, store.RemoveStop("trip-1", "prov-1"))
	require.NoError(t, store.Set(&trips.Trip{ID: "trip-2", Name: "Later"}))

	store.Restore(snap)

	assert.Equal(t, 1, store.Len())
	trip, ok := store.Get("trip-1")
	require.True(t, ok)
	assert.Equal(t, []string{"prov-1", "prov-2", "prov-3"}, stopOrder(trip))
}

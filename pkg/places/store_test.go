package places_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/places"
	"github.com/wayfarerhq/wayfarer/pkg/reconcile"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func newTestStore(opts ...places.StoreOption) *places.Store {
	return places.NewStore(reconcile.Merge, opts...)
}

func record(externalID, name string) places.Record {
	return places.Record{
		Kind:       places.KindSearchResult,
		ExternalID: externalID,
		Name:       strPtr(name),
		Lat:        floatPtr(48.85),
		Lng:        floatPtr(2.35),
	}
}

func TestStoreUpsertInsertsAndStampsTimestamps(t *testing.T) {
	store := newTestStore()

	merged, err := store.Upsert(record("prov-1", "Cafe Luna"))
	require.NoError(t, err)
	assert.False(t, merged.CreatedAt.IsZero(), "created_at should be stamped on first insert")
	assert.False(t, merged.UpdatedAt.IsZero(), "updated_at should be stamped")

	got, ok := store.Get("prov-1")
	require.True(t, ok)
	assert.Equal(t, "Cafe Luna", got.Name)
	assert.Equal(t, 1, store.Len())
}

func TestStoreUpsertPreservesCreatedAt(t *testing.T) {
	store := newTestStore()

	first, err := store.Upsert(record("prov-1", "Cafe Luna"))
	require.NoError(t, err)

	second, err := store.Upsert(record("prov-1", "Cafe Luna Renamed"))
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt, "re-merge must not recreate the entity")
	assert.Equal(t, "Cafe Luna Renamed", second.Name)
	assert.Equal(t, 1, store.Len(), "same external id must never produce two entries")
}

func TestStoreUpsertRejectsInvalidRecord(t *testing.T) {
	store := newTestStore()

	_, err := store.Upsert(places.Record{
		Kind:       places.KindSearchResult,
		ExternalID: "prov-1",
		// no name, no coordinates
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, 0, store.Len(), "rejected record must not be inserted")
}

func TestStoreHooks(t *testing.T) {
	var added, updated int
	store := newTestStore(
		places.WithAddedHook(func(places.Place) { added++ }),
		places.WithUpdatedHook(func(_, _ places.Place) { updated++ }),
	)

	_, err := store.Upsert(record("prov-1", "Cafe Luna"))
	require.NoError(t, err)
	_, err = store.Upsert(record("prov-1", "Cafe Luna Renamed"))
	require.NoError(t, err)

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, updated)
}

func TestStoreBulkRefreshLeavesAbsentPlacesUntouched(t *testing.T) {
	store := newTestStore()

	_, err := store.Upsert(record("prov-1", "Cafe Luna"))
	require.NoError(t, err)
	require.NoError(t, store.AddReview("prov-1", places.Review{ID: "901", Rating: 5}))
	_, err = store.Upsert(record("prov-2", "Bar Sol"))
	require.NoError(t, err)

	// The sweep covers only prov-2; prov-1 is outside the viewport.
	sweep := []places.Record{
		{
			Kind:       places.KindSummary,
			ExternalID: "prov-2",
			Name:       strPtr("Bar Sol"),
			Lat:        floatPtr(41.38),
			Lng:        floatPtr(2.17),
			Visited:    boolPtr(false),
			Wishlisted: boolPtr(true),
		},
	}
	applied := store.BulkRefresh(sweep)
	assert.Equal(t, 1, applied)

	untouched, ok := store.Get("prov-1")
	require.True(t, ok)
	assert.True(t, untouched.Visited, "place absent from sweep must keep its flags")
	assert.Len(t, untouched.Reviews, 1, "place absent from sweep must keep its reviews")

	swept, ok := store.Get("prov-2")
	require.True(t, ok)
	assert.True(t, swept.Wishlisted)
}

func TestStoreBulkRefreshSkipsRejects(t *testing.T) {
	store := newTestStore()

	sweep := []places.Record{
		record("prov-1", "Cafe Luna"),
		{Kind: places.KindSearchResult, ExternalID: "prov-bad"}, // no name or coordinates
		record("prov-2", "Bar Sol"),
	}

	applied := store.BulkRefresh(sweep)
	assert.Equal(t, 2, applied, "one bad record must not halt the sweep")
	assert.Equal(t, 2, store.Len())
}

func TestStoreReviewLifecycle(t *testing.T) {
	store := newTestStore()
	_, err := store.Upsert(record("prov-1", "Cafe Luna"))
	require.NoError(t, err)

	require.NoError(t, store.AddReview("prov-1", places.Review{ID: "901", Rating: 4, Text: "Good"}))

	p, ok := store.Get("prov-1")
	require.True(t, ok)
	assert.True(t, p.Visited, "adding a review marks the place visited")
	require.Len(t, p.Reviews, 1)

	newText := "Even better on a second visit"
	newRating := 5
	require.NoError(t, store.UpdateReview("901", places.ReviewPatch{
		Rating: &newRating,
		Text:   &newText,
	}))

	_, rev, ok := store.FindReview("901")
	require.True(t, ok)
	assert.Equal(t, 5, rev.Rating)
	assert.Equal(t, newText, rev.Text)

	require.NoError(t, store.RemoveReview("901"))
	p, _ = store.Get("prov-1")
	assert.Empty(t, p.Reviews)
	assert.False(t, p.Visited, "removing the last review clears the visited flag")
}

func TestStoreReviewNotFound(t *testing.T) {
	store := newTestStore()
	assert.ErrorIs(t, store.UpdateReview("nope", places.ReviewPatch{}), errors.ErrNotFound)
	assert.ErrorIs(t, store.RemoveReview("nope"), errors.ErrNotFound)
	assert.ErrorIs(t, store.AddReview("nope", places.Review{}), errors.ErrNotFound)
}

func TestStoreSnapshotIsIsolated(t *testing.T) {
	store := newTestStore()
	_, err := store.Upsert(record("prov-1", "Cafe Luna"))
	require.NoError(t, err)

	snapshot := store.Snapshot()

	// Mutate after the snapshot.
	require.NoError(t, store.AddReview("prov-1", places.Review{ID: "901"}))
	_, err = store.Upsert(record("prov-2", "Bar Sol"))
	require.NoError(t, err)

	store.Restore(snapshot)

	assert.Equal(t, 1, store.Len())
	p, ok := store.Get("prov-1")
	require.True(t, ok)
	assert.Empty(t, p.Reviews, "restore must return to the pre-mutation state")
}

func TestStorePromoteReplacesTentativeReview(t *testing.T) {
	store := newTestStore()
	_, err := store.Upsert(record("prov-1", "Cafe Luna"))
	require.NoError(t, err)
	require.NoError(t, store.AddReview("prov-1", places.Review{TempID: "tmp-1", Rating: 5}))

	confirmed, _ := store.Get("prov-1")
	confirmed = confirmed.Copy()
	id := int64(42)
	confirmed.InternalID = &id
	confirmed.Reviews[0].ID = "42"
	confirmed.Reviews[0].TempID = ""

	require.True(t, store.Promote("tmp-1", confirmed))

	p, ok := store.Get("prov-1")
	require.True(t, ok)
	require.Len(t, p.Reviews, 1)
	assert.Equal(t, "42", p.Reviews[0].ID)
	assert.Empty(t, p.Reviews[0].TempID)
	require.NotNil(t, p.InternalID)
	assert.Equal(t, int64(42), *p.InternalID)
}

func TestStorePromoteUnknownTempID(t *testing.T) {
	store := newTestStore()
	assert.False(t, store.Promote("tmp-missing", &places.Place{ExternalID: "x"}))
}

func TestPlaceCopyIsDeep(t *testing.T) {
	p := &places.Place{
		ExternalID: "prov-1",
		Name:       "Cafe Luna",
		Reviews:    []places.Review{{ID: "901", Photos: []string{"a.jpg"}}},
		Group:      &places.GroupContext{GroupID: "trip-7", Date: time.Now()},
	}

	cp := p.Copy()
	cp.Reviews[0].Photos[0] = "b.jpg"
	cp.Group.GroupID = "trip-8"

	assert.Equal(t, "a.jpg", p.Reviews[0].Photos[0])
	assert.Equal(t, "trip-7", p.Group.GroupID)
}

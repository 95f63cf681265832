package optimistic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/optimistic"
)

// fakeStore is a minimal participant: a map of values snapshotted by copy.
type fakeStore struct {
	name   string
	values map[string]string

	restores int
	promotes []string
}

func newFakeStore(name string) *fakeStore {
	return &fakeStore{name: name, values: make(map[string]string)}
}

func (f *fakeStore) Name() string { return f.name }

func (f *fakeStore) Snapshot() any {
	snap := make(map[string]string, len(f.values))
	for k, v := range f.values {
		snap[k] = v
	}
	return snap
}

func (f *fakeStore) Restore(snapshot any) {
	f.restores++
	f.values = snapshot.(map[string]string)
}

func (f *fakeStore) Promote(tempID string, final any) bool {
	f.promotes = append(f.promotes, tempID)
	v, ok := f.values[tempID]
	if !ok {
		return false
	}
	delete(f.values, tempID)
	f.values[final.(string)] = v
	return true
}

func TestCoordinatorConfirm(t *testing.T) {
	store := newFakeStore("places")
	c := optimistic.NewCoordinator()

	err := c.Begin(func() error {
		store.values["tmp-1"] = "tentative"
		return nil
	}, store)
	require.NoError(t, err)
	assert.True(t, c.Pending())

	require.NoError(t, c.Confirm("tmp-1", "confirmed-42"))
	assert.False(t, c.Pending())
	assert.Equal(t, "tentative", store.values["confirmed-42"])
	assert.NotContains(t, store.values, "tmp-1")
	assert.Zero(t, store.restores, "a confirmed mutation must never restore")
}

func TestCoordinatorRevert(t *testing.T) {
	store := newFakeStore("places")
	store.values["existing"] = "before"
	c := optimistic.NewCoordinator()

	err := c.Begin(func() error {
		store.values["existing"] = "tentative"
		store.values["tmp-1"] = "new"
		return nil
	}, store)
	require.NoError(t, err)

	require.NoError(t, c.Revert())
	assert.False(t, c.Pending())
	assert.Equal(t, "before", store.values["existing"], "revert must restore the snapshot verbatim")
	assert.NotContains(t, store.values, "tmp-1")
}

func TestCoordinatorSecondMutationRefused(t *testing.T) {
	store := newFakeStore("places")
	c := optimistic.NewCoordinator()

	require.NoError(t, c.Begin(func() error { return nil }, store))

	err := c.Begin(func() error {
		t.Fatal("second mutation must not run")
		return nil
	}, store)
	require.Error(t, err)
	assert.True(t, errors.IsMutationPending(err))

	// The first mutation is still resolvable.
	require.NoError(t, c.Revert())
	require.NoError(t, c.Begin(func() error { return nil }, store))
	require.NoError(t, c.Confirm("", nil))
}

func TestCoordinatorFailedMutationRollsBack(t *testing.T) {
	store := newFakeStore("places")
	store.values["existing"] = "before"
	c := optimistic.NewCoordinator()

	boom := errors.New("apply failed")
	err := c.Begin(func() error {
		store.values["existing"] = "half-applied"
		return boom
	}, store)
	require.ErrorIs(t, err, boom)

	assert.False(t, c.Pending())
	assert.Equal(t, "before", store.values["existing"])
	assert.Equal(t, 1, store.restores)
}

func TestCoordinatorMultipleParticipants(t *testing.T) {
	placesStore := newFakeStore("places")
	tripsStore := newFakeStore("trips")
	c := optimistic.NewCoordinator()

	err := c.Begin(func() error {
		placesStore.values["tmp-1"] = "place"
		tripsStore.values["tmp-1"] = "stop"
		return nil
	}, placesStore, tripsStore)
	require.NoError(t, err)

	require.NoError(t, c.Confirm("tmp-1", "confirmed"))

	// Every participant is offered the promotion.
	assert.Equal(t, []string{"tmp-1"}, placesStore.promotes)
	assert.Equal(t, []string{"tmp-1"}, tripsStore.promotes)
	assert.Contains(t, placesStore.values, "confirmed")
	assert.Contains(t, tripsStore.values, "confirmed")
}

func TestCoordinatorResolveWithoutMutation(t *testing.T) {
	c := optimistic.NewCoordinator()
	assert.ErrorIs(t, c.Confirm("tmp-1", nil), errors.ErrNotFound)
	assert.ErrorIs(t, c.Revert(), errors.ErrNotFound)
}

func TestCoordinatorNeedsParticipants(t *testing.T) {
	c := optimistic.NewCoordinator()
	err := c.Begin(func() error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.False(t, c.Pending())
}

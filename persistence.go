package wayfarer

import (
	"context"

	"github.com/goccy/go-yaml"

	"github.com/wayfarerhq/wayfarer/internal/durable"
	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
	"github.com/wayfarerhq/wayfarer/pkg/places"
	"github.com/wayfarerhq/wayfarer/pkg/trips"
)

// Save serializes the canonical store and the trips store into the durable
// layer. A memory-only client saves nothing.
func (c *client) Save(ctx context.Context) error {
	if c.durable == nil {
		return nil
	}

	placesSnap, ok := c.places.Snapshot().(map[string]*places.Place)
	if !ok {
		return errors.NewStorageError("write", durable.SnapshotPlaces, errors.New("unexpected snapshot type"))
	}
	placesData, err := yaml.Marshal(placesSnap)
	if err != nil {
		return errors.WrapStorage("write", durable.SnapshotPlaces, err)
	}
	if err := c.durable.SaveSnapshot(ctx, durable.SnapshotPlaces, placesData); err != nil {
		return err
	}

	tripsSnap, ok := c.trips.Snapshot().(map[string]*trips.Trip)
	if !ok {
		return errors.NewStorageError("write", durable.SnapshotTrips, errors.New("unexpected snapshot type"))
	}
	tripsData, err := yaml.Marshal(tripsSnap)
	if err != nil {
		return errors.WrapStorage("write", durable.SnapshotTrips, err)
	}
	return c.durable.SaveSnapshot(ctx, durable.SnapshotTrips, tripsData)
}

// restore loads the serialized stores from the durable layer at startup.
// Missing snapshots are a fresh install, not an error.
func (c *client) restore(ctx context.Context) error {
	placesData, err := c.durable.LoadSnapshot(ctx, durable.SnapshotPlaces)
	switch {
	case errors.IsNotFound(err):
		// fresh install
	case err != nil:
		return err
	default:
		var snap map[string]*places.Place
		if err := yaml.Unmarshal(placesData, &snap); err != nil {
			return errors.WrapStorage("read", durable.SnapshotPlaces, err)
		}
		c.places.Restore(snap)
	}

	tripsData, err := c.durable.LoadSnapshot(ctx, durable.SnapshotTrips)
	switch {
	case errors.IsNotFound(err):
		return nil
	case err != nil:
		return err
	}

	var snap map[string]*trips.Trip
	if err := yaml.Unmarshal(tripsData, &snap); err != nil {
		return errors.WrapStorage("read", durable.SnapshotTrips, err)
	}
	c.trips.Restore(snap)
	return nil
}

// saveQuiet persists snapshots after a mutation, logging rather than failing:
// the in-memory state is already correct, a missed write-through only widens
// the window a crash could lose.
func (c *client) saveQuiet(ctx context.Context) {
	if err := c.Save(ctx); err != nil {
		logging.Warn().Err(err).Msg("Snapshot write-through failed")
	}
}

package wayfarer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
	"github.com/wayfarerhq/wayfarer/pkg/trips"
)

// Trip edits are trip-local: membership, order, and notes never touch the
// server of record. They still run through the optimistic protocol with the
// trip store as the protected resource, so a failed apply restores
// order/membership/notes verbatim and a concurrent outstanding mutation is
// rejected instead of interleaved. With no server round trip the edit
// confirms immediately.

// CreateTrip creates a new itinerary group.
func (c *client) CreateTrip(name string, date time.Time) (*trips.Trip, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", name, "trip name cannot be empty")
	}

	trip := &trips.Trip{
		ID:   uuid.New().String(),
		Name: name,
		Date: date,
	}
	if err := c.trips.Set(trip); err != nil {
		return nil, err
	}

	c.saveQuiet(context.Background())
	return trip, nil
}

// AddTripStop appends a place reference to a trip. The place must already
// exist in the canonical store.
func (c *client) AddTripStop(tripID, externalID string) error {
	if _, ok := c.places.Get(externalID); !ok {
		return errors.ErrNotFound
	}
	if err := c.trips.AddStop(tripID, externalID); err != nil {
		return err
	}

	c.saveQuiet(context.Background())
	return nil
}

// ReorderTrip replaces a trip's stop order. Notes travel with their stops.
func (c *client) ReorderTrip(ctx context.Context, tripID string, orderedPlaceIDs []string) error {
	return c.tripEdit(ctx, func() error {
		return c.trips.Reorder(tripID, orderedPlaceIDs)
	})
}

// RemoveTripStop removes a place reference from a trip. The canonical place
// is untouched.
func (c *client) RemoveTripStop(ctx context.Context, tripID, externalID string) error {
	return c.tripEdit(ctx, func() error {
		return c.trips.RemoveStop(tripID, externalID)
	})
}

// SetTripNote sets the trip-local note on a stop.
func (c *client) SetTripNote(ctx context.Context, tripID, externalID, text string) error {
	return c.tripEdit(ctx, func() error {
		return c.trips.SetNote(tripID, externalID, text)
	})
}

func (c *client) tripEdit(ctx context.Context, apply func() error) error {
	if err := c.coordinator.Begin(apply, c.trips); err != nil {
		return err
	}
	if err := c.coordinator.Confirm("", nil); err != nil {
		logging.Warn().Err(err).Msg("Confirming trip edit failed")
	}
	c.saveQuiet(ctx)
	return nil
}

package wayfarer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/wayfarerhq/wayfarer/internal/durable"
	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
	"github.com/wayfarerhq/wayfarer/pkg/places"
)

// SyncResult summarizes one drain of the pending-mutation log.
type SyncResult struct {
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// PendingMutations returns the queued mutations in replay order without
// replaying them.
func (c *client) PendingMutations(ctx context.Context) ([]durable.Mutation, error) {
	if c.durable == nil {
		return nil, nil
	}
	return c.durable.Drain(ctx)
}

// ClearPending abandons every queued mutation without replaying it and rolls
// back any optimistic state still awaiting resolution. This is the manual
// escape hatch for a mutation the server will never accept. Returns the
// number of entries dropped.
func (c *client) ClearPending(ctx context.Context) (int, error) {
	if c.durable == nil {
		return 0, nil
	}

	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	queued, err := c.durable.Drain(ctx)
	if err != nil {
		return 0, err
	}

	dropped := 0
	for _, m := range queued {
		if err := c.durable.Remove(ctx, m.TempID); err != nil {
			return dropped, err
		}
		dropped++
	}

	if dropped > 0 && c.coordinator.Pending() {
		c.revert()
	}
	c.saveQuiet(ctx)
	return dropped, nil
}

// SyncPending replays queued mutations against the server in FIFO order.
// A mutation is removed from the log only after the server confirms it; a
// failed replay releases the entry back into the queue and the drain moves
// on to the next entry, so one bad mutation does not block the rest. Failed
// entries keep their queue position and are retried on the next drain.
// Concurrent drains are serialized.
func (c *client) SyncPending(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}
	if c.durable == nil {
		return result, nil
	}

	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	queued, err := c.durable.Drain(ctx)
	if err != nil {
		return nil, err
	}

	if c.remote == nil || !c.Online() {
		result.Remaining = len(queued)
		return result, nil
	}

	for _, m := range queued {
		ok, err := c.durable.MarkInFlight(ctx, m.TempID)
		if err != nil {
			return result, err
		}
		if !ok {
			// Another drain got here first.
			continue
		}

		mctx := logging.WithMutationID(ctx, m.TempID)
		if err := c.replay(mctx, m); err != nil {
			result.Failed++
			logging.Ctx(mctx).Warn().
				Err(errors.NewSyncError(m.TempID, m.Kind, err)).
				Msg("Replay failed, mutation stays queued")
			if rerr := c.durable.Release(ctx, m.TempID); rerr != nil {
				logging.Ctx(mctx).Error().Err(rerr).Msg("Releasing in-flight mutation failed")
			}
			continue
		}
		result.Replayed++
	}

	remaining, err := c.durable.Len(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Counting remaining mutations failed")
	}
	result.Remaining = remaining

	c.saveQuiet(ctx)
	c.hooks.triggerSyncComplete(*result)
	return result, nil
}

// replay executes one queued mutation against the server and promotes the
// optimistic state it left behind.
func (c *client) replay(ctx context.Context, m durable.Mutation) error {
	if m.Kind != durable.KindCreateVisit {
		return fmt.Errorf("unknown mutation kind %q", m.Kind)
	}

	var payload createVisitPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return err
	}

	// Attachments were captured into the log at queue time; their storage
	// paths were fixed then too, so the queued photo references stay valid.
	for _, a := range m.Attachments {
		if c.blobs == nil {
			return errors.NewStorageError("upload", a.Name, errors.New("no attachment store configured"))
		}
		if err := c.blobs.Store(ctx, a.Name, bytes.NewReader(a.Data), int64(len(a.Data))); err != nil {
			return err
		}
	}

	recordID, err := c.remote.CreateRecord(ctx, payload.Entity, payload.Detail)
	if err != nil {
		return err
	}

	confirmed := c.confirmedAfterReplay(payload, m.TempID, recordID)

	// The snapshot taken when the mutation was applied is normally still
	// held; confirming through the coordinator discards it. After a process
	// restart only the durable log survives, so promote the store directly.
	if c.coordinator.Pending() {
		if err := c.coordinator.Confirm(m.TempID, confirmed); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Confirming replayed visit failed")
		}
	} else if !c.places.Promote(m.TempID, confirmed) {
		// The tentative entity did not survive either; reinsert the
		// confirmed state so the server and the store agree.
		if err := c.places.Insert(confirmed); err != nil {
			return err
		}
	}

	return c.durable.Remove(ctx, m.TempID)
}

// confirmedAfterReplay rebuilds the server-confirmed place for a replayed
// visit. The current store state is preferred; if the tentative entity was
// lost, the place is reconstructed from the logged payload.
func (c *client) confirmedAfterReplay(payload createVisitPayload, tempID string, recordID int64) *places.Place {
	if p, ok := c.places.Get(payload.ExternalID); ok {
		return confirmVisit(p, tempID, recordID)
	}

	id := recordID
	return &places.Place{
		ExternalID: payload.ExternalID,
		InternalID: &id,
		Name:       payload.Entity.Name,
		Address:    payload.Entity.Address,
		Coordinates: places.Coordinates{
			Lat: payload.Entity.Lat,
			Lng: payload.Entity.Lng,
		},
		Visited: true,
		Reviews: []places.Review{{
			ID:     fmt.Sprintf("%d", recordID),
			Date:   payload.Detail.Date,
			Rating: payload.Detail.Rating,
			Text:   payload.Detail.Text,
			Photos: payload.Detail.Photos,
		}},
	}
}

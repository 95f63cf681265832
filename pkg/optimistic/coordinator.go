// Package optimistic implements the cross-store optimistic mutation protocol:
// take one rollback snapshot across every touched store, apply a tentative
// change, and later resolve it exactly once - either confirming by replacing
// the tentative object with the server's, or reverting to the snapshot.
//
// The coordinator is store-shape-agnostic. It knows nothing about places or
// trips; it is handed participants that expose snapshot, restore, and
// promote-by-temp-id operations.
package optimistic

import (
	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
)

// Participant is one store taking part in an optimistic mutation.
type Participant interface {
	// Name identifies the store in logs.
	Name() string

	// Snapshot returns an opaque rollback snapshot of the store's state.
	Snapshot() any

	// Restore replaces the store's state with a previously-taken snapshot.
	Restore(snapshot any)

	// Promote replaces the tentative object identified by tempID with the
	// server-confirmed final value. Reports whether this store held the
	// tentative object.
	Promote(tempID string, final any) bool
}

// held pairs a participant with the snapshot taken from it.
type held struct {
	participant Participant
	snapshot    any
}

// Coordinator manages at most one outstanding optimistic mutation across its
// participant stores at a time.
type Coordinator struct {
	outstanding []held
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Pending reports whether an optimistic mutation is awaiting resolution.
func (c *Coordinator) Pending() bool {
	return c.outstanding != nil
}

// Begin snapshots every participant, then applies the tentative mutation.
// If a mutation is already outstanding, Begin refuses with ErrMutationPending
// before touching anything: taking a second snapshot while one is unresolved
// would corrupt the rollback target. If the mutation function itself fails,
// the snapshots are restored immediately and the error is returned.
func (c *Coordinator) Begin(mutation func() error, participants ...Participant) error {
	if c.Pending() {
		logging.Warn().Msg("Optimistic mutation refused, one already outstanding")
		return errors.ErrMutationPending
	}
	if len(participants) == 0 {
		return errors.NewValidationError("participants", nil, "optimistic mutation needs at least one store")
	}

	snapshots := make([]held, 0, len(participants))
	for _, p := range participants {
		snapshots = append(snapshots, held{participant: p, snapshot: p.Snapshot()})
	}
	c.outstanding = snapshots

	if err := mutation(); err != nil {
		c.restore()
		return err
	}
	return nil
}

// Confirm replaces the tentative object identified by tempID with the
// server-confirmed final value across every participant that held it, then
// clears the snapshot. Confirming with no outstanding mutation is an error.
func (c *Coordinator) Confirm(tempID string, final any) error {
	if !c.Pending() {
		return errors.ErrNotFound
	}

	// A mutation with no tentative object (a purely local reorder, say)
	// confirms by simply discarding the snapshot.
	if tempID == "" {
		c.outstanding = nil
		logging.Debug().Msg("Optimistic mutation confirmed (no tentative object)")
		return nil
	}

	promoted := 0
	for _, h := range c.outstanding {
		if h.participant.Promote(tempID, final) {
			promoted++
		}
	}
	c.outstanding = nil

	if promoted == 0 {
		logging.Warn().Str("temp_id", tempID).Msg("Confirm promoted no stores")
	} else {
		logging.Debug().Str("temp_id", tempID).Int("stores", promoted).Msg("Optimistic mutation confirmed")
	}
	return nil
}

// Revert restores every participant to its pre-mutation snapshot, verbatim,
// and clears it. Reverting with no outstanding mutation is an error.
func (c *Coordinator) Revert() error {
	if !c.Pending() {
		return errors.ErrNotFound
	}
	c.restore()
	logging.Debug().Msg("Optimistic mutation reverted")
	return nil
}

// restore rolls every participant back, in reverse snapshot order.
func (c *Coordinator) restore() {
	for i := len(c.outstanding) - 1; i >= 0; i-- {
		h := c.outstanding[i]
		h.participant.Restore(h.snapshot)
	}
	c.outstanding = nil
}

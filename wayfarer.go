// Package wayfarer is a client-resident data-reconciliation and
// offline-mutation engine for location-oriented record keeping. It merges
// partial, heterogeneously-shaped records about the same real-world place
// arriving from independent upstream sources into one canonical in-memory
// entity, and sustains correct user-visible state while offline by queuing
// mutations durably, applying them optimistically, and reconciling them
// against the server once connectivity returns.
//
// Example usage:
//
//	wf, err := wayfarer.New(
//	    wayfarer.WithDatabase("./wayfarer.db"),
//	    wayfarer.WithRemoteServer("https://api.example.com", apiKey),
//	    wayfarer.WithOwnerID("user-42"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer wf.Close()
//
//	// Feed a provider search result into the canonical store
//	place, err := wf.Observe(rawSearchResult)
//
//	// Record a visit; queued durably if offline
//	_, err = wf.CreateVisit(ctx, place.ExternalID, wayfarer.VisitReview{
//	    Rating: 5,
//	    Text:   "Worth the detour",
//	})
//
//	// Replay anything queued once connectivity returns
//	wf.SetOnline(true)
package wayfarer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/blob"
	"github.com/wayfarerhq/wayfarer/internal/durable"
	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
	"github.com/wayfarerhq/wayfarer/pkg/optimistic"
	"github.com/wayfarerhq/wayfarer/pkg/places"
	"github.com/wayfarerhq/wayfarer/pkg/reconcile"
	"github.com/wayfarerhq/wayfarer/pkg/remote"
	"github.com/wayfarerhq/wayfarer/pkg/trips"
)

// BlobStore is the attachment storage boundary. The internal/blob package
// provides the object-store implementation.
type BlobStore interface {
	// Store durably uploads a blob to the given path.
	Store(ctx context.Context, path string, reader io.Reader, size int64) error

	// Remove deletes the blobs at the given paths, best effort.
	Remove(ctx context.Context, paths []string) error

	// PresignedURL returns a temporary access URL for the blob at path.
	PresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Compile-time interface checks to ensure proper implementation.
var (
	_ BlobStore = (*blob.Client)(nil)
	_ Client    = (*client)(nil)
)

// Reader provides read access to the canonical stores.
type Reader interface {
	// Place returns the canonical place for an external id.
	Place(externalID string) (*places.Place, bool)

	// Places returns all canonical places.
	Places() []*places.Place

	// Trip returns a trip by id.
	Trip(id string) (*trips.Trip, bool)

	// Trips returns all trips.
	Trips() []*trips.Trip

	// ResolveTrip enriches a trip's stops against the canonical store.
	ResolveTrip(id string) ([]trips.ResolvedStop, error)
}

// Observer feeds inbound upstream records into the canonical store.
type Observer interface {
	// Observe classifies one raw record and merges it into the store.
	Observe(raw map[string]any) (*places.Place, error)

	// RefreshSummaries sweeps lightweight summaries for the scope into the
	// store, returning how many records were applied.
	RefreshSummaries(ctx context.Context, scope remote.Scope) (int, error)

	// FetchDetail fetches and merges the fully-detailed record for a place.
	FetchDetail(ctx context.Context, externalID string) (*places.Place, error)
}

// Mutator performs user-originated mutations, applied optimistically and
// queued durably when offline (where the mutation kind is queueable).
type Mutator interface {
	// CreateVisit records a visit review on a place.
	CreateVisit(ctx context.Context, externalID string, review VisitReview) (*places.Place, error)

	// UpdateReview patches an existing confirmed review.
	UpdateReview(ctx context.Context, reviewID string, patch places.ReviewPatch) error

	// DeleteReview removes an existing confirmed review.
	DeleteReview(ctx context.Context, reviewID string) error

	// SetFlag sets one relationship flag locally and server-side.
	SetFlag(ctx context.Context, externalID, flag string, value bool) error

	// CreateTrip creates a new itinerary group.
	CreateTrip(name string, date time.Time) (*trips.Trip, error)

	// AddTripStop appends a place reference to a trip.
	AddTripStop(tripID, externalID string) error

	// ReorderTrip replaces a trip's stop order.
	ReorderTrip(ctx context.Context, tripID string, orderedPlaceIDs []string) error

	// RemoveTripStop removes a place reference from a trip.
	RemoveTripStop(ctx context.Context, tripID, externalID string) error

	// SetTripNote sets the trip-local note on a stop.
	SetTripNote(ctx context.Context, tripID, externalID, text string) error
}

// Syncer drains the durable mutation log against the server.
type Syncer interface {
	// SyncPending replays queued mutations in FIFO order.
	SyncPending(ctx context.Context) (*SyncResult, error)

	// PendingMutations returns the queued mutations without replaying them.
	PendingMutations(ctx context.Context) ([]durable.Mutation, error)

	// ClearPending abandons queued mutations and rolls back their optimistic
	// state.
	ClearPending(ctx context.Context) (int, error)

	// SetOnline updates the connectivity signal; the offline-to-online
	// transition triggers SyncPending.
	SetOnline(online bool)

	// Online reports current connectivity.
	Online() bool
}

// Client is the complete wayfarer client interface.
type Client interface {
	Reader
	Observer
	Mutator
	Syncer

	// OnPlaceAdded registers a callback for newly-merged places.
	OnPlaceAdded(PlaceAddedHook)

	// OnPlaceUpdated registers a callback for re-merged places.
	OnPlaceUpdated(PlaceUpdatedHook)

	// OnSyncComplete registers a callback for completed sync drains.
	OnSyncComplete(SyncCompleteHook)

	// Save persists the canonical and trip stores to durable storage.
	Save(ctx context.Context) error

	// Close flushes and closes the durable store.
	Close() error
}

// Both caches take part in the snapshot/confirm/revert protocol.
var (
	_ optimistic.Participant = (*places.Store)(nil)
	_ optimistic.Participant = (*trips.Store)(nil)
)

// client is the internal implementation of the Client interface.
type client struct {
	config      *config
	places      *places.Store
	trips       *trips.Store
	coordinator *optimistic.Coordinator
	durable     *durable.Store
	remote      remote.Remote
	blobs       BlobStore
	hooks       *hooks

	online   bool
	syncMu   sync.Mutex // serializes sync drains
	onlineMu sync.Mutex
}

// New creates a new wayfarer client with the given options. Durable state
// (store snapshots and the pending-mutation log) is restored before any
// network call is attempted.
func New(opts ...Option) (Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	c := &client{
		config:      cfg,
		trips:       trips.NewStore(),
		coordinator: optimistic.NewCoordinator(),
		remote:      cfg.remote,
		blobs:       cfg.blobs,
		hooks:       newHooks(),
		online:      cfg.online,
	}

	c.places = places.NewStore(
		reconcile.Merge,
		places.WithAddedHook(func(p places.Place) { c.hooks.triggerPlaceAdded(p) }),
		places.WithUpdatedHook(func(old, updated places.Place) { c.hooks.triggerPlaceUpdated(old, updated) }),
	)

	if cfg.databasePath != "" {
		store, err := durable.Open(cfg.databasePath)
		if err != nil {
			return nil, err
		}
		c.durable = store

		if err := c.restore(context.Background()); err != nil && !errors.IsNotFound(err) {
			store.Close()
			return nil, err
		}
	}

	return c, nil
}

// Place returns the canonical place for an external id.
func (c *client) Place(externalID string) (*places.Place, bool) {
	return c.places.Get(externalID)
}

// Places returns all canonical places.
func (c *client) Places() []*places.Place {
	return c.places.List()
}

// Trip returns a trip by id.
func (c *client) Trip(id string) (*trips.Trip, bool) {
	return c.trips.Get(id)
}

// Trips returns all trips.
func (c *client) Trips() []*trips.Trip {
	return c.trips.List()
}

// ResolveTrip enriches a trip's stops against the canonical store.
func (c *client) ResolveTrip(id string) ([]trips.ResolvedStop, error) {
	return c.trips.Resolve(id, c.places)
}

// Online reports current connectivity.
func (c *client) Online() bool {
	c.onlineMu.Lock()
	defer c.onlineMu.Unlock()
	return c.online
}

// SetOnline updates the connectivity signal. The offline-to-online
// transition is the sole trigger for replaying queued mutations.
func (c *client) SetOnline(online bool) {
	c.onlineMu.Lock()
	wasOnline := c.online
	c.online = online
	c.onlineMu.Unlock()

	if online && !wasOnline {
		go func() {
			if _, err := c.SyncPending(context.Background()); err != nil {
				logging.Warn().Err(err).Msg("Sync after reconnect failed")
			}
		}()
	}
}

// Close flushes the stores and closes durable storage.
func (c *client) Close() error {
	if c.durable == nil {
		return nil
	}
	if err := c.Save(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Saving snapshots on close failed")
	}
	return c.durable.Close()
}

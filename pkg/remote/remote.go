// Package remote defines the network boundary: the abstract remote procedure
// calls the client makes against the server of record. The transport behind
// it is not mandated here; see internal/transport for the HTTP implementation.
package remote

import (
	"context"
	"time"
)

// EntityPayload identifies a place to the server of record.
type EntityPayload struct {
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Address    string  `json:"address,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// DetailPayload is the body of a visit-review record.
type DetailPayload struct {
	Date   time.Time `json:"date"`
	Rating int       `json:"rating"`
	Text   string    `json:"text,omitempty"`
	Photos []string  `json:"photos,omitempty"` // attachment storage paths, already durably stored
}

// Patch carries partial updates to an existing record. Keys absent from the
// patch are left unchanged server-side.
type Patch map[string]any

// Scope bounds a lightweight-summary fetch to the user's current viewport.
// A sweep under a scope is a partial snapshot, never a full-catalog one.
type Scope struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Flag names accepted by SetFlag.
const (
	FlagVisited    = "visited"
	FlagWishlisted = "wishlisted"
	FlagFavorited  = "favorited"
)

// Remote is the set of calls the client makes against the server of record.
// Implementations map failures into the pkg/errors taxonomy: transient
// network failures satisfy errors.IsTransient; definitive 4xx/5xx responses
// are *errors.ServerError.
type Remote interface {
	// CreateRecord atomically creates an entity association and its detail
	// record server-side, returning the permanent record id. Must be called
	// only after all attachments referenced by the detail payload have been
	// durably stored.
	CreateRecord(ctx context.Context, entity EntityPayload, detail DetailPayload) (int64, error)

	// UpdateRecord applies a patch to an existing record and returns the
	// server's updated record, as a raw map for classification.
	UpdateRecord(ctx context.Context, recordID int64, patch Patch) (map[string]any, error)

	// DeleteRecord removes a record server-side.
	DeleteRecord(ctx context.Context, recordID int64) error

	// FetchSummaries returns lightweight summaries for the scope, as raw
	// maps for classification.
	FetchSummaries(ctx context.Context, scope Scope) ([]map[string]any, error)

	// FetchDetail returns the fully-detailed record for a place, as a raw
	// map for classification.
	FetchDetail(ctx context.Context, externalID string) (map[string]any, error)

	// SetFlag sets one relationship flag on the entity server-side.
	SetFlag(ctx context.Context, entity EntityPayload, flag string, value bool) error
}

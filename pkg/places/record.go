package places

import "time"

// Kind identifies the structural shape of a raw upstream record. Shapes are
// discriminated once at the system boundary (see the reconcile package); the
// rest of the system only ever sees a classified Record.
type Kind string

// Known source shapes.
const (
	// KindSearchResult is a provider-search result: geometry plus a provider
	// place id, and no opinion about the user's relationship to the place.
	KindSearchResult Kind = "search_result"

	// KindSummary is a lightweight server summary: identity, coordinates, and
	// explicit relationship flags, but no review collection.
	KindSummary Kind = "summary"

	// KindDetailed is the fully-detailed server record: everything a summary
	// carries plus the review collection and group context.
	KindDetailed Kind = "detailed"

	// KindPersisted is a raw locally-persisted record restored from the
	// durable snapshot: carries a creation timestamp and no relationship flags.
	KindPersisted Kind = "persisted"
)

// Authoritative reports whether the shape speaks for the server of record on
// user-relationship state. Only authoritative shapes may touch the review
// collection.
func (k Kind) Authoritative() bool {
	return k == KindSummary || k == KindDetailed
}

// String returns the string representation of a Kind.
func (k Kind) String() string {
	return string(k)
}

// Record is one raw upstream record normalized into presence-aware fields.
// Pointer fields distinguish "field absent from this shape" (nil) from "field
// present with this value" - that distinction drives flag resolution during a
// merge. ReviewsDeclared plays the same role for the review collection, since
// a nil slice cannot distinguish absent from declared-empty.
type Record struct {
	Kind       Kind
	ExternalID string
	InternalID *int64

	Name    *string
	Address *string
	Lat     *float64
	Lng     *float64
	Phone   *string
	Website *string
	Rating  *float64

	Visited    *bool
	Wishlisted *bool
	Favorited  *bool

	Reviews         []Review
	ReviewsDeclared bool // whether the shape carried the review-collection field at all

	Group      *GroupContext
	ClearGroup bool // explicit removal of group membership

	CreatedAt *time.Time
}

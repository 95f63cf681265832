package reconcile

import (
	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/places"
)

// Merge merges one classified record into an optional existing canonical
// place and returns the result, or a validation error when the record must be
// rejected. Merge is a pure function: it never modifies its inputs, has no
// side effects, and is idempotent per source.
//
// Field resolution for every attribute is: value from the record if present
// and non-null, else value from existing, else the type's zero value.
// Name and coordinates are mandatory: if neither the record nor existing
// supplies a non-empty name and valid non-NaN coordinates, the record is
// rejected and must not be inserted.
//
// Relationship flags are presence-sensitive, not value-sensitive: a shape
// that declares the flag field at all wins outright, including a declared
// false clearing a previously-true flag. A shape that does not carry the
// field inherits the existing value. This is what keeps a lightweight refresh
// that says "not visited" from leaving ghost review state behind, while a
// provider-search refresh with no opinion about visitation leaves it alone.
func Merge(rec places.Record, existing *places.Place) (*places.Place, error) {
	merged := &places.Place{
		ExternalID: rec.ExternalID,
	}
	if existing != nil && existing.ExternalID != "" {
		merged.ExternalID = existing.ExternalID
	}
	if merged.ExternalID == "" {
		return nil, errors.NewValidationError("external_id", nil, "record has no external id")
	}

	// Mandatory: name.
	merged.Name = resolveString(rec.Name, existingName(existing))
	if merged.Name == "" {
		return nil, errors.NewValidationError("name", nil, "neither record nor existing place supplies a name")
	}

	// Mandatory: coordinates.
	coords, ok := resolveCoordinates(rec, existing)
	if !ok {
		return nil, errors.NewValidationError("coordinates", rec.Lat, "neither record nor existing place supplies valid coordinates")
	}
	merged.Coordinates = coords

	// Overridable-if-present attributes.
	merged.Address = resolveString(rec.Address, existingField(existing, func(p *places.Place) string { return p.Address }))
	merged.Phone = resolveString(rec.Phone, existingField(existing, func(p *places.Place) string { return p.Phone }))
	merged.Website = resolveString(rec.Website, existingField(existing, func(p *places.Place) string { return p.Website }))
	if rec.Rating != nil {
		merged.Rating = *rec.Rating
	} else if existing != nil {
		merged.Rating = existing.Rating
	}

	// Internal id, once set, is never cleared by a later merge that lacks it.
	if rec.InternalID != nil {
		id := *rec.InternalID
		merged.InternalID = &id
	} else if existing != nil && existing.InternalID != nil {
		id := *existing.InternalID
		merged.InternalID = &id
	}

	// Presence-sensitive relationship flags.
	merged.Visited = resolveFlag(rec.Visited, existing, func(p *places.Place) bool { return p.Visited })
	merged.Wishlisted = resolveFlag(rec.Wishlisted, existing, func(p *places.Place) bool { return p.Wishlisted })
	merged.Favorited = resolveFlag(rec.Favorited, existing, func(p *places.Place) bool { return p.Favorited })

	merged.Reviews = resolveReviews(rec, existing)

	// Group context: first writer wins unless explicitly cleared.
	switch {
	case rec.ClearGroup:
		merged.Group = nil
	case existing != nil && existing.Group != nil:
		group := *existing.Group
		merged.Group = &group
	case rec.Group != nil:
		group := *rec.Group
		merged.Group = &group
	}

	// Timestamps and the optimistic marker carry over from the existing
	// entity; merges supersede, they never recreate.
	if existing != nil {
		merged.CreatedAt = existing.CreatedAt
		merged.UpdatedAt = existing.UpdatedAt
		merged.TempID = existing.TempID
	}
	if merged.CreatedAt.IsZero() && rec.CreatedAt != nil {
		merged.CreatedAt = *rec.CreatedAt
	}

	return merged, nil
}

// resolveReviews applies the review-collection policy. The collection is
// preserved from existing unless the incoming shape is server-authoritative
// and either carries review content (replace), carries an explicitly-empty
// collection (clear), or declares the visited flag false (clear - the server
// asserts zero recorded visits). A provider-search shape never touches the
// collection.
func resolveReviews(rec places.Record, existing *places.Place) []places.Review {
	if rec.Kind.Authoritative() {
		switch {
		case rec.ReviewsDeclared && len(rec.Reviews) > 0:
			return copyReviews(rec.Reviews)
		case rec.ReviewsDeclared:
			return []places.Review{}
		case rec.Visited != nil && !*rec.Visited:
			return []places.Review{}
		}
	}
	if existing != nil {
		return copyReviews(existing.Reviews)
	}
	if rec.ReviewsDeclared {
		return copyReviews(rec.Reviews)
	}
	return nil
}

func copyReviews(reviews []places.Review) []places.Review {
	if reviews == nil {
		return nil
	}
	out := make([]places.Review, len(reviews))
	for i, r := range reviews {
		out[i] = r
		if r.Photos != nil {
			out[i].Photos = append([]string(nil), r.Photos...)
		}
	}
	return out
}

func resolveCoordinates(rec places.Record, existing *places.Place) (places.Coordinates, bool) {
	if rec.Lat != nil && rec.Lng != nil {
		coords := places.Coordinates{Lat: *rec.Lat, Lng: *rec.Lng}
		if coords.Valid() {
			return coords, true
		}
	}
	if existing != nil && existing.Coordinates.Valid() {
		return existing.Coordinates, true
	}
	return places.Coordinates{}, false
}

func resolveString(value *string, fallback string) string {
	if value != nil && *value != "" {
		return *value
	}
	return fallback
}

func resolveFlag(value *bool, existing *places.Place, get func(*places.Place) bool) bool {
	if value != nil {
		return *value
	}
	if existing != nil {
		return get(existing)
	}
	return false
}

func existingName(existing *places.Place) string {
	if existing == nil {
		return ""
	}
	return existing.Name
}

func existingField(existing *places.Place, get func(*places.Place) string) string {
	if existing == nil {
		return ""
	}
	return get(existing)
}

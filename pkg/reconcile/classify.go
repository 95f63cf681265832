// Package reconcile implements the merge engine: structural classification of
// raw upstream records into tagged variants, and the pure merge of one variant
// against an existing canonical place.
//
// No upstream source carries an explicit type tag, so shapes are discriminated
// once, at the system boundary, from a fixed set of structural markers. After
// classification the rest of the system never re-examines raw shape.
package reconcile

import (
	"time"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/places"
)

// Structural markers, checked in order. A record carrying a review-collection
// field is never a lightweight summary, even if it also carries relationship
// flags, so the detailed check runs first.
const (
	fieldReviews   = "reviews"
	fieldGeometry  = "geometry"
	fieldPlaceID   = "place_id"
	fieldCreatedAt = "created_at"
)

var flagFields = []string{"visited", "wishlisted", "favorited"}

// Classify inspects a raw record's structure and converts it into a tagged
// Record variant. Returns ErrUnclassifiable when no known shape matches.
func Classify(raw map[string]any) (places.Record, error) {
	switch {
	case hasKey(raw, fieldReviews):
		return classifyDetailed(raw)
	case hasKey(raw, fieldGeometry) && hasKey(raw, fieldPlaceID):
		return classifySearchResult(raw)
	case hasAnyKey(raw, flagFields...) && hasNumber(raw, "id"):
		return classifySummary(raw)
	case hasKey(raw, fieldCreatedAt) && !hasAnyKey(raw, flagFields...):
		return classifyPersisted(raw)
	default:
		return places.Record{}, errors.ErrUnclassifiable
	}
}

// classifySearchResult handles the provider-search shape: a geometry
// sub-object plus a provider place id. Search results have no opinion about
// the user's relationship to the place, so every flag stays absent.
func classifySearchResult(raw map[string]any) (places.Record, error) {
	rec := places.Record{
		Kind:       places.KindSearchResult,
		ExternalID: getString(raw, fieldPlaceID),
		Name:       optString(raw, "name"),
		Address:    optString(raw, "formatted_address"),
		Phone:      optString(raw, "international_phone_number"),
		Website:    optString(raw, "website"),
		Rating:     optFloat(raw, "rating"),
	}

	if geometry, ok := raw[fieldGeometry].(map[string]any); ok {
		if location, ok := geometry["location"].(map[string]any); ok {
			rec.Lat = optFloat(location, "lat")
			rec.Lng = optFloat(location, "lng")
		}
	}

	if rec.ExternalID == "" {
		return places.Record{}, errors.NewValidationError("place_id", nil, "search result missing provider place id")
	}
	return rec, nil
}

// classifySummary handles the lightweight server summary: identity,
// coordinates, and explicit relationship flags, no review collection.
func classifySummary(raw map[string]any) (places.Record, error) {
	rec := places.Record{
		Kind:       places.KindSummary,
		ExternalID: getString(raw, "external_id"),
		InternalID: optInt64(raw, "id"),
		Name:       optString(raw, "name"),
		Address:    optString(raw, "address"),
		Lat:        optFloat(raw, "lat"),
		Lng:        optFloat(raw, "lng"),
		Visited:    optBool(raw, "visited"),
		Wishlisted: optBool(raw, "wishlisted"),
		Favorited:  optBool(raw, "favorited"),
	}

	if rec.ExternalID == "" {
		return places.Record{}, errors.NewValidationError("external_id", nil, "summary missing external id")
	}
	return rec, nil
}

// classifyDetailed handles the fully-detailed server record, which
// additionally carries the review collection and group context. A present
// "group" key with a null value is an explicit clear of group membership.
func classifyDetailed(raw map[string]any) (places.Record, error) {
	rec := places.Record{
		Kind:       places.KindDetailed,
		ExternalID: getString(raw, "external_id"),
		InternalID: optInt64(raw, "id"),
		Name:       optString(raw, "name"),
		Address:    optString(raw, "address"),
		Lat:        optFloat(raw, "lat"),
		Lng:        optFloat(raw, "lng"),
		Phone:      optString(raw, "phone"),
		Website:    optString(raw, "website"),
		Rating:     optFloat(raw, "rating"),
		Visited:    optBool(raw, "visited"),
		Wishlisted: optBool(raw, "wishlisted"),
		Favorited:  optBool(raw, "favorited"),
	}

	rec.ReviewsDeclared = true
	if rawReviews, ok := raw[fieldReviews].([]any); ok {
		rec.Reviews = make([]places.Review, 0, len(rawReviews))
		for _, rawReview := range rawReviews {
			reviewMap, ok := rawReview.(map[string]any)
			if !ok {
				continue
			}
			rec.Reviews = append(rec.Reviews, classifyReview(reviewMap))
		}
	}

	if groupRaw, present := raw["group"]; present {
		if groupMap, ok := groupRaw.(map[string]any); ok {
			group := places.GroupContext{GroupID: getString(groupMap, "group_id")}
			if date := optTime(groupMap, "date"); date != nil {
				group.Date = *date
			}
			rec.Group = &group
		} else {
			rec.ClearGroup = true
		}
	}

	if rec.ExternalID == "" {
		return places.Record{}, errors.NewValidationError("external_id", nil, "detailed record missing external id")
	}
	return rec, nil
}

// classifyPersisted handles raw locally-persisted records: they carry a
// creation timestamp and lack relationship flags entirely.
func classifyPersisted(raw map[string]any) (places.Record, error) {
	rec := places.Record{
		Kind:       places.KindPersisted,
		ExternalID: getString(raw, "external_id"),
		InternalID: optInt64(raw, "internal_id"),
		Name:       optString(raw, "name"),
		Address:    optString(raw, "address"),
		Lat:        optFloat(raw, "lat"),
		Lng:        optFloat(raw, "lng"),
		Phone:      optString(raw, "phone"),
		Website:    optString(raw, "website"),
		Rating:     optFloat(raw, "rating"),
		CreatedAt:  optTime(raw, fieldCreatedAt),
	}

	if rec.ExternalID == "" {
		return places.Record{}, errors.NewValidationError("external_id", nil, "persisted record missing external id")
	}
	return rec, nil
}

func classifyReview(raw map[string]any) places.Review {
	review := places.Review{
		ID:   getString(raw, "id"),
		Text: getString(raw, "text"),
	}
	if rating := optInt64(raw, "rating"); rating != nil {
		review.Rating = int(*rating)
	}
	if date := optTime(raw, "date"); date != nil {
		review.Date = *date
	}
	if rawPhotos, ok := raw["photos"].([]any); ok {
		for _, p := range rawPhotos {
			if path, ok := p.(string); ok {
				review.Photos = append(review.Photos, path)
			}
		}
	}
	return review
}

// Extraction helpers. JSON decoding yields float64 for all numbers, but
// records may also arrive as already-typed maps, so each helper accepts both.

func hasKey(raw map[string]any, key string) bool {
	_, ok := raw[key]
	return ok
}

func hasAnyKey(raw map[string]any, keys ...string) bool {
	for _, key := range keys {
		if hasKey(raw, key) {
			return true
		}
	}
	return false
}

func hasNumber(raw map[string]any, key string) bool {
	return optInt64(raw, key) != nil
}

func getString(raw map[string]any, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

func optString(raw map[string]any, key string) *string {
	if s, ok := raw[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func optFloat(raw map[string]any, key string) *float64 {
	switch v := raw[key].(type) {
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

func optInt64(raw map[string]any, key string) *int64 {
	switch v := raw[key].(type) {
	case int64:
		return &v
	case int:
		n := int64(v)
		return &n
	case float64:
		n := int64(v)
		return &n
	}
	return nil
}

func optBool(raw map[string]any, key string) *bool {
	if b, ok := raw[key].(bool); ok {
		return &b
	}
	return nil
}

func optTime(raw map[string]any, key string) *time.Time {
	switch v := raw[key].(type) {
	case time.Time:
		return &v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}

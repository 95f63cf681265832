package places

import (
	"math"
	"time"
)

// Place represents the canonical merged record for one real-world location.
type Place struct {
	// Core identity
	ExternalID string `json:"external_id" yaml:"external_id"`                     // Stable id assigned by the upstream search provider (primary key)
	InternalID *int64 `json:"internal_id,omitempty" yaml:"internal_id,omitempty"` // Assigned once the place is first persisted server-side; absent until then
	TempID     string `json:"temp_id,omitempty" yaml:"temp_id,omitempty"`         // Set while an optimistic create is awaiting server confirmation

	// Attributes - overridable if present, else inherited across merges
	Name        string      `json:"name" yaml:"name"`
	Address     string      `json:"address,omitempty" yaml:"address,omitempty"`
	Coordinates Coordinates `json:"coordinates" yaml:"coordinates"`
	Phone       string      `json:"phone,omitempty" yaml:"phone,omitempty"`
	Website     string      `json:"website,omitempty" yaml:"website,omitempty"`
	Rating      float64     `json:"rating,omitempty" yaml:"rating,omitempty"` // Aggregate provider rating

	// Relationship flags - authoritative only from sources that declare them
	Visited    bool `json:"visited" yaml:"visited"`
	Wishlisted bool `json:"wishlisted" yaml:"wishlisted"`
	Favorited  bool `json:"favorited" yaml:"favorited"`

	// Reviews - ordered, additive across merges
	Reviews []Review `json:"reviews,omitempty" yaml:"reviews,omitempty"`

	// Group - itinerary membership, first writer wins unless explicitly cleared
	Group *GroupContext `json:"group,omitempty" yaml:"group,omitempty"`

	// Timestamps for record keeping
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Coordinates is a validated lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether the coordinates are numeric and within range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Review represents one recorded visit review on a place.
type Review struct {
	ID     string    `json:"id" yaml:"id"`
	TempID string    `json:"temp_id,omitempty" yaml:"temp_id,omitempty"` // Set while the review is awaiting server confirmation
	Date   time.Time `json:"date" yaml:"date"`
	Rating int       `json:"rating" yaml:"rating"`
	Text   string    `json:"text,omitempty" yaml:"text,omitempty"`
	Photos []string  `json:"photos,omitempty" yaml:"photos,omitempty"` // Attachment storage paths
}

// GroupContext records which itinerary group a place currently belongs to.
type GroupContext struct {
	GroupID string    `json:"group_id" yaml:"group_id"`
	Date    time.Time `json:"date,omitempty" yaml:"date,omitempty"`
}

// Copy returns a deep copy of the place.
func (p *Place) Copy() *Place {
	if p == nil {
		return nil
	}
	cp := *p
	if p.InternalID != nil {
		id := *p.InternalID
		cp.InternalID = &id
	}
	if p.Group != nil {
		g := *p.Group
		cp.Group = &g
	}
	if p.Reviews != nil {
		cp.Reviews = make([]Review, len(p.Reviews))
		for i, r := range p.Reviews {
			cp.Reviews[i] = r
			if r.Photos != nil {
				cp.Reviews[i].Photos = append([]string(nil), r.Photos...)
			}
		}
	}
	return &cp
}

// Review returns the review with the given id (permanent or temp) and whether
// it exists.
func (p *Place) Review(id string) (Review, bool) {
	for _, r := range p.Reviews {
		if r.ID == id || (r.TempID != "" && r.TempID == id) {
			return r, true
		}
	}
	return Review{}, false
}

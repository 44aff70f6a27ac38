package models

import (
	"time"

	"github.com/google/uuid"
)

// EventSource identifies which upstream provider an event came from.
type EventSource string

const (
	EventSourceKudaGo     EventSource = "KUDAGO"
	EventSourceTimepad    EventSource = "TIMEPAD"
	EventSourceNetworkly  EventSource = "NETWORKLY"
	EventSourceResonanse  EventSource = "RESONANSE"
)

// MinIndexableDescriptionLen is the shortest event description that is
// considered worth embedding. Shorter descriptions yield no EventVector.
const MinIndexableDescriptionLen = 20

// Venue is the physical location of an event.
type Venue struct {
	Title   *string `json:"title,omitempty"`
	Address *string `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Picture is the event's cover image, possibly mirrored locally.
type Picture struct {
	ImageURL   *string `json:"image_url,omitempty"`
	LocalImage *string `json:"local_image,omitempty"`
}

// Price is an optional ticket price.
type Price struct {
	Amount   float64 `json:"price"`
	Currency string  `json:"currency"`
}

// Event is the authoritative record for a single city event (C4's view).
// It is never mutated after insertion.
type Event struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Description   *string     `json:"description,omitempty"`
	DatetimeFrom  time.Time   `json:"datetime_from"`
	DatetimeTo    *time.Time  `json:"datetime_to,omitempty"`
	City          *string     `json:"city,omitempty"`
	Venue         Venue       `json:"venue"`
	Picture       Picture     `json:"picture"`
	Price         *Price      `json:"price,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	Contact       *string     `json:"contact,omitempty"`

	// ServiceID is unique across (ServiceType, provider-internal id).
	ServiceID   string      `json:"service_id"`
	ServiceType EventSource `json:"service_type"`
}

// IsIndexable reports whether the event's description is long enough to be
// embedded into an EventVector.
func (e *Event) IsIndexable() bool {
	return e.Description != nil && len(*e.Description) >= MinIndexableDescriptionLen
}

// User is a minimal profile: a 64-bit ID plus an optional free-text
// description used for static candidate generation.
type User struct {
	ID          int64   `json:"id"`
	Description *string `json:"description,omitempty"`
}

// MinIndexableUserDescriptionLen is the shortest user description worth
// embedding into a UserVector.
const MinIndexableUserDescriptionLen = 10

// IsIndexable reports whether the user's description is long enough to be
// embedded into a UserVector.
func (u *User) IsIndexable() bool {
	return u.Description != nil && len(*u.Description) >= MinIndexableUserDescriptionLen
}

package model

import "time"

// Event is a meetup in the catalog.  Participants is the remaining capacity
// and is decremented by every booking; Capacity is the number of places the
// event was created (or last resized) with and never moves on a booking.
type Event struct {
	ID           string    `json:"id"`
	Name         string    `json:"event_name"`
	Type         string    `json:"type"`
	Venue        string    `json:"location"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Description  string    `json:"description"`
	Participants int       `json:"participants"`
	Capacity     int       `json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
}

// Booked returns the number of places taken.
func (e Event) Booked() int {
	return e.Capacity - e.Participants
}

// Geolocated reports whether both coordinates are present.
func (e Event) Geolocated() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// NormalizeCapacity fills Capacity for events stored before the field
// existed.  Such events are treated as having no bookings beyond what the
// remaining counter already reflects.
func (e *Event) NormalizeCapacity() {
	if e.Capacity < e.Participants {
		e.Capacity = e.Participants
	}
}

// EventFields is the editable part of an event as submitted by an admin.
type EventFields struct {
	Name        string   `json:"event_name"`
	Type        string   `json:"type"`
	Venue       string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description string   `json:"description"`
	Capacity    int      `json:"participants"`
}
